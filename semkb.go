package semkb

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lvollmer/semkb/core/crawler"
	"github.com/lvollmer/semkb/core/pipeline"
	"github.com/lvollmer/semkb/core/retrieval"
	"github.com/lvollmer/semkb/database"
	"github.com/lvollmer/semkb/helper"
	"github.com/lvollmer/semkb/model"
	loadSql "github.com/lvollmer/semkb/sql"
)

// KnowledgeBase provides a unified interface to the index store, the
// processing pipeline, the retrieval engine and the manifest crawler.
// Construct it with New, then attach model capabilities with
// UseDefaultCapabilities or UseCapabilities before processing or querying.
type KnowledgeBase struct {
	DB        *helper.Database
	Indexes   *database.IndexesDBHandler
	Chunks    *database.ChunksDBHandler
	Processor *pipeline.Processor
	Engine    *retrieval.Engine
	Scraper   *crawler.Scraper
	// Logging
	log *slog.Logger
	cfg *model.Configuration
}

// New creates a KnowledgeBase with the store handlers initialized. A nil cfg
// uses the defaults.
func New(dbConfig *helper.DatabaseConfiguration, cfg *model.Configuration) (*KnowledgeBase, error) {
	if cfg == nil {
		cfg = model.DefaultConfiguration()
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("semkb", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	indexes, err := database.NewIndexesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create indexes handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, indexes, cfg.EmbeddingDimension, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	return &KnowledgeBase{
		DB:      db,
		Indexes: indexes,
		Chunks:  chunks,
		log:     logger,
		cfg:     cfg,
	}, nil
}

// Close closes the database connection. Model sessions attached via
// UseDefaultCapabilities stay alive until the process exits.
func (k *KnowledgeBase) Close() error {
	if k.DB != nil && k.DB.Instance != nil {
		return k.DB.Instance.Close()
	}
	return nil
}

// UseCapabilities wires an embedder and a reranker into the processing
// pipeline, the retrieval engine and the crawler.
func (k *KnowledgeBase) UseCapabilities(embedder pipeline.Embedder, reranker pipeline.Reranker) error {
	if embedder == nil {
		return helper.NewError("wire capabilities", fmt.Errorf("embedder must not be nil"))
	}
	if reranker == nil {
		return helper.NewError("wire capabilities", fmt.Errorf("reranker must not be nil"))
	}

	chunker := pipeline.TokenChunker(embedder.CountTokens, k.cfg.MaxChunkTokens)
	processor, err := pipeline.NewProcessor(embedder, chunker, k.log)
	if err != nil {
		return helper.NewError("create processor", err)
	}

	engine, err := retrieval.NewEngine(k.Chunks, embedder, reranker, k.cfg.VectorSearchLimit, k.log)
	if err != nil {
		return helper.NewError("create retrieval engine", err)
	}

	scraper, err := crawler.NewScraper(processor, k.Chunks, k.cfg.Crawler, k.log)
	if err != nil {
		return helper.NewError("create scraper", err)
	}

	k.Processor = processor
	k.Engine = engine
	k.Scraper = scraper

	return nil
}

// UseDefaultCapabilities loads the configured embedding and reranker models
// and wires them in. Models are downloaded on first use, so this can take a
// while.
func (k *KnowledgeBase) UseDefaultCapabilities() error {
	embedder, err := pipeline.NewHugotEmbedder(k.cfg.EmbeddingModel)
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	reranker, err := pipeline.NewHugotReranker(k.cfg.RerankerModel)
	if err != nil {
		return helper.NewError("create default reranker", err)
	}

	return k.UseCapabilities(embedder, reranker)
}

// CreateIndex registers a new empty collection.
func (k *KnowledgeBase) CreateIndex(name string) error {
	return k.Indexes.CreateIndex(name)
}

// IndexExists reports whether a collection exists.
func (k *KnowledgeBase) IndexExists(name string) (bool, error) {
	return k.Indexes.IndexExists(name)
}

// ListIndexes returns all collection names, sorted.
func (k *KnowledgeBase) ListIndexes() ([]string, error) {
	return k.Indexes.ListIndexes()
}

// DeleteIndex removes a collection and all its chunks.
func (k *KnowledgeBase) DeleteIndex(name string) error {
	return k.Indexes.DeleteIndex(name)
}

// CountRows returns the number of chunks stored in a collection.
func (k *KnowledgeBase) CountRows(name string) (int, error) {
	return k.Indexes.CountRows(name)
}

// EncodeDocument processes one document into a collection and returns the
// number of chunks stored. An empty document stores nothing.
func (k *KnowledgeBase) EncodeDocument(indexName string, path string) (int, error) {
	if k.Processor == nil {
		return 0, helper.NewError("encode document", fmt.Errorf("capabilities not set, use UseDefaultCapabilities() first"))
	}

	result, err := k.Processor.ProcessDocument(path)
	if err != nil {
		return 0, err
	}
	if result.Empty() {
		return 0, nil
	}

	added, err := k.Chunks.AddChunks(indexName, result.Chunks, result.Embeddings, path, result.Offsets, result.TokenCounts)
	if err != nil {
		return 0, err
	}

	k.log.Info("Encoded document",
		slog.String("index", indexName),
		slog.String("path", path),
		slog.Int("chunks", added),
	)

	return added, nil
}

// EncodeBatch discovers matching documents under dir and processes them into
// a collection in the background. Index resolution and discovery run
// synchronously so bad input fails fast; the returned job is already started.
// Nil patterns use the configured defaults.
func (k *KnowledgeBase) EncodeBatch(ctx context.Context, indexName string, dir string, patterns []string) (*pipeline.BatchJob, error) {
	if k.Processor == nil {
		return nil, helper.NewError("encode batch", fmt.Errorf("capabilities not set, use UseDefaultCapabilities() first"))
	}

	if _, err := k.Indexes.ResolveIndex(indexName); err != nil {
		return nil, err
	}

	if len(patterns) == 0 {
		patterns = k.cfg.FilePatterns
	}
	paths, err := k.Processor.DiscoverDocuments(dir, patterns)
	if err != nil {
		return nil, err
	}

	k.log.Info("Starting batch",
		slog.String("index", indexName),
		slog.Int("documents", len(paths)),
	)

	job := pipeline.NewBatchJob(k.Processor, k.Chunks, indexName, paths, k.log)
	job.Start(ctx)

	return job, nil
}

// Query retrieves the most relevant chunks for a query from a collection.
// topK < 1 uses the configured default.
func (k *KnowledgeBase) Query(ctx context.Context, indexName string, query string, topK int) ([]model.RankedResult, error) {
	if k.Engine == nil {
		return nil, helper.NewError("query", fmt.Errorf("capabilities not set, use UseDefaultCapabilities() first"))
	}

	if topK < 1 {
		topK = k.cfg.DefaultTopK
	}

	return k.Engine.Query(ctx, indexName, query, topK)
}

// RunCrawl crawls a manifest into a collection. A nil sections filter crawls
// every section.
func (k *KnowledgeBase) RunCrawl(ctx context.Context, indexName string, manifestURL string, sections []string) (*crawler.CrawlResult, error) {
	if k.Scraper == nil {
		return nil, helper.NewError("run crawl", fmt.Errorf("capabilities not set, use UseDefaultCapabilities() first"))
	}

	if _, err := k.Indexes.ResolveIndex(indexName); err != nil {
		return nil, err
	}

	return k.Scraper.Run(ctx, indexName, manifestURL, sections)
}
