package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lvollmer/semkb/core/pipeline"
	"github.com/lvollmer/semkb/model"
)

// VectorSearcher returns candidates from a collection ordered by vector
// similarity to the query embedding.
type VectorSearcher interface {
	VectorSearch(indexName string, queryEmbedding []float32, limit int) ([]model.SearchCandidate, error)
}

// Engine performs two-stage retrieval: a recall-oriented vector search
// over-fetches candidates, a cross-encoder reranker then orders them by
// precise relevance to the query.
type Engine struct {
	searcher  VectorSearcher
	embedder  pipeline.Embedder
	reranker  pipeline.Reranker
	overFetch int
	logger    *slog.Logger
}

// NewEngine creates a new retrieval engine. overFetch is the number of
// candidates pulled from vector search before reranking.
func NewEngine(searcher VectorSearcher, embedder pipeline.Embedder, reranker pipeline.Reranker, overFetch int, logger *slog.Logger) (*Engine, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder must not be nil")
	}
	if reranker == nil {
		return nil, fmt.Errorf("reranker must not be nil")
	}
	if overFetch <= 0 {
		return nil, fmt.Errorf("over-fetch limit must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		searcher:  searcher,
		embedder:  embedder,
		reranker:  reranker,
		overFetch: overFetch,
		logger:    logger,
	}, nil
}

// Query retrieves the topK most relevant chunks for a query from a collection.
// Results are ordered by descending relevance score; candidates with equal
// scores keep their vector search order.
func (e *Engine) Query(ctx context.Context, indexName string, query string, topK int) ([]model.RankedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewInvalidInput(indexName, "query must not be empty")
	}
	if topK < 1 {
		return nil, model.NewInvalidInput(indexName, "topK must be at least 1")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryEmbedding, err := e.embedder.EncodeQuery(query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit := e.overFetch
	if topK > limit {
		limit = topK
	}

	candidates, err := e.searcher.VectorSearch(indexName, queryEmbedding, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []model.RankedResult{}, nil
	}

	contents := make([]string, len(candidates))
	for i, candidate := range candidates {
		contents[i] = candidate.Content
	}

	scores, err := e.reranker.Score(query, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to rerank candidates: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("score count mismatch: got %d scores for %d candidates", len(scores), len(candidates))
	}

	results := make([]model.RankedResult, len(candidates))
	for i, candidate := range candidates {
		results[i] = model.RankedResult{
			Content:        candidate.Content,
			RelevanceScore: scores[i],
			SourceDocument: candidate.SourceDocument,
			CharOffset:     candidate.CharOffset,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if len(results) > topK {
		results = results[:topK]
	}

	e.logger.Debug("Query answered",
		slog.String("index", indexName),
		slog.Int("candidates", len(candidates)),
		slog.Int("results", len(results)),
	)

	return results, nil
}
