package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lvollmer/semkb/helper"
	"github.com/lvollmer/semkb/model"
	loadSql "github.com/lvollmer/semkb/sql"
	"github.com/pgvector/pgvector-go"
)

// ChunksDBHandlerFunctions defines the interface for chunk storage operations.
type ChunksDBHandlerFunctions interface {
	AddChunks(indexName string, contents []string, embeddings [][]float32, sourceDocument string, offsets []int, tokenCounts []int) (int, error)
	VectorSearch(indexName string, queryEmbedding []float32, limit int) ([]model.SearchCandidate, error)
}

// ChunksDBHandler handles chunk insertion and vector similarity search.
type ChunksDBHandler struct {
	db      *helper.Database
	indexes *IndexesDBHandler
}

// NewChunksDBHandler creates a new chunks database handler.
// It loads the chunk SQL functions and creates the chunks table with the
// given embedding dimension. If force is true, it will reload the SQL
// functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, indexes *IndexesDBHandler, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if indexes == nil {
		return nil, helper.NewError("indexes handler validation", fmt.Errorf("indexes handler is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive"))
	}

	handler := &ChunksDBHandler{
		db:      db,
		indexes: indexes,
	}

	err := loadSql.LoadChunksSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	_, err = db.Instance.Exec(`SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		return nil, helper.NewError("create chunks table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler", slog.Int("embedding_dim", embeddingDim))

	return handler, nil
}

// AddChunks appends chunk records to a collection. The five positional lists
// must have equal length. Each chunk gets a fresh id and creation timestamp;
// re-adding identical content creates new distinct chunks.
// Returns the number of chunks added.
func (h *ChunksDBHandler) AddChunks(indexName string, contents []string, embeddings [][]float32, sourceDocument string, offsets []int, tokenCounts []int) (int, error) {
	if len(contents) != len(embeddings) || len(contents) != len(offsets) || len(contents) != len(tokenCounts) {
		return 0, model.NewInvalidInput(
			sourceDocument,
			fmt.Sprintf("mismatched lengths: %d contents, %d embeddings, %d offsets, %d token counts",
				len(contents), len(embeddings), len(offsets), len(tokenCounts)),
		)
	}

	indexID, err := h.indexes.ResolveIndex(indexName)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for i, content := range contents {
		var id uuid.UUID
		row := h.db.Instance.QueryRow(
			`SELECT insert_chunk($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(),
			indexID,
			content,
			pgvector.NewVector(embeddings[i]),
			sourceDocument,
			offsets[i],
			tokenCounts[i],
			now,
		)
		if err := row.Scan(&id); err != nil {
			return i, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	h.db.Logger.Info("Added chunks",
		slog.Int("count", len(contents)),
		slog.String("index", indexName),
		slog.String("source", sourceDocument),
	)

	return len(contents), nil
}

// VectorSearch returns up to limit candidates from a collection, ordered by
// cosine similarity to the query embedding. The limit is a recall-oriented
// over-fetch size, larger than the number of results ultimately shown.
func (h *ChunksDBHandler) VectorSearch(indexName string, queryEmbedding []float32, limit int) ([]model.SearchCandidate, error) {
	indexID, err := h.indexes.ResolveIndex(indexName)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3)`,
		indexID,
		pgvector.NewVector(queryEmbedding),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var candidates []model.SearchCandidate
	for rows.Next() {
		candidate := model.SearchCandidate{}
		err := rows.Scan(
			&candidate.Content,
			&candidate.SourceDocument,
			&candidate.CharOffset,
			&candidate.TokenCount,
			&candidate.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		candidates = append(candidates, candidate)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	h.db.Logger.Debug("Vector search",
		slog.String("index", indexName),
		slog.Int("candidates", len(candidates)),
	)

	return candidates, nil
}
