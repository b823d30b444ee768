package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lib/pq"
	"github.com/lvollmer/semkb/helper"
	"github.com/lvollmer/semkb/model"
	loadSql "github.com/lvollmer/semkb/sql"
)

// IndexesDBHandlerFunctions defines the interface for index registry operations.
type IndexesDBHandlerFunctions interface {
	CreateIndex(name string) error
	IndexExists(name string) (bool, error)
	ListIndexes() ([]string, error)
	DeleteIndex(name string) error
	CountRows(name string) (int, error)
}

// IndexesDBHandler manages the registry of named chunk collections.
// Resolved index handles are cached; opening the same name twice converges to
// one handle, so the cache is a pure latency optimization.
type IndexesDBHandler struct {
	db *helper.Database

	mu      sync.RWMutex
	handles map[string]int
}

// NewIndexesDBHandler creates a new index registry handler.
// It loads the registry SQL functions and creates the registry table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewIndexesDBHandler(db *helper.Database, force bool) (*IndexesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &IndexesDBHandler{
		db:      db,
		handles: map[string]int{},
	}

	err := loadSql.LoadIndexesSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load indexes sql", err)
	}

	_, err = db.Instance.Exec(`SELECT init_indexes();`)
	if err != nil {
		return nil, helper.NewError("create indexes table", err)
	}

	db.Logger.Info("Initialized IndexesDBHandler")

	return handler, nil
}

// CreateIndex registers a new empty collection and caches its handle.
func (h *IndexesDBHandler) CreateIndex(name string) error {
	if err := model.ValidateIndexName(name); err != nil {
		return err
	}

	index := &model.Index{}
	row := h.db.Instance.QueryRow(`SELECT * FROM insert_index($1)`, name)
	err := row.Scan(&index.ID, &index.Name, &index.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return model.NewAlreadyExists(name)
		}
		return helper.NewError("insert index", err)
	}

	h.mu.Lock()
	h.handles[name] = index.ID
	h.mu.Unlock()

	h.db.Logger.Info("Created index", slog.String("index", name))

	return nil
}

// IndexExists reports whether a collection with the given name exists.
func (h *IndexesDBHandler) IndexExists(name string) (bool, error) {
	if err := model.ValidateIndexName(name); err != nil {
		return false, err
	}

	_, err := h.ResolveIndex(name)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListIndexes returns all collection names, sorted by name.
func (h *IndexesDBHandler) ListIndexes() ([]string, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_all_indexes()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		index := &model.Index{}
		if err := rows.Scan(&index.ID, &index.Name, &index.CreatedAt); err != nil {
			return nil, helper.NewError("scan", err)
		}
		names = append(names, index.Name)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return names, nil
}

// DeleteIndex removes a collection and all its chunks. Irreversible.
func (h *IndexesDBHandler) DeleteIndex(name string) error {
	if err := model.ValidateIndexName(name); err != nil {
		return err
	}

	var deleted bool
	row := h.db.Instance.QueryRow(`SELECT delete_index($1)`, name)
	if err := row.Scan(&deleted); err != nil {
		return helper.NewError("delete index", err)
	}
	if !deleted {
		return model.NewNotFound(name)
	}

	h.mu.Lock()
	delete(h.handles, name)
	h.mu.Unlock()

	h.db.Logger.Info("Deleted index", slog.String("index", name))

	return nil
}

// CountRows returns the number of chunks stored in a collection.
func (h *IndexesDBHandler) CountRows(name string) (int, error) {
	indexID, err := h.ResolveIndex(name)
	if err != nil {
		return 0, err
	}

	var count int64
	row := h.db.Instance.QueryRow(`SELECT count_chunks($1)`, indexID)
	if err := row.Scan(&count); err != nil {
		return 0, helper.NewError("count chunks", err)
	}

	return int(count), nil
}

// ResolveIndex returns the internal handle for a collection name, opening and
// caching it on first use.
func (h *IndexesDBHandler) ResolveIndex(name string) (int, error) {
	if err := model.ValidateIndexName(name); err != nil {
		return 0, err
	}

	h.mu.RLock()
	id, ok := h.handles[name]
	h.mu.RUnlock()
	if ok {
		return id, nil
	}

	index := &model.Index{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_index($1)`, name)
	err := row.Scan(&index.ID, &index.Name, &index.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.NewNotFound(name)
	}
	if err != nil {
		return 0, helper.NewError("select index", err)
	}

	h.mu.Lock()
	h.handles[name] = index.ID
	h.mu.Unlock()

	return index.ID, nil
}
