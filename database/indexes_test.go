package database

import (
	"errors"
	"testing"

	"github.com/lvollmer/semkb/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexesDBHandler(t *testing.T) {
	db := initDB(t)

	t.Run("Valid call NewIndexesDBHandler", func(t *testing.T) {
		handler, err := NewIndexesDBHandler(db, true)
		assert.NoError(t, err, "Expected NewIndexesDBHandler to not return an error")
		require.NotNil(t, handler, "Expected NewIndexesDBHandler to return a non-nil instance")
		require.NotNil(t, handler.db, "Expected handler to have a non-nil database instance")
	})

	t.Run("Invalid call NewIndexesDBHandler with nil database", func(t *testing.T) {
		_, err := NewIndexesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating IndexesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestIndexesCreate(t *testing.T) {
	indexes, _ := initHandlers(t)

	t.Run("Create index", func(t *testing.T) {
		err := indexes.CreateIndex("create-test")
		assert.NoError(t, err, "Expected CreateIndex to not return an error")

		exists, err := indexes.IndexExists("create-test")
		require.NoError(t, err)
		assert.True(t, exists, "Expected created index to exist")

		// Cleanup
		indexes.DeleteIndex("create-test")
	})

	t.Run("Creating an existing index fails with AlreadyExists", func(t *testing.T) {
		require.NoError(t, indexes.CreateIndex("create-dup"))

		err := indexes.CreateIndex("create-dup")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrAlreadyExists), "Expected AlreadyExists error kind")

		// Cleanup
		indexes.DeleteIndex("create-dup")
	})

	t.Run("Invalid index name is rejected before any store operation", func(t *testing.T) {
		err := indexes.CreateIndex("9starts-with-digit")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidInput))
	})

	t.Run("Index names are case sensitive", func(t *testing.T) {
		require.NoError(t, indexes.CreateIndex("Case-Test"))

		err := indexes.CreateIndex("case-test")
		assert.NoError(t, err, "Expected differently cased name to be a distinct index")

		// Cleanup
		indexes.DeleteIndex("Case-Test")
		indexes.DeleteIndex("case-test")
	})
}

func TestIndexesList(t *testing.T) {
	indexes, _ := initHandlers(t)

	t.Run("List contains created indexes sorted by name", func(t *testing.T) {
		require.NoError(t, indexes.CreateIndex("list-b"))
		require.NoError(t, indexes.CreateIndex("list-a"))

		names, err := indexes.ListIndexes()
		require.NoError(t, err)

		posA, posB := -1, -1
		for i, name := range names {
			if name == "list-a" {
				posA = i
			}
			if name == "list-b" {
				posB = i
			}
		}
		assert.GreaterOrEqual(t, posA, 0, "Expected list-a in listing")
		assert.GreaterOrEqual(t, posB, 0, "Expected list-b in listing")
		assert.Less(t, posA, posB, "Expected name-sorted listing")

		// Cleanup
		indexes.DeleteIndex("list-a")
		indexes.DeleteIndex("list-b")
	})
}

func TestIndexesDelete(t *testing.T) {
	indexes, chunks := initHandlers(t)

	t.Run("Delete removes the index and evicts the cached handle", func(t *testing.T) {
		require.NoError(t, indexes.CreateIndex("delete-test"))

		err := indexes.DeleteIndex("delete-test")
		assert.NoError(t, err)

		exists, err := indexes.IndexExists("delete-test")
		require.NoError(t, err)
		assert.False(t, exists, "Expected deleted index to be gone")
	})

	t.Run("Deleting a missing index fails with NotFound", func(t *testing.T) {
		err := indexes.DeleteIndex("never-created")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound), "Expected NotFound error kind")
	})

	t.Run("Delete cascades to chunks", func(t *testing.T) {
		require.NoError(t, indexes.CreateIndex("delete-cascade"))
		_, err := chunks.AddChunks(
			"delete-cascade",
			[]string{"some content"},
			[][]float32{embeddingOf(1, 0, 0, 0)},
			"doc.txt",
			[]int{0},
			[]int{3},
		)
		require.NoError(t, err)

		require.NoError(t, indexes.DeleteIndex("delete-cascade"))
		require.NoError(t, indexes.CreateIndex("delete-cascade"))

		count, err := indexes.CountRows("delete-cascade")
		require.NoError(t, err)
		assert.Equal(t, 0, count, "Expected recreated index to start empty")

		// Cleanup
		indexes.DeleteIndex("delete-cascade")
	})
}

func TestIndexesCountRows(t *testing.T) {
	indexes, _ := initHandlers(t)

	t.Run("Counting a missing index fails with NotFound", func(t *testing.T) {
		_, err := indexes.CountRows("missing-count")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("Empty index counts zero", func(t *testing.T) {
		require.NoError(t, indexes.CreateIndex("count-empty"))

		count, err := indexes.CountRows("count-empty")
		assert.NoError(t, err)
		assert.Equal(t, 0, count)

		// Cleanup
		indexes.DeleteIndex("count-empty")
	})
}

func TestIndexesResolveConcurrent(t *testing.T) {
	indexes, _ := initHandlers(t)

	t.Run("Concurrent resolution converges to one handle", func(t *testing.T) {
		require.NoError(t, indexes.CreateIndex("resolve-concurrent"))

		const workers = 16
		ids := make(chan int, workers)
		for i := 0; i < workers; i++ {
			go func() {
				id, err := indexes.ResolveIndex("resolve-concurrent")
				assert.NoError(t, err)
				ids <- id
			}()
		}

		first := <-ids
		for i := 1; i < workers; i++ {
			assert.Equal(t, first, <-ids, "Expected all resolutions to yield the same handle")
		}

		// Cleanup
		indexes.DeleteIndex("resolve-concurrent")
	})
}
