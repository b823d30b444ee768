package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfiguration(t *testing.T) {
	t.Run("Defaults are populated", func(t *testing.T) {
		cfg := DefaultConfiguration()

		assert.Equal(t, 768, cfg.EmbeddingDimension)
		assert.Equal(t, 512, cfg.MaxChunkTokens)
		assert.Equal(t, 20, cfg.VectorSearchLimit)
		assert.Equal(t, 5, cfg.DefaultTopK)
		assert.NotEmpty(t, cfg.EmbeddingModel)
		assert.NotEmpty(t, cfg.RerankerModel)
		assert.Contains(t, cfg.FilePatterns, "*.txt")
		assert.Contains(t, cfg.FilePatterns, "*.md")
	})

	t.Run("Over-fetch limit is at least the default top k", func(t *testing.T) {
		cfg := DefaultConfiguration()
		assert.GreaterOrEqual(t, cfg.VectorSearchLimit, cfg.DefaultTopK)
	})

	t.Run("Crawler defaults", func(t *testing.T) {
		cfg := DefaultConfiguration()

		assert.Equal(t, 10, cfg.Crawler.MaxConcurrent)
		assert.Equal(t, ".md", cfg.Crawler.ContentExtension)
		assert.NotEmpty(t, cfg.Crawler.UserAgent)
		assert.Less(t, cfg.Crawler.ConnectTimeout(), cfg.Crawler.Timeout())
	})
}

func TestLoadConfiguration(t *testing.T) {
	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		cfg, err := LoadConfiguration(filepath.Join(t.TempDir(), "does-not-exist.yaml"))

		require.NoError(t, err)
		assert.Equal(t, DefaultConfiguration(), cfg)
	})

	t.Run("File values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "embedding_dimension: 384\nmax_chunk_tokens: 256\ncrawler:\n  max_concurrent: 4\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadConfiguration(path)

		require.NoError(t, err)
		assert.Equal(t, 384, cfg.EmbeddingDimension)
		assert.Equal(t, 256, cfg.MaxChunkTokens)
		assert.Equal(t, 4, cfg.Crawler.MaxConcurrent)
		// Untouched fields keep defaults
		assert.Equal(t, 20, cfg.VectorSearchLimit)
		assert.Equal(t, ".md", cfg.Crawler.ContentExtension)
	})

	t.Run("Invalid YAML returns an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("embedding_dimension: [not an int"), 0o644))

		_, err := LoadConfiguration(path)

		assert.Error(t, err)
	})
}
