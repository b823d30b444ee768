package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/lvollmer/semkb/model"
)

// Processor turns documents into chunks with embeddings, offsets and token
// counts, ready for storage.
type Processor struct {
	embedder Embedder
	chunker  ChunkFunc
	logger   *slog.Logger
}

// NewProcessor creates a new document processor.
func NewProcessor(embedder Embedder, chunker ChunkFunc, logger *slog.Logger) (*Processor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder must not be nil")
	}
	if chunker == nil {
		return nil, fmt.Errorf("chunker must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		embedder: embedder,
		chunker:  chunker,
		logger:   logger,
	}, nil
}

// ReadDocument reads a document from disk as UTF-8 text.
func (p *Processor) ReadDocument(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", model.NewNotFound(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat document: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", model.NewInvalidInput(path, "not a regular file")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	return string(content), nil
}

// ProcessContent chunks and embeds raw text. Text that yields no chunks
// produces an empty result, not an error.
func (p *Processor) ProcessContent(content string) (*model.DocumentResult, error) {
	chunks, err := p.chunker(content)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk content: %w", err)
	}

	result := &model.DocumentResult{
		Chunks:      []string{},
		Embeddings:  [][]float32{},
		Offsets:     []int{},
		TokenCounts: []int{},
	}
	if len(chunks) == 0 {
		return result, nil
	}

	offsets := RecoverOffsets(content, chunks)

	embeddings, err := p.embedder.EncodeBatch(chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}

	tokenCounts := make([]int, len(chunks))
	for i, chunk := range chunks {
		count, err := p.embedder.CountTokens(chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to count tokens for chunk %d: %w", i, err)
		}
		tokenCounts[i] = count
	}

	result.Chunks = chunks
	result.Embeddings = embeddings
	result.Offsets = offsets
	result.TokenCounts = tokenCounts

	return result, nil
}

// ProcessDocument reads, chunks and embeds a document from disk.
func (p *Processor) ProcessDocument(path string) (*model.DocumentResult, error) {
	content, err := p.ReadDocument(path)
	if err != nil {
		return nil, err
	}

	result, err := p.ProcessContent(content)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Processed document",
		slog.String("path", path),
		slog.Int("chunks", len(result.Chunks)),
	)

	return result, nil
}

// DiscoverDocuments walks a directory recursively and returns all file paths
// whose base name matches at least one of the glob patterns. The result is
// deduplicated and sorted.
func (p *Processor) DiscoverDocuments(dir string, patterns []string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, model.NewNotFound(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, model.NewInvalidInput(dir, "not a directory")
	}
	if len(patterns) == 0 {
		return nil, model.NewInvalidInput(dir, "no file patterns given")
	}

	seen := map[string]bool{}
	err = filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		for _, pattern := range patterns {
			matched, err := filepath.Match(pattern, entry.Name())
			if err != nil {
				return fmt.Errorf("invalid file pattern %q: %w", pattern, err)
			}
			if matched {
				seen[path] = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	return paths, nil
}
