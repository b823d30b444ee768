package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/knights-analytics/hugot"
	"github.com/lvollmer/semkb/helper"
	"github.com/sugarme/tokenizer/pretrained"
)

// HugotEmbedder embeds text with a sentence transformer model and counts
// tokens with the same model's tokenizer. Construct it once at startup, the
// model download and session setup are expensive.
type HugotEmbedder struct {
	session *hugot.Session
	encode  func(texts []string) ([][]float32, error)
	count   TokenCounterFunc
}

// NewHugotEmbedder creates an embedder for the given Hugging Face model,
// downloading it if needed.
func NewHugotEmbedder(modelName string) (*HugotEmbedder, error) {
	// Prepare model (download if needed)
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	// The tokenizer file ships with the downloaded model
	tk, err := pretrained.FromFile(filepath.Join(modelPath, "tokenizer.json"))
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	return &HugotEmbedder{
		session: session,
		encode: func(texts []string) ([][]float32, error) {
			result, err := sentencePipeline.RunPipeline(texts)
			if err != nil {
				return nil, fmt.Errorf("failed to generate embeddings: %w", err)
			}
			if len(result.Embeddings) != len(texts) {
				return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
			}
			return result.Embeddings, nil
		},
		count: func(text string) (int, error) {
			encoding, err := tk.EncodeSingle(text, true)
			if err != nil {
				return 0, fmt.Errorf("failed to tokenize text: %w", err)
			}
			return len(encoding.Ids), nil
		},
	}, nil
}

// EncodeBatch generates one embedding per text in a single model run.
func (e *HugotEmbedder) EncodeBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.encode(texts)
}

// EncodeQuery generates the embedding for a single query text.
func (e *HugotEmbedder) EncodeQuery(text string) ([]float32, error) {
	embeddings, err := e.encode([]string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// CountTokens returns the number of tokens the embedding model sees for text,
// special tokens included.
func (e *HugotEmbedder) CountTokens(text string) (int, error) {
	return e.count(text)
}

// Close releases the underlying model session.
func (e *HugotEmbedder) Close() error {
	return e.session.Destroy()
}
