package pipeline

import (
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/lvollmer/semkb/helper"
)

// HugotReranker scores query-document pairs with a cross-encoder model.
// Cross-encoders read query and document together, so their scores are more
// precise than the cosine similarity of independently embedded vectors.
type HugotReranker struct {
	session *hugot.Session
	score   func(pairs []string) ([]float64, error)
}

// NewHugotReranker creates a reranker for the given Hugging Face cross-encoder
// model, downloading it if needed.
func NewHugotReranker(modelName string) (*HugotReranker, error) {
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

	// Cross-encoder relevance models emit a single logit per pair
	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "reranker-pipeline",
		Options: []hugot.TextClassificationOption{
			pipelines.WithSigmoid(),
		},
	}
	rerankPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create reranker pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create reranker pipeline: %w", err)
	}

	return &HugotReranker{
		session: session,
		score: func(pairs []string) ([]float64, error) {
			result, err := rerankPipeline.RunPipeline(pairs)
			if err != nil {
				return nil, fmt.Errorf("failed to score pairs: %w", err)
			}
			if len(result.ClassificationOutputs) != len(pairs) {
				return nil, fmt.Errorf("score count mismatch: got %d outputs for %d pairs", len(result.ClassificationOutputs), len(pairs))
			}

			scores := make([]float64, len(pairs))
			for i, outputs := range result.ClassificationOutputs {
				if len(outputs) == 0 {
					return nil, fmt.Errorf("no classification output for pair %d", i)
				}
				scores[i] = float64(outputs[0].Score)
			}
			return scores, nil
		},
	}, nil
}

// Score returns one relevance score per document, positionally aligned.
func (r *HugotReranker) Score(query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	pairs := make([]string, len(documents))
	for i, doc := range documents {
		pairs[i] = query + " [SEP] " + doc
	}

	return r.score(pairs)
}

// Close releases the underlying model session.
func (r *HugotReranker) Close() error {
	return r.session.Destroy()
}
