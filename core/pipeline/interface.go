package pipeline

// ChunkFunc is a function that splits text into ordered segments.
// Segment order follows document order.
type ChunkFunc func(text string) ([]string, error)

// TokenCounterFunc returns the number of model tokens in a text.
type TokenCounterFunc func(text string) (int, error)

// Embedder generates embeddings and counts tokens against the same model,
// so chunk token budgets line up with what the model actually sees.
type Embedder interface {
	EncodeBatch(texts []string) ([][]float32, error)
	EncodeQuery(text string) ([]float32, error)
	CountTokens(text string) (int, error)
}

// Reranker scores query-document pairs with a cross-encoder.
// Returned scores are positionally aligned with the documents slice.
type Reranker interface {
	Score(query string, documents []string) ([]float64, error)
}
