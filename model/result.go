package model

// SearchCandidate is a chunk returned by vector search together with its
// similarity score. Candidates are ephemeral and never persisted.
type SearchCandidate struct {
	Content        string  `json:"content"`
	SourceDocument string  `json:"source_document"`
	CharOffset     int     `json:"char_offset"`
	TokenCount     int     `json:"token_count"`
	Similarity     float64 `json:"similarity"`
}

// RankedResult is a reranked search result. Results are always ordered by
// descending relevance score.
type RankedResult struct {
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
	SourceDocument string  `json:"source_document"`
	CharOffset     int     `json:"char_offset"`
}
