package types

type RegulationQueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Citation describes where a context passage came from. The map key is the
// in-text tag (e.g. "[[CIT_1]]") the generative layer is allowed to emit.
type Citation struct {
	Source  string `json:"source"`
	Article string `json:"article"`
	ChunkID string `json:"chunk_id"`
	Excerpt string `json:"excerpt"`
}

type RetrievedChunk struct {
	ChunkID string  `json:"chunk_id"`
	Article string  `json:"article"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type RegulationQueryResponse struct {
	ContextFound bool                `json:"context_found"`
	Context      string              `json:"context,omitempty"`
	Citations    map[string]Citation `json:"citations,omitempty"`
	Retrieved    []RetrievedChunk    `json:"retrieved_chunks,omitempty"`
	// Answer carries the fixed refusal message when no context was found.
	Answer string `json:"answer,omitempty"`
}
