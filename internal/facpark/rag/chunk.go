// Package rag implements the grounded retrieval engine: article-aligned
// chunking, a dual semantic+lexical index, weighted reciprocal rank fusion
// and the grounding gate that feeds the generative collaborator. Nothing in
// this package calls a generative model; it only produces verified text.
package rag

// Chunk is an immutable unit of indexed regulation text.
type Chunk struct {
	ID        string // stable, derived from (source, article)
	Source    string
	Article   string // article label, "Préambule", or "Document"
	Content   string
	StartChar int
	EndChar   int
}

// RetrievalResult is a transient (chunk, score, rank) triple.
type RetrievalResult struct {
	Chunk Chunk
	Score float64
	Rank  int // 1-based position in the fused ranking
}
