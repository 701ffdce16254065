package store

import (
	"context"
	"errors"
	"time"
)

// ErrIndexNotInitialized signals that no retrieval index has been ingested
// yet. This is an operational setup problem, distinct from an empty result.
var ErrIndexNotInitialized = errors.New("retrieval index not initialized: run facpark-ingest first")

// ChunkRecord is one persisted retrieval unit. Ord is the positional key
// shared by the chunk metadata, its vector, and its term postings.
type ChunkRecord struct {
	Ord       int
	ChunkID   string
	Source    string
	Article   string
	Content   string
	StartChar int
	EndChar   int
}

// TermPosting is one (chunk, term, frequency) row of the lexical index.
type TermPosting struct {
	Ord  int
	Term string
	TF   int
}

// IndexArtifacts is the full persisted state of one index build: chunk
// metadata, semantic vectors, and lexical postings, all keyed by Ord.
type IndexArtifacts struct {
	BuildID   string
	Model     string
	Dimension int
	BuiltAt   time.Time
	Chunks    []ChunkRecord
	Vectors   [][]float32 // Vectors[i] belongs to Chunks[i]
	Postings  []TermPosting
}

// IndexStore persists index artifacts. Replace must be atomic: a concurrent
// Load sees either the previous build completely or the new one completely.
type IndexStore interface {
	ReplaceIndex(ctx context.Context, art IndexArtifacts) error
	LoadIndex(ctx context.Context) (IndexArtifacts, error)
}
