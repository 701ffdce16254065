package rag

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

// RetrieverConfig carries the retrieval knobs. Candidate counts are
// independent from the caller's topK so the fuser always has material.
type RetrieverConfig struct {
	TopNVector     int     // semantic candidates per query (default 30)
	TopNLexical    int     // lexical candidates per query (default 30)
	RRFK           int     // reciprocal rank fusion constant (default 60)
	WeightVector   float64 // default 1.0
	WeightLexical  float64 // default 0.4, lexical noise dampening
	ScoreThreshold float64 // minimum fused score to ground on (default 0.001)
	DefaultTopK    int     // results when the caller does not ask (default 5)
}

func (c RetrieverConfig) withDefaults() RetrieverConfig {
	if c.TopNVector <= 0 {
		c.TopNVector = 30
	}
	if c.TopNLexical <= 0 {
		c.TopNLexical = 30
	}
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFK
	}
	if c.WeightVector <= 0 {
		c.WeightVector = 1.0
	}
	if c.WeightLexical <= 0 {
		c.WeightLexical = 0.4
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = 0.001
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = 5
	}
	return c
}

// snapshot is one immutable index generation: chunk metadata plus both
// indexes, swapped as a unit so readers never see a mixed pair.
type snapshot struct {
	buildID string
	chunks  []Chunk
	lexical *lexicalIndex
	vectors *vectorIndex
}

// Engine answers retrieval queries against the current index snapshot.
// Reload replaces the snapshot atomically; in-flight queries finish on the
// generation they started with.
type Engine struct {
	indexStore store.IndexStore
	embedder   Embedder
	cfg        RetrieverConfig
	logger     *log.Logger
	snap       atomic.Pointer[snapshot]
}

func NewEngine(is store.IndexStore, em Embedder, cfg RetrieverConfig, logger *log.Logger) *Engine {
	return &Engine{
		indexStore: is,
		embedder:   em,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}
}

// Reload loads the persisted artifacts and swaps them in as the new
// snapshot. Returns store.ErrIndexNotInitialized when nothing has been
// ingested yet.
func (e *Engine) Reload(ctx context.Context) error {
	art, err := e.indexStore.LoadIndex(ctx)
	if err != nil {
		return err
	}

	snap, err := buildSnapshot(art)
	if err != nil {
		return err
	}

	e.snap.Store(snap)
	e.logger.Printf("retrieval index loaded: build=%s chunks=%d model=%s",
		snap.buildID, len(snap.chunks), art.Model)
	return nil
}

// ChunkCount reports the size of the current snapshot; 0 when none loaded.
func (e *Engine) ChunkCount() int {
	if s := e.snap.Load(); s != nil {
		return len(s.chunks)
	}
	return 0
}

// Retrieve queries both indexes with the same normalized query, fuses the
// two rankings and returns the top topK results.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]RetrievalResult, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, store.ErrIndexNotInitialized
	}
	if topK < 1 {
		topK = 1
	}

	normalized := NormalizeQuery(query)
	if normalized == "" {
		return nil, nil
	}

	var (
		wg         sync.WaitGroup
		vecRanking []int
		lexRanking []int
		embedErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var qv []float32
		qv, embedErr = e.embedder.Embed(ctx, normalized)
		if embedErr != nil {
			return
		}
		vecRanking = snap.vectors.Search(qv, e.cfg.TopNVector)
	}()
	go func() {
		defer wg.Done()
		lexRanking = snap.lexical.Search(TokenizeForLexical(normalized), e.cfg.TopNLexical)
	}()
	wg.Wait()

	if embedErr != nil {
		return nil, fmt.Errorf("query embedding: %w", embedErr)
	}

	fused := FuseRankings(
		[][]int{vecRanking, lexRanking},
		[]float64{e.cfg.WeightVector, e.cfg.WeightLexical},
		e.cfg.RRFK,
	)

	results := make([]RetrievalResult, 0, topK)
	for _, s := range fused {
		if len(results) == topK {
			break
		}
		if s.ID < 0 || s.ID >= len(snap.chunks) {
			continue
		}
		results = append(results, RetrievalResult{
			Chunk: snap.chunks[s.ID],
			Score: s.Score,
			Rank:  len(results) + 1,
		})
	}
	return results, nil
}

func buildSnapshot(art store.IndexArtifacts) (*snapshot, error) {
	if len(art.Chunks) == 0 {
		return nil, store.ErrIndexNotInitialized
	}
	if len(art.Vectors) != len(art.Chunks) {
		return nil, fmt.Errorf("index artifacts inconsistent: %d chunks, %d vectors",
			len(art.Chunks), len(art.Vectors))
	}

	ordered := make([]store.ChunkRecord, len(art.Chunks))
	copy(ordered, art.Chunks)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Ord < ordered[b].Ord })

	chunks := make([]Chunk, len(ordered))
	for i, c := range ordered {
		chunks[i] = Chunk{
			ID:        c.ChunkID,
			Source:    c.Source,
			Article:   c.Article,
			Content:   c.Content,
			StartChar: c.StartChar,
			EndChar:   c.EndChar,
		}
	}

	return &snapshot{
		buildID: art.BuildID,
		chunks:  chunks,
		lexical: newLexicalIndex(len(chunks), art.Postings),
		vectors: newVectorIndex(art.Vectors, art.Dimension),
	}, nil
}

// BuildArtifacts assembles the persistable index state for one ingest run:
// chunk metadata, vectors, and the lexical postings derived from each
// chunk's token stream. Chunk ordinal i refers to chunks[i] everywhere.
func BuildArtifacts(chunks []Chunk, vectors [][]float32, model string, dimension int) (store.IndexArtifacts, error) {
	if len(chunks) != len(vectors) {
		return store.IndexArtifacts{}, fmt.Errorf("%d chunks but %d vectors", len(chunks), len(vectors))
	}

	art := store.IndexArtifacts{
		BuildID:   uuid.NewString(),
		Model:     model,
		Dimension: dimension,
		BuiltAt:   time.Now().UTC(),
		Chunks:    make([]store.ChunkRecord, len(chunks)),
		Vectors:   vectors,
	}

	for i, c := range chunks {
		art.Chunks[i] = store.ChunkRecord{
			Ord:       i,
			ChunkID:   c.ID,
			Source:    c.Source,
			Article:   c.Article,
			Content:   c.Content,
			StartChar: c.StartChar,
			EndChar:   c.EndChar,
		}

		tf := make(map[string]int)
		var order []string
		for _, tok := range TokenizeForLexical(c.Content) {
			if _, ok := tf[tok]; !ok {
				order = append(order, tok)
			}
			tf[tok]++
		}
		for _, term := range order {
			art.Postings = append(art.Postings, store.TermPosting{Ord: i, Term: term, TF: tf[term]})
		}
	}

	return art, nil
}
