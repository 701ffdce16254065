package rag

import (
	"math"
	"sort"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// lexicalIndex scores chunks with Okapi BM25 over the persisted term
// postings. Built once per snapshot, read-only afterwards.
type lexicalIndex struct {
	postings map[string]map[int]int // term -> chunk ordinal -> tf
	docLen   []int
	avgdl    float64
	n        int
}

func newLexicalIndex(numChunks int, postings []store.TermPosting) *lexicalIndex {
	ix := &lexicalIndex{
		postings: make(map[string]map[int]int),
		docLen:   make([]int, numChunks),
		n:        numChunks,
	}

	total := 0
	for _, p := range postings {
		if p.Ord < 0 || p.Ord >= numChunks {
			continue
		}
		byOrd := ix.postings[p.Term]
		if byOrd == nil {
			byOrd = make(map[int]int)
			ix.postings[p.Term] = byOrd
		}
		byOrd[p.Ord] += p.TF
		ix.docLen[p.Ord] += p.TF
		total += p.TF
	}
	if numChunks > 0 {
		ix.avgdl = float64(total) / float64(numChunks)
	}

	return ix
}

// Search returns up to limit chunk ordinals ranked by descending BM25
// score. Ties break by ascending ordinal, i.e. document order.
func (ix *lexicalIndex) Search(tokens []string, limit int) []int {
	scores := make([]float64, ix.n)
	for _, term := range tokens {
		byOrd, ok := ix.postings[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (float64(ix.n)-float64(len(byOrd))+0.5)/(float64(len(byOrd))+0.5))
		for ord, tf := range byOrd {
			norm := 1 - bm25B + bm25B*float64(ix.docLen[ord])/ix.avgdl
			scores[ord] += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
		}
	}

	ords := make([]int, ix.n)
	for i := range ords {
		ords[i] = i
	}
	sort.SliceStable(ords, func(a, b int) bool {
		return scores[ords[a]] > scores[ords[b]]
	})

	if limit > 0 && limit < len(ords) {
		ords = ords[:limit]
	}
	return ords
}
