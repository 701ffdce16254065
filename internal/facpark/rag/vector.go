package rag

import (
	"math"
	"sort"
)

// vectorIndex is a brute-force cosine index over L2-normalized float32
// vectors. The corpus is one facility's regulation set, so exhaustive
// scoring stays well within budget and keeps rankings exact.
type vectorIndex struct {
	vectors [][]float32
	dim     int
}

func newVectorIndex(vectors [][]float32, dim int) *vectorIndex {
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = l2Normalize(v)
	}
	return &vectorIndex{vectors: normalized, dim: dim}
}

// Search returns up to limit chunk ordinals ranked by descending cosine
// similarity to query. Ties break by ascending ordinal.
func (ix *vectorIndex) Search(query []float32, limit int) []int {
	q := l2Normalize(query)

	scores := make([]float64, len(ix.vectors))
	for i, v := range ix.vectors {
		scores[i] = dot(q, v)
	}

	ords := make([]int, len(ix.vectors))
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

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
