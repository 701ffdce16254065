package rag

import "sort"

// DefaultRRFK dampens the gap between rank 1 and rank 2; 60 is the value
// the retrieval literature and the deployed configuration both use.
const DefaultRRFK = 60

// ScoredID is one entry of a fused ranking.
type ScoredID struct {
	ID    int
	Score float64
}

// FuseRankings merges any number of ranked id lists into one ranking using
// weighted reciprocal rank fusion: an id at 1-based rank r in ranking i
// contributes weights[i]/(k+r); ids absent from a ranking contribute
// nothing from it. Output is sorted by descending score; ties break by the
// order in which ids were first seen, so the result is reproducible
// byte-for-byte across runs.
func FuseRankings(rankings [][]int, weights []float64, k int) []ScoredID {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := make(map[int]float64)
	firstSeen := make(map[int]int)
	var order []int

	for i, ranking := range rankings {
		weight := 1.0
		if i < len(weights) {
			weight = weights[i]
		}
		for rank, id := range ranking {
			if _, ok := firstSeen[id]; !ok {
				firstSeen[id] = len(order)
				order = append(order, id)
			}
			scores[id] += weight / float64(k+rank+1)
		}
	}

	fused := make([]ScoredID, 0, len(order))
	for _, id := range order {
		fused = append(fused, ScoredID{ID: id, Score: scores[id]})
	}
	sort.SliceStable(fused, func(a, b int) bool {
		return fused[a].Score > fused[b].Score
	})

	return fused
}
