package rag

import (
	"testing"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

func postingsFor(docs []string) []store.TermPosting {
	var out []store.TermPosting
	for ord, doc := range docs {
		tf := make(map[string]int)
		var order []string
		for _, tok := range TokenizeForLexical(doc) {
			if _, ok := tf[tok]; !ok {
				order = append(order, tok)
			}
			tf[tok]++
		}
		for _, term := range order {
			out = append(out, store.TermPosting{Ord: ord, Term: term, TF: tf[term]})
		}
	}
	return out
}

func TestLexicalIndex_RanksMatchingDocFirst(t *testing.T) {
	docs := []string{
		"le parking est ouvert du lundi au samedi",
		"les abonnements mensuels sont renouvelables en ligne",
		"toute suspension est notifiée par email",
	}
	ix := newLexicalIndex(len(docs), postingsFor(docs))

	got := ix.Search(TokenizeForLexical("abonnements mensuels renouvelables"), 3)
	if len(got) == 0 {
		t.Fatal("expected results")
	}
	if got[0] != 1 {
		t.Errorf("expected doc 1 first for subscription query, got %d", got[0])
	}
}

func TestLexicalIndex_RareTermOutweighsCommon(t *testing.T) {
	docs := []string{
		"parking parking parking règlement",
		"parking suspension",
		"parking règlement",
	}
	ix := newLexicalIndex(len(docs), postingsFor(docs))

	// "suspension" appears in one doc only; its idf should dominate the
	// ubiquitous "parking".
	got := ix.Search([]string{"parking", "suspension"}, 3)
	if got[0] != 1 {
		t.Errorf("expected the doc holding the rare term first, got %d", got[0])
	}
}

func TestLexicalIndex_NoMatchesKeepsDocumentOrder(t *testing.T) {
	docs := []string{"un", "deux", "trois"}
	ix := newLexicalIndex(len(docs), postingsFor(docs))

	got := ix.Search([]string{"absent"}, 3)
	for i, ord := range got {
		if ord != i {
			t.Errorf("position %d: expected ordinal %d (ties break in document order), got %d", i, i, ord)
		}
	}
}

func TestLexicalIndex_LimitApplied(t *testing.T) {
	docs := []string{"alpha beta", "alpha gamma", "alpha delta", "alpha epsilon"}
	ix := newLexicalIndex(len(docs), postingsFor(docs))

	got := ix.Search([]string{"alpha"}, 2)
	if len(got) != 2 {
		t.Errorf("expected 2 results, got %d", len(got))
	}
}

func TestVectorIndex_RanksNearestFirst(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	ix := newVectorIndex(vectors, 3)

	got := ix.Search([]float32{0.1, 0.9, 0}, 3)
	if got[0] != 1 {
		t.Errorf("expected ordinal 1 nearest, got %d", got[0])
	}
}

func TestVectorIndex_ScaleInvariant(t *testing.T) {
	vectors := [][]float32{
		{2, 0},
		{0, 5},
	}
	ix := newVectorIndex(vectors, 2)

	// Cosine over L2-normalized vectors ignores magnitude.
	a := ix.Search([]float32{1, 0}, 2)
	b := ix.Search([]float32{100, 0}, 2)
	if a[0] != b[0] {
		t.Errorf("expected magnitude-invariant ranking, got %d vs %d", a[0], b[0])
	}
	if a[0] != 0 {
		t.Errorf("expected ordinal 0 first, got %d", a[0])
	}
}
