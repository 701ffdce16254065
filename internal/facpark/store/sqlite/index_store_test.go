package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
	sqlitestore "github.com/mkraiem/facpark/server/internal/facpark/store/sqlite"
)

func testArtifacts(buildID string) store.IndexArtifacts {
	return store.IndexArtifacts{
		BuildID:   buildID,
		Model:     "nomic-embed-text",
		Dimension: 3,
		BuiltAt:   time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		Chunks: []store.ChunkRecord{
			{Ord: 0, ChunkID: "reglement_Article 1", Source: "reglement", Article: "Article 1", Content: "Accès réservé aux abonnés.", EndChar: 26},
			{Ord: 1, ChunkID: "reglement_Article 2", Source: "reglement", Article: "Article 2", Content: "Ouvert de 7h à 22h.", StartChar: 26, EndChar: 45},
		},
		Vectors: [][]float32{
			{1, 0, 0.5},
			{0, 1, -0.25},
		},
		Postings: []store.TermPosting{
			{Ord: 0, Term: "accès", TF: 1},
			{Ord: 0, Term: "abonnés", TF: 1},
			{Ord: 1, Term: "ouvert", TF: 1},
		},
	}
}

// ── Round trip ───────────────────────────────────────────────────────────────

func TestIndexStore_RoundTrip(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	is := sqlitestore.NewIndexStore(conn, w)
	ctx := context.Background()

	want := testArtifacts("build-1")
	if err := is.ReplaceIndex(ctx, want); err != nil {
		t.Fatalf("ReplaceIndex: %v", err)
	}

	got, err := is.LoadIndex(ctx)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}

	if got.BuildID != "build-1" || got.Model != "nomic-embed-text" || got.Dimension != 3 {
		t.Errorf("meta mismatch: %+v", got)
	}
	if !got.BuiltAt.Equal(want.BuiltAt) {
		t.Errorf("expected built_at %s, got %s", want.BuiltAt, got.BuiltAt)
	}
	if len(got.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got.Chunks))
	}
	for i := range want.Chunks {
		if got.Chunks[i] != want.Chunks[i] {
			t.Errorf("chunk %d mismatch: %+v vs %+v", i, got.Chunks[i], want.Chunks[i])
		}
	}
	if len(got.Vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(got.Vectors))
	}
	for i, vec := range want.Vectors {
		for j, v := range vec {
			if got.Vectors[i][j] != v {
				t.Errorf("vector[%d][%d]: expected %f, got %f", i, j, v, got.Vectors[i][j])
			}
		}
	}
	if len(got.Postings) != 3 {
		t.Errorf("expected 3 postings, got %d", len(got.Postings))
	}
}

// ── Replacement semantics ────────────────────────────────────────────────────

func TestIndexStore_ReplaceDropsPreviousBuild(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	is := sqlitestore.NewIndexStore(conn, w)
	ctx := context.Background()

	if err := is.ReplaceIndex(ctx, testArtifacts("build-1")); err != nil {
		t.Fatalf("first ReplaceIndex: %v", err)
	}

	next := store.IndexArtifacts{
		BuildID:   "build-2",
		Model:     "nomic-embed-text",
		Dimension: 3,
		Chunks: []store.ChunkRecord{
			{Ord: 0, ChunkID: "note_full", Source: "note", Article: "Document", Content: "Texte.", EndChar: 6},
		},
		Vectors:  [][]float32{{0, 0, 1}},
		Postings: []store.TermPosting{{Ord: 0, Term: "texte", TF: 1}},
	}
	if err := is.ReplaceIndex(ctx, next); err != nil {
		t.Fatalf("second ReplaceIndex: %v", err)
	}

	got, err := is.LoadIndex(ctx)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if got.BuildID != "build-2" {
		t.Errorf("expected build-2, got %s", got.BuildID)
	}
	if len(got.Chunks) != 1 || len(got.Vectors) != 1 || len(got.Postings) != 1 {
		t.Errorf("old build leaked: %d chunks, %d vectors, %d postings",
			len(got.Chunks), len(got.Vectors), len(got.Postings))
	}
}

func TestIndexStore_MismatchedVectorsRejected(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	is := sqlitestore.NewIndexStore(conn, w)

	art := testArtifacts("bad")
	art.Vectors = art.Vectors[:1]
	if err := is.ReplaceIndex(context.Background(), art); err == nil {
		t.Fatal("expected an error for mismatched chunk/vector counts")
	}
}

// ── Empty store ──────────────────────────────────────────────────────────────

func TestIndexStore_LoadBeforeIngest(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	is := sqlitestore.NewIndexStore(conn, w)

	_, err := is.LoadIndex(context.Background())
	if !errors.Is(err, store.ErrIndexNotInitialized) {
		t.Fatalf("expected ErrIndexNotInitialized, got %v", err)
	}
}
