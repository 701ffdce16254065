package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	dbpkg "github.com/mkraiem/facpark/server/internal/db"
	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

type IndexStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewIndexStore(db *sql.DB, writer *dbpkg.Worker) *IndexStore {
	return &IndexStore{db: db, writer: writer}
}

// ReplaceIndex swaps the persisted index for a new build in one transaction.
// A concurrent LoadIndex sees the old build or the new one, never a mix.
func (s *IndexStore) ReplaceIndex(ctx context.Context, art store.IndexArtifacts) error {
	if len(art.Vectors) != len(art.Chunks) {
		return fmt.Errorf("ReplaceIndex: %d chunks but %d vectors", len(art.Chunks), len(art.Vectors))
	}
	if art.BuiltAt.IsZero() {
		art.BuiltAt = time.Now().UTC()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, table := range []string{"chunk_terms", "chunk_vectors", "chunks", "index_meta"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+";"); err != nil {
				return fmt.Errorf("ReplaceIndex clear %s: %w", table, err)
			}
		}

		meta := map[string]string{
			"build_id":  art.BuildID,
			"model":     art.Model,
			"dimension": strconv.Itoa(art.Dimension),
			"built_at":  strconv.FormatInt(art.BuiltAt.UTC().UnixMilli(), 10),
		}
		for k, v := range meta {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO index_meta(key, value) VALUES (?, ?);
`, k, v); err != nil {
				return fmt.Errorf("ReplaceIndex meta %s: %w", k, err)
			}
		}

		for i, c := range art.Chunks {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO chunks(ord, chunk_id, source, article, content, start_char, end_char)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, c.Ord, c.ChunkID, c.Source, c.Article, c.Content, c.StartChar, c.EndChar); err != nil {
				return fmt.Errorf("ReplaceIndex chunk %d: %w", c.Ord, err)
			}

			if _, err := tx.ExecContext(ctx, `
INSERT INTO chunk_vectors(ord, vector) VALUES (?, ?);
`, c.Ord, encodeVector(art.Vectors[i])); err != nil {
				return fmt.Errorf("ReplaceIndex vector %d: %w", c.Ord, err)
			}
		}

		for _, p := range art.Postings {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO chunk_terms(ord, term, tf) VALUES (?, ?, ?);
`, p.Ord, p.Term, p.TF); err != nil {
				return fmt.Errorf("ReplaceIndex posting (%d,%q): %w", p.Ord, p.Term, err)
			}
		}

		return nil
	})
}

func (s *IndexStore) LoadIndex(ctx context.Context) (store.IndexArtifacts, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return store.IndexArtifacts{}, fmt.Errorf("LoadIndex begin: %w", err)
	}
	defer tx.Rollback()

	var art store.IndexArtifacts

	rows, err := tx.QueryContext(ctx, `SELECT key, value FROM index_meta;`)
	if err != nil {
		return store.IndexArtifacts{}, fmt.Errorf("LoadIndex meta: %w", err)
	}
	metaCount := 0
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return store.IndexArtifacts{}, fmt.Errorf("LoadIndex meta scan: %w", err)
		}
		metaCount++
		switch k {
		case "build_id":
			art.BuildID = v
		case "model":
			art.Model = v
		case "dimension":
			art.Dimension, _ = strconv.Atoi(v)
		case "built_at":
			ms, _ := strconv.ParseInt(v, 10, 64)
			art.BuiltAt = time.UnixMilli(ms).UTC()
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return store.IndexArtifacts{}, fmt.Errorf("LoadIndex meta rows: %w", err)
	}
	rows.Close()
	if metaCount == 0 {
		return store.IndexArtifacts{}, store.ErrIndexNotInitialized
	}

	rows, err = tx.QueryContext(ctx, `
SELECT c.ord, c.chunk_id, c.source, c.article, c.content, c.start_char, c.end_char, v.vector
FROM chunks c
JOIN chunk_vectors v ON v.ord = c.ord
ORDER BY c.ord;
`)
	if err != nil {
		return store.IndexArtifacts{}, fmt.Errorf("LoadIndex chunks: %w", err)
	}
	for rows.Next() {
		var c store.ChunkRecord
		var blob []byte
		if err := rows.Scan(&c.Ord, &c.ChunkID, &c.Source, &c.Article, &c.Content, &c.StartChar, &c.EndChar, &blob); err != nil {
			rows.Close()
			return store.IndexArtifacts{}, fmt.Errorf("LoadIndex chunk scan: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			rows.Close()
			return store.IndexArtifacts{}, fmt.Errorf("LoadIndex vector ord=%d: %w", c.Ord, err)
		}
		art.Chunks = append(art.Chunks, c)
		art.Vectors = append(art.Vectors, vec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return store.IndexArtifacts{}, fmt.Errorf("LoadIndex chunk rows: %w", err)
	}
	rows.Close()

	if len(art.Chunks) == 0 {
		return store.IndexArtifacts{}, store.ErrIndexNotInitialized
	}

	rows, err = tx.QueryContext(ctx, `
SELECT ord, term, tf FROM chunk_terms ORDER BY ord, term;
`)
	if err != nil {
		return store.IndexArtifacts{}, fmt.Errorf("LoadIndex postings: %w", err)
	}
	for rows.Next() {
		var p store.TermPosting
		if err := rows.Scan(&p.Ord, &p.Term, &p.TF); err != nil {
			rows.Close()
			return store.IndexArtifacts{}, fmt.Errorf("LoadIndex posting scan: %w", err)
		}
		art.Postings = append(art.Postings, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return store.IndexArtifacts{}, fmt.Errorf("LoadIndex posting rows: %w", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return store.IndexArtifacts{}, fmt.Errorf("LoadIndex commit: %w", err)
	}
	return art, nil
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
