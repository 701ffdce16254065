package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/mkraiem/facpark/server/internal/db"
)

type GateStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewGateStore(db *sql.DB, writer *dbpkg.Worker) *GateStore {
	return &GateStore{db: db, writer: writer}
}

// IsKnown: a gate is known when an admin (or the dev seeder) has enabled it.
func (s *GateStore) IsKnown(ctx context.Context, gateID string) (bool, error) {
	gateID = strings.TrimSpace(gateID)
	if gateID == "" {
		return false, nil
	}

	var enabled int
	err := s.db.QueryRowContext(ctx, `
SELECT enabled FROM gates WHERE gate_id = ?;
`, gateID).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsKnown query: %w", err)
	}
	return enabled == 1, nil
}

// MarkSeen: ensure the gate row exists (even if unknown) and update last_seen.
func (s *GateStore) MarkSeen(ctx context.Context, gateID string, _ bool, t time.Time) error {
	gateID = strings.TrimSpace(gateID)
	if gateID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureGate(ctx, tx, gateID, ms); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE gates
SET last_seen_at_ms = ?,
    updated_at_ms   = ?
WHERE gate_id = ?;
`, ms, ms, gateID); err != nil {
			return fmt.Errorf("MarkSeen update gate: %w", err)
		}
		return nil
	})
}
