package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ensureGate guarantees a gates row exists for the given gateID so the
// gate_status foreign key holds. Unknown gates start disabled — only an
// admin action (or the dev seeder) flips enabled on.
//
// Must be called inside an existing transaction.
func ensureGate(ctx context.Context, tx *sql.Tx, gateID string, nowMs int64) error {
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO gates(
  gate_id, enabled, created_at_ms, updated_at_ms
) VALUES (?, 0, ?, ?);
`, gateID, nowMs, nowMs); err != nil {
		return fmt.Errorf("ensureGate %s: %w", gateID, err)
	}
	return nil
}
