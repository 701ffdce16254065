package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// KnownGates pre-registers gate cameras so dev heartbeats come back
	// as known.
	KnownGates []string
}

// SeedDev inserts a minimal dev dataset: one student with the canonical
// test plate, an active annual subscription and slot A-07. Idempotent.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC()
	nowMs := now.UnixMilli()
	start := now.AddDate(0, 0, -30).Format(time.DateOnly)
	end := now.AddDate(1, 0, 0).Format(time.DateOnly)

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO users(id, email, full_name, role, is_active, created_at_ms, updated_at_ms)
VALUES (1, 'etudiant@univ.tn', 'Étudiant Test', 'STUDENT', 1, ?, ?);`, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO vehicles(user_id, plate, make, model, color, created_at_ms)
VALUES (1, '176 تونس 7413', 'Peugeot', '208', 'Blanc', ?);`, nowMs); err != nil {
		return fmt.Errorf("seed vehicle: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO subscriptions(id, user_id, subscription_type, start_date, end_date, is_active, created_at_ms, updated_at_ms)
VALUES (1, 1, 'ANNUEL', ?, ?, 1, ?, ?);`, start, end, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed subscription: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO slots(id, code, zone, is_available, created_at_ms)
VALUES (1, 'A-07', 'A', 0, ?);`, nowMs); err != nil {
		return fmt.Errorf("seed slot: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO slot_assignments(id, user_id, slot_id, is_active, assigned_at_ms)
VALUES (1, 1, 1, 1, ?);`, nowMs); err != nil {
		return fmt.Errorf("seed slot assignment: %w", err)
	}

	for _, gateID := range opt.KnownGates {
		if gateID == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, `
INSERT INTO gates(gate_id, display_name, enabled, created_at_ms, updated_at_ms)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(gate_id) DO UPDATE SET
  enabled = 1,
  updated_at_ms = excluded.updated_at_ms;`, gateID, gateID, nowMs, nowMs); err != nil {
			return fmt.Errorf("seed gate %s: %w", gateID, err)
		}
	}

	return nil
}
