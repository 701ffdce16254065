package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mkraiem/facpark/server/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database.  The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool
	// (important because sql.DB may close/reopen the underlying conn).
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	// Apply the same migrations as production.
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedStudent inserts a user with a registered plate, an active annual
// subscription and slot A-07, mirroring the dev seed.
func seedStudent(t *testing.T, conn *sql.DB, plate string) {
	t.Helper()
	ctx := context.Background()
	nowMs := time.Now().UTC().UnixMilli()

	mustExec(t, conn, ctx, `
INSERT INTO users(id, email, full_name, role, is_active, created_at_ms, updated_at_ms)
VALUES (1, 'etudiant@univ.tn', 'Étudiant Test', 'STUDENT', 1, ?, ?);`, nowMs, nowMs)

	mustExec(t, conn, ctx, `
INSERT INTO vehicles(id, user_id, plate, created_at_ms)
VALUES (1, 1, ?, ?);`, plate, nowMs)

	mustExec(t, conn, ctx, `
INSERT INTO subscriptions(id, user_id, subscription_type, start_date, end_date, is_active, created_at_ms, updated_at_ms)
VALUES (1, 1, 'ANNUEL', '2026-01-01', '2026-12-31', 1, ?, ?);`, nowMs, nowMs)

	mustExec(t, conn, ctx, `
INSERT INTO slots(id, code, zone, is_available, created_at_ms)
VALUES (1, 'A-07', 'A', 0, ?);`, nowMs)

	mustExec(t, conn, ctx, `
INSERT INTO slot_assignments(id, user_id, slot_id, is_active, assigned_at_ms)
VALUES (1, 1, 1, 1, ?);`, nowMs)
}

// seedGate inserts a gates row, enabled or not.
func seedGate(t *testing.T, conn *sql.DB, gateID string, enabled int) {
	t.Helper()
	nowMs := time.Now().UTC().UnixMilli()
	mustExec(t, conn, context.Background(), `
INSERT OR IGNORE INTO gates(gate_id, enabled, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?);`, gateID, enabled, nowMs, nowMs)
}

func mustExec(t *testing.T, conn *sql.DB, ctx context.Context, query string, args ...any) {
	t.Helper()
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		t.Fatalf("exec: %v\n%s", err, query)
	}
}
