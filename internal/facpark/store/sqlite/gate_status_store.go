package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/mkraiem/facpark/server/internal/db"
	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

type GateStatusStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewGateStatusStore(db *sql.DB, writer *dbpkg.Worker) *GateStatusStore {
	return &GateStatusStore{db: db, writer: writer}
}

func (s *GateStatusStore) UpsertStatus(ctx context.Context, gateID string, rec store.GateStatusRecord) error {
	gateID = strings.TrimSpace(gateID)
	if gateID == "" {
		return nil
	}

	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	recvMs := rec.ReceivedAt.UTC().UnixMilli()

	fw := strings.TrimSpace(rec.Request.FirmwareVersion)
	ip := strings.TrimSpace(rec.Request.IP)

	var uptimeMs any
	if rec.Request.UptimeSeconds != 0 {
		uptimeMs = int64(rec.Request.UptimeSeconds) * 1000
	}

	var barrierClosed any
	if rec.Request.BarrierClosed != nil {
		if *rec.Request.BarrierClosed {
			barrierClosed = 1
		} else {
			barrierClosed = 0
		}
	}

	// The camera reports its last plate read as an RFC 3339 timestamp;
	// an unparseable value stays NULL rather than failing the heartbeat.
	var lastReadMs any
	if s := strings.TrimSpace(rec.Request.LastPlateReadAt); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			lastReadMs = t.UTC().UnixMilli()
		}
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureGate(ctx, tx, gateID, recvMs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO gate_status(
  gate_id, received_at_ms, fw_version, uptime_ms, barrier_closed, last_plate_read_at_ms, ip
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(gate_id) DO UPDATE SET
  received_at_ms        = excluded.received_at_ms,
  fw_version            = excluded.fw_version,
  uptime_ms             = excluded.uptime_ms,
  barrier_closed        = excluded.barrier_closed,
  last_plate_read_at_ms = excluded.last_plate_read_at_ms,
  ip                    = excluded.ip;
`, gateID, recvMs, fw, uptimeMs, barrierClosed, lastReadMs, ip); err != nil {
			return fmt.Errorf("UpsertStatus insert: %w", err)
		}
		return nil
	})
}

// PruneOlderThan deletes status rows whose received_at_ms is before the
// cutoff. Returns the number of rows deleted.
func (s *GateStatusStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM gate_status
WHERE received_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
