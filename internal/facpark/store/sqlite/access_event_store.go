package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/mkraiem/facpark/server/internal/db"
	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

type AccessEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessEventStore(db *sql.DB, writer *dbpkg.Worker) *AccessEventStore {
	return &AccessEventStore{db: db, writer: writer}
}

func (s *AccessEventStore) RecordEvent(ctx context.Context, rec store.AccessEventRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	createdMs := rec.CreatedAt.UTC().UnixMilli()

	var ownerID any
	if rec.OwnerID != nil {
		ownerID = *rec.OwnerID
	}
	var checkedBy any
	if rec.CheckedBy != nil {
		checkedBy = *rec.CheckedBy
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  raw_plate, plate, decision, ref_code, message,
  user_id, checked_by, origin, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.RawPlate, rec.Plate, rec.Decision, rec.RefCode, rec.Message,
			ownerID, checkedBy, rec.Origin, createdMs,
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}

func (s *AccessEventStore) ListRecent(ctx context.Context, limit int) ([]store.AccessEventRecord, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT raw_plate, plate, decision, ref_code, COALESCE(message,''),
       user_id, checked_by, COALESCE(origin,''), created_at_ms
FROM access_events
ORDER BY created_at_ms DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecent query: %w", err)
	}
	defer rows.Close()

	var out []store.AccessEventRecord
	for rows.Next() {
		var rec store.AccessEventRecord
		var ownerID, checkedBy sql.NullInt64
		var createdMs int64
		if err := rows.Scan(
			&rec.RawPlate, &rec.Plate, &rec.Decision, &rec.RefCode, &rec.Message,
			&ownerID, &checkedBy, &rec.Origin, &createdMs,
		); err != nil {
			return nil, fmt.Errorf("ListRecent scan: %w", err)
		}
		if ownerID.Valid {
			v := ownerID.Int64
			rec.OwnerID = &v
		}
		if checkedBy.Valid {
			v := checkedBy.Int64
			rec.CheckedBy = &v
		}
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecent rows: %w", err)
	}
	return out, nil
}
