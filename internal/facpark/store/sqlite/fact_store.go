package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

type FactStore struct {
	db *sql.DB
}

func NewFactStore(db *sql.DB) *FactStore {
	return &FactStore{db: db}
}

// FactsForPlate reads every fact the decision chain needs inside a single
// read transaction, so a renewal or slot reassignment committing mid-read
// can never produce a mixed snapshot.
func (s *FactStore) FactsForPlate(ctx context.Context, plate string, asOf time.Time) (store.PlateFacts, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return store.PlateFacts{}, nil
	}
	asOfDate := asOf.UTC().Format(time.DateOnly)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return store.PlateFacts{}, fmt.Errorf("FactsForPlate begin: %w", err)
	}
	defer tx.Rollback()

	var facts store.PlateFacts

	var v store.Vehicle
	err = tx.QueryRowContext(ctx, `
SELECT id, user_id, plate, COALESCE(make,''), COALESCE(model,''), COALESCE(color,'')
FROM vehicles
WHERE plate = ?;
`, plate).Scan(&v.ID, &v.OwnerID, &v.Plate, &v.Make, &v.Model, &v.Color)
	if err == sql.ErrNoRows {
		return facts, nil
	}
	if err != nil {
		return store.PlateFacts{}, fmt.Errorf("FactsForPlate vehicle: %w", err)
	}
	facts.Vehicle = &v

	var o store.Owner
	var active int
	err = tx.QueryRowContext(ctx, `
SELECT id, full_name, is_active
FROM users
WHERE id = ?;
`, v.OwnerID).Scan(&o.ID, &o.FullName, &active)
	if err != nil && err != sql.ErrNoRows {
		return store.PlateFacts{}, fmt.Errorf("FactsForPlate owner: %w", err)
	}
	if err == nil {
		o.Active = active == 1
		facts.Owner = &o
	}

	// Suspension in effect on the asOf date. Date columns are
	// 'YYYY-MM-DD' so string comparison is date comparison.
	var sus store.Suspension
	var susStart, susEnd string
	err = tx.QueryRowContext(ctx, `
SELECT id, user_id, reason, start_date, end_date
FROM suspensions
WHERE user_id = ? AND start_date <= ? AND end_date >= ?
ORDER BY end_date DESC
LIMIT 1;
`, v.OwnerID, asOfDate, asOfDate).Scan(&sus.ID, &sus.OwnerID, &sus.Reason, &susStart, &susEnd)
	if err != nil && err != sql.ErrNoRows {
		return store.PlateFacts{}, fmt.Errorf("FactsForPlate suspension: %w", err)
	}
	if err == nil {
		if sus.StartDate, err = parseDate(susStart); err != nil {
			return store.PlateFacts{}, fmt.Errorf("FactsForPlate suspension start: %w", err)
		}
		if sus.EndDate, err = parseDate(susEnd); err != nil {
			return store.PlateFacts{}, fmt.Errorf("FactsForPlate suspension end: %w", err)
		}
		facts.Suspension = &sus
	}

	var sub store.Subscription
	var subStart, subEnd string
	err = tx.QueryRowContext(ctx, `
SELECT id, user_id, subscription_type, start_date, end_date
FROM subscriptions
WHERE user_id = ? AND is_active = 1;
`, v.OwnerID).Scan(&sub.ID, &sub.OwnerID, &sub.Type, &subStart, &subEnd)
	if err != nil && err != sql.ErrNoRows {
		return store.PlateFacts{}, fmt.Errorf("FactsForPlate subscription: %w", err)
	}
	if err == nil {
		sub.Active = true
		if sub.StartDate, err = parseDate(subStart); err != nil {
			return store.PlateFacts{}, fmt.Errorf("FactsForPlate subscription start: %w", err)
		}
		if sub.EndDate, err = parseDate(subEnd); err != nil {
			return store.PlateFacts{}, fmt.Errorf("FactsForPlate subscription end: %w", err)
		}
		facts.Subscription = &sub
	}

	var sa store.SlotAssignment
	err = tx.QueryRowContext(ctx, `
SELECT sa.id, sa.user_id, sa.slot_id, s.code
FROM slot_assignments sa
JOIN slots s ON s.id = sa.slot_id
WHERE sa.user_id = ? AND sa.is_active = 1;
`, v.OwnerID).Scan(&sa.ID, &sa.OwnerID, &sa.SlotID, &sa.SlotCode)
	if err != nil && err != sql.ErrNoRows {
		return store.PlateFacts{}, fmt.Errorf("FactsForPlate slot: %w", err)
	}
	if err == nil {
		sa.Active = true
		facts.Slot = &sa
	}

	if err := tx.Commit(); err != nil {
		return store.PlateFacts{}, fmt.Errorf("FactsForPlate commit: %w", err)
	}
	return facts, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}
