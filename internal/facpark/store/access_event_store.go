package store

import (
	"context"
	"time"
)

// AccessEventRecord captures a single Decision Engine invocation for the
// audit log. One row per evaluation, on every branch including system
// errors. Rows are never updated or deleted.
type AccessEventRecord struct {
	RawPlate  string
	Plate     string // canonical plate used for lookup
	Decision  string
	RefCode   string
	Message   string
	OwnerID   *int64 // resolved owner, if lookup got that far
	CheckedBy *int64 // actor who triggered the check
	Origin    string // gate id or other origin tag
	CreatedAt time.Time
}

// AccessEventStore persists access decisions as an append-only audit log.
type AccessEventStore interface {
	RecordEvent(ctx context.Context, rec AccessEventRecord) error
	ListRecent(ctx context.Context, limit int) ([]AccessEventRecord, error)
}
