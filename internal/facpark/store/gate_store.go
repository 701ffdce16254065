package store

import (
	"context"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/types"
)

type GateRecord struct {
	GateID   string
	Known    bool
	LastSeen time.Time
}

// GateStore tracks the ALPR cameras allowed to talk to this server. Gate
// identity is observability only — it never feeds the decision chain.
type GateStore interface {
	IsKnown(ctx context.Context, gateID string) (bool, error)
	MarkSeen(ctx context.Context, gateID string, known bool, t time.Time) error
}

type GateStatusRecord struct {
	ReceivedAt time.Time
	Request    types.GateHeartbeatRequest
}

type GateStatusStore interface {
	UpsertStatus(ctx context.Context, gateID string, rec GateStatusRecord) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
