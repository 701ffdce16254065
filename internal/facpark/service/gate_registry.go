package service

import (
	"context"
	"strings"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

// GateRegistry tracks which ALPR gate cameras are provisioned. Whether a
// gate is known is reported back to it and recorded for operators, but it
// never feeds the access rule chain — the chain's precedence is fixed.
type GateRegistry struct {
	store store.GateStore
}

func NewGateRegistry(st store.GateStore) *GateRegistry {
	return &GateRegistry{store: st}
}

func (r *GateRegistry) IsKnown(ctx context.Context, gateID string) (bool, error) {
	gateID = strings.TrimSpace(gateID)
	if gateID == "" {
		return false, nil
	}
	return r.store.IsKnown(ctx, gateID)
}

func (r *GateRegistry) NoteSeen(ctx context.Context, gateID string, known bool) error {
	gateID = strings.TrimSpace(gateID)
	if gateID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, gateID, known, time.Now().UTC())
}
