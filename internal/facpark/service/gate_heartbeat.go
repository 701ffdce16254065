package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
	"github.com/mkraiem/facpark/server/internal/facpark/types"
)

var ErrInvalidGateID = errors.New("gate_id is required")

// GateHeartbeatService records liveness pings from the gate cameras so
// operators can see which entrances are reachable.
type GateHeartbeatService struct {
	statusStore store.GateStatusStore
	registry    *GateRegistry
}

func NewGateHeartbeatService(ss store.GateStatusStore, reg *GateRegistry) *GateHeartbeatService {
	return &GateHeartbeatService{statusStore: ss, registry: reg}
}

func (s *GateHeartbeatService) Record(ctx context.Context, req types.GateHeartbeatRequest) (types.GateHeartbeatResponse, error) {
	gateID := strings.TrimSpace(req.GateID)
	if gateID == "" {
		return types.GateHeartbeatResponse{}, ErrInvalidGateID
	}

	known, err := s.registry.IsKnown(ctx, gateID)
	if err != nil {
		return types.GateHeartbeatResponse{}, err
	}
	_ = s.registry.NoteSeen(ctx, gateID, known)

	rec := store.GateStatusRecord{
		ReceivedAt: time.Now().UTC(),
		Request:    req,
	}

	if err := s.statusStore.UpsertStatus(ctx, gateID, rec); err != nil {
		return types.GateHeartbeatResponse{}, err
	}

	return types.GateHeartbeatResponse{
		OK:         true,
		Known:      known,
		GateID:     gateID,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}
