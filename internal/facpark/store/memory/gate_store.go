package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

type GateStore struct {
	mu    sync.RWMutex
	known map[string]struct{}
	seen  map[string]time.Time
}

func NewGateStore(knownGates []string) *GateStore {
	k := make(map[string]struct{}, len(knownGates))
	for _, g := range knownGates {
		g = strings.TrimSpace(g)
		if g != "" {
			k[g] = struct{}{}
		}
	}
	return &GateStore{
		known: k,
		seen:  make(map[string]time.Time),
	}
}

func (s *GateStore) IsKnown(_ context.Context, gateID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[gateID]
	return ok, nil
}

func (s *GateStore) MarkSeen(_ context.Context, gateID string, _ bool, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[gateID] = t
	return nil
}

// GateStatusStore keeps the latest heartbeat per gate in memory.
type GateStatusStore struct {
	mu   sync.RWMutex
	data map[string]store.GateStatusRecord
}

func NewGateStatusStore() *GateStatusStore {
	return &GateStatusStore{
		data: make(map[string]store.GateStatusRecord),
	}
}

func (s *GateStatusStore) UpsertStatus(_ context.Context, gateID string, rec store.GateStatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	s.data[gateID] = rec
	return nil
}

func (s *GateStatusStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, rec := range s.data {
		if rec.ReceivedAt.Before(cutoff) {
			delete(s.data, id)
			deleted++
		}
	}
	return deleted, nil
}

// Status returns the latest record for a gate. Test-only helper.
func (s *GateStatusStore) Status(gateID string) (store.GateStatusRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[gateID]
	return rec, ok
}
