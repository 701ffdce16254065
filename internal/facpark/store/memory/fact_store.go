package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

// FactStore is an in-memory world state for tests and dev environments.
// Mutators are test helpers; the Decision Engine only ever reads.
type FactStore struct {
	mu            sync.RWMutex
	owners        map[int64]store.Owner
	vehicles      map[string]store.Vehicle // keyed by canonical plate
	subscriptions map[int64]store.Subscription
	slots         map[int64]store.SlotAssignment
	suspensions   []store.Suspension

	// Err, when set, is returned by FactsForPlate. Lets tests exercise the
	// fail-closed path.
	Err error
}

func NewFactStore() *FactStore {
	return &FactStore{
		owners:        make(map[int64]store.Owner),
		vehicles:      make(map[string]store.Vehicle),
		subscriptions: make(map[int64]store.Subscription),
		slots:         make(map[int64]store.SlotAssignment),
	}
}

func (s *FactStore) PutOwner(o store.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[o.ID] = o
}

func (s *FactStore) PutVehicle(v store.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.Plate] = v
}

func (s *FactStore) PutSubscription(sub store.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.OwnerID] = sub
}

func (s *FactStore) PutSlot(sa store.SlotAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[sa.OwnerID] = sa
}

func (s *FactStore) AddSuspension(sp store.Suspension) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspensions = append(s.suspensions, sp)
}

func (s *FactStore) FactsForPlate(_ context.Context, plate string, asOf time.Time) (store.PlateFacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Err != nil {
		return store.PlateFacts{}, s.Err
	}

	var facts store.PlateFacts

	v, ok := s.vehicles[plate]
	if !ok {
		return facts, nil
	}
	facts.Vehicle = &v

	if o, ok := s.owners[v.OwnerID]; ok {
		facts.Owner = &o
	}

	day := civil(asOf)
	for _, sp := range s.suspensions {
		if sp.OwnerID != v.OwnerID {
			continue
		}
		if !day.Before(civil(sp.StartDate)) && !day.After(civil(sp.EndDate)) {
			spCopy := sp
			facts.Suspension = &spCopy
			break
		}
	}

	if sub, ok := s.subscriptions[v.OwnerID]; ok && sub.Active {
		facts.Subscription = &sub
	}
	if sa, ok := s.slots[v.OwnerID]; ok && sa.Active {
		facts.Slot = &sa
	}

	return facts, nil
}

// civil strips the time-of-day component for date-interval comparisons.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
