package store

import (
	"context"
	"time"
)

type Owner struct {
	ID       int64
	FullName string
	Active   bool
}

type Vehicle struct {
	ID      int64
	OwnerID int64
	Plate   string // canonical form, unique
	Make    string
	Model   string
	Color   string
}

type Subscription struct {
	ID        int64
	OwnerID   int64
	Type      string // MENSUEL | SEMESTRIEL | ANNUEL
	StartDate time.Time
	EndDate   time.Time
	Active    bool
}

type SlotAssignment struct {
	ID       int64
	OwnerID  int64
	SlotID   int64
	SlotCode string
	Active   bool
}

type Suspension struct {
	ID        int64
	OwnerID   int64
	Reason    string
	StartDate time.Time
	EndDate   time.Time
}

// PlateFacts is everything the Decision Engine needs to know about one
// plate, read at a single point in time. Nil fields mean "no such row".
type PlateFacts struct {
	Vehicle      *Vehicle
	Owner        *Owner
	Suspension   *Suspension   // suspension in effect on the asOf date, if any
	Subscription *Subscription // active subscription, if any
	Slot         *SlotAssignment
}

// FactStore reads the world state for one plate. Implementations must read
// every row inside a single transaction so concurrent renewals or slot
// reassignments can never produce a mixed snapshot.
type FactStore interface {
	FactsForPlate(ctx context.Context, plate string, asOf time.Time) (PlateFacts, error)
}
