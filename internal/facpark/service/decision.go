package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
	"github.com/mkraiem/facpark/server/internal/facpark/types"
)

// HoursPolicy is the operating window for the facility. DemoMode bypasses
// the hours rule entirely and must stay off in any environment whose
// decisions matter; the engine logs it loudly at construction.
type HoursPolicy struct {
	OpenDays  map[time.Weekday]struct{}
	OpenHour  int // inclusive
	CloseHour int // exclusive
	DemoMode  bool
}

// Within reports whether t falls inside the operating window.
func (p HoursPolicy) Within(t time.Time) bool {
	if p.DemoMode {
		return true
	}
	if _, ok := p.OpenDays[t.Weekday()]; !ok {
		return false
	}
	return p.OpenHour <= t.Hour() && t.Hour() < p.CloseHour
}

// outcome is the tagged result of one rule: which decision fires and what
// gets attached to it.
type outcome struct {
	decision         string
	refCode          string
	message          string
	ownerID          *int64
	slotCode         string
	subscriptionType string
	expiresAt        string
}

// ruleInput is the immutable world snapshot a rule evaluates against.
type ruleInput struct {
	canonical string
	facts     store.PlateFacts
	now       time.Time
	hours     HoursPolicy
}

// accessRule is one predicate of the chain. A nil return means "pass,
// continue to the next rule". First match wins; slice order encodes
// precedence.
type accessRule struct {
	name string
	eval func(in ruleInput) *outcome
}

var accessRules = []accessRule{
	{
		name: "plate_registered",
		eval: func(in ruleInput) *outcome {
			if in.facts.Vehicle != nil {
				return nil
			}
			return &outcome{
				decision: types.DecisionDeny,
				refCode:  types.RefPlateNotRegistered,
				message:  fmt.Sprintf("Plaque '%s' non enregistrée.", in.canonical),
			}
		},
	},
	{
		name: "owner_active",
		eval: func(in ruleInput) *outcome {
			if in.facts.Owner.Active {
				return nil
			}
			return &outcome{
				decision: types.DecisionDeny,
				refCode:  types.RefStudentSuspended,
				message:  "Compte désactivé.",
				ownerID:  &in.facts.Owner.ID,
			}
		},
	},
	{
		name: "no_suspension_in_effect",
		eval: func(in ruleInput) *outcome {
			sp := in.facts.Suspension
			if sp == nil {
				return nil
			}
			return &outcome{
				decision: types.DecisionDeny,
				refCode:  types.RefStudentSuspended,
				message:  fmt.Sprintf("Suspendu jusqu'au %s. Raison: %s", sp.EndDate.Format(time.DateOnly), sp.Reason),
				ownerID:  &in.facts.Owner.ID,
			}
		},
	},
	{
		name: "subscription_exists",
		eval: func(in ruleInput) *outcome {
			if in.facts.Subscription != nil {
				return nil
			}
			return &outcome{
				decision: types.DecisionDeny,
				refCode:  types.RefNoActiveSubscription,
				message:  "Aucun abonnement actif.",
				ownerID:  &in.facts.Owner.ID,
			}
		},
	},
	{
		name: "subscription_not_expired",
		eval: func(in ruleInput) *outcome {
			sub := in.facts.Subscription
			if !civilDate(in.now).After(civilDate(sub.EndDate)) {
				return nil
			}
			return &outcome{
				decision: types.DecisionDeny,
				refCode:  types.RefSubscriptionExpired,
				message:  fmt.Sprintf("Abonnement expiré le %s.", sub.EndDate.Format(time.DateOnly)),
				ownerID:  &in.facts.Owner.ID,
			}
		},
	},
	{
		name: "slot_assigned",
		eval: func(in ruleInput) *outcome {
			if in.facts.Slot != nil {
				return nil
			}
			return &outcome{
				decision: types.DecisionDeny,
				refCode:  types.RefNoSlotAssigned,
				message:  "Aucune place attribuée.",
				ownerID:  &in.facts.Owner.ID,
			}
		},
	},
	{
		name: "within_hours",
		eval: func(in ruleInput) *outcome {
			if in.hours.Within(in.now) {
				return nil
			}
			return &outcome{
				decision: types.DecisionDeny,
				refCode:  types.RefOutsideHours,
				message:  fmt.Sprintf("Hors horaires (%dh-%dh).", in.hours.OpenHour, in.hours.CloseHour),
				ownerID:  &in.facts.Owner.ID,
			}
		},
	},
	{
		name: "allow",
		eval: func(in ruleInput) *outcome {
			sub := in.facts.Subscription
			slot := in.facts.Slot
			return &outcome{
				decision:         types.DecisionAllow,
				refCode:          types.RefAllow,
				message:          fmt.Sprintf("Accès autorisé. Place: %s", slot.SlotCode),
				ownerID:          &in.facts.Owner.ID,
				slotCode:         slot.SlotCode,
				subscriptionType: sub.Type,
				expiresAt:        sub.EndDate.Format(time.DateOnly),
			}
		},
	},
}

// DecisionEngine is the only component that classifies a plate as
// ALLOW/DENY. It is read-only over all entities except the access-event
// log, holds no state between calls, and never caches decisions.
type DecisionEngine struct {
	facts  store.FactStore
	events store.AccessEventStore
	hours  HoursPolicy
	logger *log.Logger
	nowFn  func() time.Time
}

func NewDecisionEngine(facts store.FactStore, events store.AccessEventStore, hours HoursPolicy, logger *log.Logger) *DecisionEngine {
	if hours.DemoMode {
		logger.Printf("WARNING: demo mode is ON — the operating-hours rule is bypassed; turn FACPARK_DEMO_MODE off in production")
	}
	return &DecisionEngine{
		facts:  facts,
		events: events,
		hours:  hours,
		logger: logger,
		nowFn:  time.Now,
	}
}

// SetClock overrides the engine's clock. Test-only.
func (e *DecisionEngine) SetClock(now func() time.Time) { e.nowFn = now }

// Evaluate runs the rule chain for one plate and appends exactly one
// access event before returning, on every branch. It never returns an
// error: any internal fault becomes DENY/SYSTEM_ERROR (fail-closed).
func (e *DecisionEngine) Evaluate(ctx context.Context, plate string, actorID *int64, origin string) types.DecisionResult {
	now := e.nowFn()
	canonical := NormalizePlate(plate)

	out := e.run(ctx, canonical, now)

	rec := store.AccessEventRecord{
		RawPlate:  plate,
		Plate:     canonical,
		Decision:  out.decision,
		RefCode:   out.refCode,
		Message:   out.message,
		OwnerID:   out.ownerID,
		CheckedBy: actorID,
		Origin:    origin,
		CreatedAt: now.UTC(),
	}
	if err := e.events.RecordEvent(ctx, rec); err != nil {
		// An unauditable decision is not a decision. Fail closed rather
		// than grant access that left no trace.
		e.logger.Printf("access event write failed for '%s': %v", canonical, err)
		out = systemError()
	}

	if out.decision == types.DecisionAllow {
		e.logger.Printf("access ALLOW for '%s' - %s: %s", canonical, out.refCode, out.message)
	} else {
		e.logger.Printf("access DENY for '%s' - %s: %s", canonical, out.refCode, out.message)
	}

	return types.DecisionResult{
		Decision:         out.decision,
		RefCode:          out.refCode,
		Message:          out.message,
		Plate:            canonical,
		OwnerID:          out.ownerID,
		SlotCode:         out.slotCode,
		SubscriptionType: out.subscriptionType,
		ExpiresAt:        out.expiresAt,
		ServerTime:       now.UTC().Format(time.RFC3339Nano),
	}
}

// run evaluates the chain against a single consistent snapshot. All
// storage faults surface here and collapse to SYSTEM_ERROR.
func (e *DecisionEngine) run(ctx context.Context, canonical string, now time.Time) outcome {
	if canonical == "" {
		return outcome{
			decision: types.DecisionDeny,
			refCode:  types.RefPlateNotFound,
			message:  "Format invalide.",
		}
	}

	facts, err := e.facts.FactsForPlate(ctx, canonical, now)
	if err != nil {
		e.logger.Printf("decision error for '%s': %v", canonical, err)
		return systemError()
	}
	if facts.Vehicle != nil && facts.Owner == nil {
		e.logger.Printf("decision error for '%s': vehicle %d has no owner row", canonical, facts.Vehicle.ID)
		return systemError()
	}

	in := ruleInput{canonical: canonical, facts: facts, now: now, hours: e.hours}
	for _, rule := range accessRules {
		if out := rule.eval(in); out != nil {
			return *out
		}
	}

	// The chain ends in an unconditional allow rule; reaching this point
	// means the rule table was edited badly. Fail closed.
	e.logger.Printf("decision error for '%s': rule chain fell through", canonical)
	return systemError()
}

func systemError() outcome {
	return outcome{
		decision: types.DecisionDeny,
		refCode:  types.RefSystemError,
		message:  "Erreur système.",
	}
}

// civilDate strips the time-of-day component for date comparisons.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
