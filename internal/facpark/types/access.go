package types

// Decision values surfaced by the Decision Engine.
const (
	DecisionAllow = "ALLOW"
	DecisionDeny  = "DENY"
)

// Reference codes attached to every decision. Stable strings — surfaced to
// operators and end users, never renumbered.
const (
	RefAllow                = "ALLOW"
	RefPlateNotFound        = "PLATE_NOT_FOUND"
	RefPlateNotRegistered   = "PLATE_NOT_REGISTERED"
	RefNoActiveSubscription = "NO_ACTIVE_SUBSCRIPTION"
	RefStudentSuspended     = "STUDENT_SUSPENDED"
	RefSubscriptionExpired  = "SUBSCRIPTION_EXPIRED"
	RefNoSlotAssigned       = "NO_SLOT_ASSIGNED"
	RefOutsideHours         = "OUTSIDE_HOURS"
	RefSystemError          = "SYSTEM_ERROR"
)

type AccessCheckRequest struct {
	Plate   string `json:"plate"`
	ActorID *int64 `json:"actor_id,omitempty"` // user who triggered the check, if any
	Origin  string `json:"origin,omitempty"`   // gate id or other origin tag
}

type DecisionResult struct {
	Decision         string `json:"decision"`
	RefCode          string `json:"ref_code"`
	Message          string `json:"message"`
	Plate            string `json:"plate,omitempty"` // canonical plate used for lookup
	OwnerID          *int64 `json:"owner_id,omitempty"`
	SlotCode         string `json:"slot_code,omitempty"`
	SubscriptionType string `json:"subscription_type,omitempty"`
	ExpiresAt        string `json:"expires_at,omitempty"` // YYYY-MM-DD
	ServerTime       string `json:"server_time"`
}
