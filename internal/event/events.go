package event

import (
	"backend/internal/model"

	"github.com/google/uuid"
)

// Event is the closed set of domain events the notification layer routes.
// Each variant carries its own typed payload; there is no string-keyed
// dispatch and no unknown-event fallback.
type Event interface {
	// Type returns the stable event-type string persisted on outbox jobs
	// and notification log rows.
	Type() string
}

// RequestKind discriminates item vs office-supply request events
const (
	KindItemRequest   = "ITEM"
	KindSupplyRequest = "SUPPLY"
)

// RequestCreated fires when a requester submits a new request
type RequestCreated struct {
	RequestKind   string    `json:"request_kind"` // ITEM or SUPPLY
	RequestID     uuid.UUID `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	RequesterID   uuid.UUID `json:"requester_id"`
	RequesterName string    `json:"requester_name"`
	Department    string    `json:"department"`
	Lines         []Line    `json:"lines"`
}

// ApprovalNeeded fires after each passed approval gate, carrying the level
// the request now waits on (0 when fully approved).
type ApprovalNeeded struct {
	RequestKind   string    `json:"request_kind"`
	RequestID     uuid.UUID `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	RequesterID   uuid.UUID `json:"requester_id"`
	RequesterName string    `json:"requester_name"`
	Department    string    `json:"department"`
	NextLevel     int       `json:"next_level"`
}

// RequestUpdate fires on terminal transitions (approved, rejected, completed)
type RequestUpdate struct {
	RequestKind   string    `json:"request_kind"`
	RequestID     uuid.UUID `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	RequesterID   uuid.UUID `json:"requester_id"`
	RequesterName string    `json:"requester_name"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
}

// ReorderPointAlert fires when a stock mutation leaves an entity at or below
// its reorder threshold.
type ReorderPointAlert struct {
	EntityKind string    `json:"entity_kind"` // ITEM or SUPPLY
	EntityID   uuid.UUID `json:"entity_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	Threshold  int       `json:"threshold"`
	Unit       string    `json:"unit"`
}

// Line is the event-payload projection of a request line item
type Line struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

func (RequestCreated) Type() string    { return model.EventTypeRequestCreated }
func (ApprovalNeeded) Type() string    { return model.EventTypeApprovalNeeded }
func (RequestUpdate) Type() string     { return model.EventTypeRequestUpdate }
func (ReorderPointAlert) Type() string { return model.EventTypeReorderAlert }
