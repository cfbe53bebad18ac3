package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification event types routed through the outbox
const (
	EventTypeRequestCreated   = "REQUEST_CREATED"
	EventTypeApprovalNeeded   = "APPROVAL_NEEDED"
	EventTypeRequestUpdate    = "REQUEST_UPDATE"
	EventTypeReorderAlert     = "REORDER_ALERT"
	EventTypeLowStockDigest   = "LOW_STOCK_DIGEST"
)

// Notification outcome constants
const (
	DeliverySent   = "SENT"
	DeliveryFailed = "FAILED"
)

// Outbox job status constants
const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusSent       = "SENT"
	JobStatusFailed     = "FAILED"
	JobStatusSkipped    = "SKIPPED" // suppressed (quiet hours / preferences), not an error
)

// QueueWhatsApp is the named queue the delivery workers consume
const QueueWhatsApp = "whatsapp"

// NotificationPreference holds one user's per-category notification switches
// plus an optional daily quiet-hours window ("HH:MM", may wrap midnight).
type NotificationPreference struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID" json:"-"`
	Enabled        bool      `gorm:"default:true" json:"enabled"`
	ReorderAlert   bool      `gorm:"default:true" json:"reorder_alert"`
	ApprovalNeeded bool      `gorm:"default:true" json:"approval_needed"`
	RequestUpdate  bool      `gorm:"default:true" json:"request_update"`
	QuietStart     string    `gorm:"type:varchar(5)" json:"quiet_start"` // "22:00", empty = no quiet hours
	QuietEnd       string    `gorm:"type:varchar(5)" json:"quiet_end"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DefaultPreference returns the permissive preference record created lazily
// when a user has none at delivery time. Defaults are deliberate product
// policy: everything on, no quiet hours.
func DefaultPreference(userID uuid.UUID) NotificationPreference {
	return NotificationPreference{
		UserID:         userID,
		Enabled:        true,
		ReorderAlert:   true,
		ApprovalNeeded: true,
		RequestUpdate:  true,
	}
}

// CategoryEnabled reports whether the category flag for the given event type is on
func (p *NotificationPreference) CategoryEnabled(eventType string) bool {
	switch eventType {
	case EventTypeReorderAlert, EventTypeLowStockDigest:
		return p.ReorderAlert
	case EventTypeApprovalNeeded:
		return p.ApprovalNeeded
	case EventTypeRequestCreated, EventTypeRequestUpdate:
		return p.RequestUpdate
	}
	return false
}

// NotificationLog is the append-only audit of every delivery attempt outcome.
// Rows are never mutated after reaching a terminal outcome.
type NotificationLog struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	EventType        string    `gorm:"type:varchar(30);not null;index" json:"event_type"`
	Message          string    `gorm:"type:text" json:"message"`
	Status           string    `gorm:"type:varchar(10);not null;index" json:"status"` // SENT, FAILED
	ProviderResponse string    `gorm:"type:text" json:"provider_response"`
	ErrorDetail      string    `gorm:"type:text" json:"error_detail"`
	RetryCount       int       `gorm:"type:int;default:0" json:"retry_count"` // zero-based attempt index
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// OutboxJob is a queued delivery unit consumed by the notification workers.
// Retry scheduling lives in NextAttemptAt; Attempts counts started attempts.
type OutboxJob struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Queue         string    `gorm:"type:varchar(30);not null;index:idx_outbox_due,priority:1" json:"queue"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	EventType     string    `gorm:"type:varchar(30);not null" json:"event_type"`
	Payload       string    `gorm:"type:jsonb;not null" json:"payload"`
	Status        string    `gorm:"type:varchar(15);not null;index:idx_outbox_due,priority:2" json:"status"`
	Attempts      int       `gorm:"type:int;default:0" json:"attempts"`
	MaxAttempts   int       `gorm:"type:int;default:3" json:"max_attempts"`
	NextAttemptAt time.Time `gorm:"index:idx_outbox_due,priority:3" json:"next_attempt_at"`
	LastError     string    `gorm:"type:text" json:"last_error"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
