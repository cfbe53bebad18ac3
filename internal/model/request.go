package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status constants for the multi-level approval chain on asset requests
const (
	RequestStatusPendingLevel1 = "PENDING_LEVEL_1"
	RequestStatusPendingLevel2 = "PENDING_LEVEL_2"
	RequestStatusPendingLevel3 = "PENDING_LEVEL_3"
	RequestStatusApproved      = "APPROVED"
	RequestStatusRejected      = "REJECTED"
	RequestStatusCompleted     = "COMPLETED"
)

// Status constants for office-supply requests, which use a single approval gate
const (
	SupplyStatusPending   = "PENDING"
	SupplyStatusApproved  = "APPROVED"
	SupplyStatusRejected  = "REJECTED"
	SupplyStatusCompleted = "COMPLETED"
)

// MaxApprovalLevels caps the configurable approval chain length
const MaxApprovalLevels = 3

// PendingStatusForLevel maps an approval level (1..3) to its pending status string
func PendingStatusForLevel(level int) string {
	return fmt.Sprintf("PENDING_LEVEL_%d", level)
}

// ItemRequest represents an asset request moving through sequential approval levels.
// Status only moves forward through the configured levels; REJECTED is absorbing.
type ItemRequest struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestNumber string            `gorm:"type:varchar(50);uniqueIndex;not null" json:"request_number"`
	RequesterID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester     *User             `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Department    string            `gorm:"type:varchar(100);not null" json:"department"`
	Status        string            `gorm:"type:varchar(30);not null;index" json:"status"`
	Lines         []ItemRequestLine `gorm:"foreignKey:RequestID" json:"lines"`

	// One approver/timestamp pair per passed level. Earlier levels keep their
	// data even when the request is later rejected.
	Level1ApproverID *uuid.UUID `gorm:"type:uuid" json:"level1_approver_id"`
	Level1Approver   *User      `gorm:"foreignKey:Level1ApproverID" json:"level1_approver,omitempty"`
	Level1ApprovedAt *time.Time `json:"level1_approved_at"`
	Level2ApproverID *uuid.UUID `gorm:"type:uuid" json:"level2_approver_id"`
	Level2Approver   *User      `gorm:"foreignKey:Level2ApproverID" json:"level2_approver,omitempty"`
	Level2ApprovedAt *time.Time `json:"level2_approved_at"`
	Level3ApproverID *uuid.UUID `gorm:"type:uuid" json:"level3_approver_id"`
	Level3Approver   *User      `gorm:"foreignKey:Level3ApproverID" json:"level3_approver,omitempty"`
	Level3ApprovedAt *time.Time `json:"level3_approved_at"`

	RejectedByID    *uuid.UUID `gorm:"type:uuid" json:"rejected_by_id"`
	RejectedAt      *time.Time `json:"rejected_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`

	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PendingLevel returns the approval level the request is waiting on, or 0 if
// the request is not in a pending state.
func (r *ItemRequest) PendingLevel() int {
	switch r.Status {
	case RequestStatusPendingLevel1:
		return 1
	case RequestStatusPendingLevel2:
		return 2
	case RequestStatusPendingLevel3:
		return 3
	}
	return 0
}

// RecordApproval stamps the approver and timestamp for a passed level
func (r *ItemRequest) RecordApproval(level int, approverID uuid.UUID, at time.Time) {
	switch level {
	case 1:
		r.Level1ApproverID = &approverID
		r.Level1ApprovedAt = &at
	case 2:
		r.Level2ApproverID = &approverID
		r.Level2ApprovedAt = &at
	case 3:
		r.Level3ApproverID = &approverID
		r.Level3ApprovedAt = &at
	}
}

// ItemRequestLine is a single requested item within an ItemRequest
type ItemRequestLine struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID         uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	ItemID            uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	Item              Item      `gorm:"foreignKey:ItemID" json:"item"`
	QuantityRequested int       `gorm:"type:int;not null" json:"quantity_requested"`
	QuantityApproved  int       `gorm:"type:int;default:0" json:"quantity_approved"`
	QuantityFulfilled int       `gorm:"type:int;default:0" json:"quantity_fulfilled"`
}

// SupplyRequest represents an office-supply request with a single approval gate
type SupplyRequest struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestNumber string              `gorm:"type:varchar(50);uniqueIndex;not null" json:"request_number"`
	RequesterID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester     *User               `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Department    string              `gorm:"type:varchar(100);not null" json:"department"`
	Status        string              `gorm:"type:varchar(30);not null;index" json:"status"`
	Lines         []SupplyRequestLine `gorm:"foreignKey:RequestID" json:"lines"`

	ApprovedByID    *uuid.UUID `gorm:"type:uuid" json:"approved_by_id"`
	ApprovedBy      *User      `gorm:"foreignKey:ApprovedByID" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`

	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SupplyRequestLine is a single requested supply within a SupplyRequest
type SupplyRequestLine struct {
	ID                uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID         uuid.UUID    `gorm:"type:uuid;not null;index" json:"request_id"`
	SupplyID          uuid.UUID    `gorm:"type:uuid;not null;index" json:"supply_id"`
	Supply            OfficeSupply `gorm:"foreignKey:SupplyID" json:"supply"`
	QuantityRequested int          `gorm:"type:int;not null" json:"quantity_requested"`
	QuantityApproved  int          `gorm:"type:int;default:0" json:"quantity_approved"`
	QuantityFulfilled int          `gorm:"type:int;default:0" json:"quantity_fulfilled"`
}
