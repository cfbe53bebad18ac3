package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateItem   = "CREATE_ITEM"
	ActionUpdateItem   = "UPDATE_ITEM"
	ActionDeleteItem   = "DELETE_ITEM"
	ActionCreateSupply = "CREATE_SUPPLY"
	ActionUpdateSupply = "UPDATE_SUPPLY"
	ActionDeleteSupply = "DELETE_SUPPLY"
	ActionAdjustStock  = "ADJUST_STOCK"

	// Request workflow actions
	ActionCreateItemRequest   = "CREATE_ITEM_REQUEST"
	ActionApproveItemRequest  = "APPROVE_ITEM_REQUEST"
	ActionRejectItemRequest   = "REJECT_ITEM_REQUEST"
	ActionCompleteItemRequest = "COMPLETE_ITEM_REQUEST"

	ActionCreateSupplyRequest   = "CREATE_SUPPLY_REQUEST"
	ActionApproveSupplyRequest  = "APPROVE_SUPPLY_REQUEST"
	ActionRejectSupplyRequest   = "REJECT_SUPPLY_REQUEST"
	ActionCompleteSupplyRequest = "COMPLETE_SUPPLY_REQUEST"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/number)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
