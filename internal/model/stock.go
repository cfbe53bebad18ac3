package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockEntityKind discriminates the two tracked stock tables in shared records
const (
	StockKindItem   = "ITEM"
	StockKindSupply = "SUPPLY"
)

// Item is a tracked court asset (furniture, electronics, ...) with a reorder threshold
type Item struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code             string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name             string          `gorm:"type:varchar(255);not null" json:"name"`
	Unit             string          `gorm:"type:varchar(30);not null" json:"unit"` // pcs, box, ream...
	Quantity         int             `gorm:"type:int;default:0;not null" json:"quantity"`
	ReorderThreshold int             `gorm:"type:int;default:0;not null" json:"reorder_threshold"`
	UnitValue        decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"unit_value"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

// OfficeSupply is a consumable (paper, toner, ...) tracked the same way as Item
type OfficeSupply struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code             string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name             string          `gorm:"type:varchar(255);not null" json:"name"`
	Unit             string          `gorm:"type:varchar(30);not null" json:"unit"`
	Quantity         int             `gorm:"type:int;default:0;not null" json:"quantity"`
	ReorderThreshold int             `gorm:"type:int;default:0;not null" json:"reorder_threshold"`
	UnitValue        decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"unit_value"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

// MovementType Enum Simulation
const (
	MovementIn     = "IN"
	MovementOut    = "OUT"
	MovementAdjust = "ADJUST"
)

// StockMovement records every stock change strictly, one row per mutation
type StockMovement struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityKind      string     `gorm:"type:varchar(10);not null;index" json:"entity_kind"` // ITEM, SUPPLY
	EntityID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"entity_id"`
	RequestID       *uuid.UUID `gorm:"type:uuid;index" json:"request_id"` // Nullable for manual adjustments
	MovementType    string     `gorm:"type:varchar(10);not null" json:"movement_type"`
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	QuantityAfter   int        `gorm:"type:int;not null" json:"quantity_after"`
	Note            string     `gorm:"type:text" json:"note"`
	CreatedAt       time.Time  `json:"created_at"`
}
