package database

import (
	"log"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.Item{},
		&model.OfficeSupply{},
		&model.StockMovement{},
		&model.ItemRequest{},
		&model.ItemRequestLine{},
		&model.SupplyRequest{},
		&model.SupplyRequestLine{},
		&model.NotificationPreference{},
		&model.NotificationLog{},
		&model.OutboxJob{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
