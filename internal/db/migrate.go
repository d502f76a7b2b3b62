package db

import (
	"fmt"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model owned by the engine, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&models.WorkItem{},
		&models.LedgerEntry{},
		&models.User{},
	}
}

// AutoMigrate creates or updates all engine tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
