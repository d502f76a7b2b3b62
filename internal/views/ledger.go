package views

import (
	"errors"
	"fmt"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// Ledger returns a work item's full entry history, newest first.
func Ledger(db *gorm.DB, workItemID uint) ([]models.LedgerEntry, error) {
	var count int64
	if err := db.Model(&models.WorkItem{}).Where("id = ?", workItemID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("views: check work item %d: %w", workItemID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("views: work item %d: %w", workItemID, gorm.ErrRecordNotFound)
	}

	var entries []models.LedgerEntry
	if err := db.Where("work_item_id = ?", workItemID).
		Order("timestamp DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("views: ledger of %d: %w", workItemID, err)
	}
	return entries, nil
}

// IsNotFound reports whether err means the requested record is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
