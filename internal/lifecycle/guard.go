package lifecycle

import (
	"errors"
	"fmt"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// checkDuplicate looks for an active work item already covering the
// (owner, subject, category) triple and returns its ID. A nil or blank
// subject bypasses the check: free-form tasks are never deduplicated.
func checkDuplicate(db *gorm.DB, owner string, subject *string, category string) (uint, bool, error) {
	if subject == nil || *subject == "" {
		return 0, false, nil
	}

	var existing models.WorkItem
	err := db.Select("id").
		Where("owner = ? AND subject_ref = ? AND category = ?", owner, *subject, category).
		Where("status IN ?", models.ActiveStatuses).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lifecycle: duplicate check for %s: %w", owner, err)
	}
	return existing.ID, true, nil
}
