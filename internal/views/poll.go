package views

import (
	"fmt"
	"time"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// Change is one row of the recent-changes poll: intentionally just the ID
// and the update timestamp, so clients can refresh cheaply.
type Change struct {
	ID            uint      `json:"id"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// PollChanges returns the items in scope whose LastUpdatedAt falls within
// the last sinceMinutes. Best effort, at-least-once: clients may see the
// same change across consecutive polls and must treat refreshes as
// idempotent.
func PollChanges(db *gorm.DB, scope Scope, sinceMinutes int) ([]Change, error) {
	if sinceMinutes <= 0 {
		sinceMinutes = 15
	}
	cutoff := time.Now().Add(-time.Duration(sinceMinutes) * time.Minute)

	var changes []Change
	q := scope.apply(db.Model(&models.WorkItem{}))
	if err := q.Select("id, last_updated_at").
		Where("last_updated_at >= ?", cutoff).
		Order("last_updated_at DESC").
		Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("views: poll changes: %w", err)
	}
	return changes, nil
}
