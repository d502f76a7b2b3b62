package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// Status buckets for the history view.
const (
	BucketAll       = "ALL"
	BucketCompleted = "COMPLETED"
	BucketRisk      = "RISK"
	BucketHelp      = "HELP"
	BucketPending   = "PENDING"
)

// HistoryFilters narrows the history listing.
type HistoryFilters struct {
	Days   int    // creation window, counted back from now; default 30
	Bucket string // one of the Bucket constants; default ALL
	Search string // ;-separated terms matched against title, detail and subject
}

// History returns items in scope whose creation falls inside the window,
// optionally narrowed by status bucket and free-text search.
func History(db *gorm.DB, scope Scope, filters HistoryFilters) ([]ItemRow, error) {
	days := filters.Days
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	q := scope.apply(db.Model(&models.WorkItem{})).Where("created_at >= ?", since)

	switch strings.ToUpper(filters.Bucket) {
	case "", BucketAll:
	case BucketCompleted:
		q = q.Where("status = ?", models.StatusCompleted)
	case BucketRisk:
		q = q.Where("status IN ?", []string{
			models.StatusPending, models.StatusHelpNeeded, models.StatusOpen, models.StatusWaitingConfirm,
		})
	case BucketHelp:
		q = q.Where("status = ?", models.StatusHelpNeeded)
	case BucketPending:
		q = q.Where("status IN ?", []string{
			models.StatusPending, models.StatusOpen, models.StatusWaitingConfirm,
		})
	default:
		return nil, fmt.Errorf("views: unknown history bucket %q", filters.Bucket)
	}

	if terms := splitTerms(filters.Search); len(terms) > 0 {
		or := db.Session(&gorm.Session{NewDB: true})
		for i, t := range terms {
			like := "%" + t + "%"
			if i == 0 {
				or = or.Where("title LIKE ? OR detail_text LIKE ? OR subject_ref LIKE ?", like, like, like)
			} else {
				or = or.Or("title LIKE ? OR detail_text LIKE ? OR subject_ref LIKE ?", like, like, like)
			}
		}
		q = q.Where(or)
	}

	var items []models.WorkItem
	if err := q.Order("created_at DESC, last_updated_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("views: history: %w", err)
	}
	return toRows(db, items)
}

// splitTerms breaks a ;-separated search string into trimmed terms.
func splitTerms(search string) []string {
	var terms []string
	for _, t := range strings.Split(search, ";") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
