// Package views holds the read-side queries over work items and their
// ledger: the board, history listings, the change poll, and summaries.
// Everything here is read-only; writes belong to the lifecycle manager.
package views

import (
	"fmt"
	"time"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// Scope is the visibility rule applied to every view: an item is visible
// to its owner, to its supervisor's team view, or to an administrator in
// team view. The admin flag is pre-resolved by the caller.
type Scope struct {
	Actor    string
	TeamView bool
	Admin    bool
}

// apply narrows q to the rows the scope may see.
func (s Scope) apply(q *gorm.DB) *gorm.DB {
	if s.TeamView {
		if s.Admin {
			return q
		}
		return q.Where("supervisor = ?", s.Actor)
	}
	return q.Where("owner = ?", s.Actor)
}

// ItemRow is one work item shaped for display: the projection row plus the
// ledger entry count and a resolved subject label.
type ItemRow struct {
	models.WorkItem
	LogCount     int
	SubjectLabel string
}

// Board returns the items feeding the kanban board: everything in scope
// that was touched within the recent window or sits in any non-terminal
// status, most recently updated first.
func Board(db *gorm.DB, scope Scope, recentDays int) ([]ItemRow, error) {
	if recentDays <= 0 {
		recentDays = 3
	}
	cutoff := time.Now().AddDate(0, 0, -recentDays)

	var items []models.WorkItem
	q := scope.apply(db.Model(&models.WorkItem{}))
	if err := q.Where("created_at >= ? OR status IN ?", cutoff, models.ActiveStatuses).
		Order("last_updated_at DESC, created_at DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("views: board: %w", err)
	}
	return toRows(db, items)
}

// Summary holds scope-wide status counts for a window.
type Summary struct {
	Total            int
	Completed        int
	Pending          int
	HelpNeeded       int
	CompletedPercent int
}

// BuildSummary counts items in scope created within the last days.
func BuildSummary(db *gorm.DB, scope Scope, days int) (*Summary, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	var s Summary
	q := scope.apply(db.Model(&models.WorkItem{})).Where("created_at >= ?", since)
	if err := q.Select(
		"COUNT(id) AS total, " +
			"COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END), 0) AS completed, " +
			"COALESCE(SUM(CASE WHEN status IN ('OPEN', 'PENDING', 'WAITING_CONFIRM') THEN 1 ELSE 0 END), 0) AS pending, " +
			"COALESCE(SUM(CASE WHEN status = 'HELP_NEEDED' THEN 1 ELSE 0 END), 0) AS help_needed").
		Scan(&s).Error; err != nil {
		return nil, fmt.Errorf("views: summary: %w", err)
	}
	if s.Total > 0 {
		s.CompletedPercent = int(float64(s.Completed)/float64(s.Total)*100 + 0.5)
	}
	return &s, nil
}

// toRows shapes items for display, filling per-item ledger counts with one
// grouped query.
func toRows(db *gorm.DB, items []models.WorkItem) ([]ItemRow, error) {
	rows := make([]ItemRow, len(items))
	if len(items) == 0 {
		return rows, nil
	}

	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ID
		rows[i] = ItemRow{WorkItem: it}
	}

	type countRow struct {
		WorkItemID uint
		N          int
	}
	var counts []countRow
	if err := db.Model(&models.LedgerEntry{}).
		Select("work_item_id, COUNT(id) AS n").
		Where("work_item_id IN ?", ids).
		Group("work_item_id").
		Find(&counts).Error; err != nil {
		return nil, fmt.Errorf("views: ledger counts: %w", err)
	}

	byID := make(map[uint]int, len(counts))
	for _, c := range counts {
		byID[c.WorkItemID] = c.N
	}
	for i := range rows {
		rows[i].LogCount = byID[rows[i].ID]
	}
	return rows, nil
}
