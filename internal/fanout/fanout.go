// Package fanout expands a help or delegation request into derivative work
// items, one per resolved recipient.
package fanout

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nvlong/workdesk/internal/directory"
	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// DeptPrefix marks a target as a department alias. The remainder of the
// target expands to every current member of that department.
const DeptPrefix = "DEPT_"

// CategoryInternal is the category assigned to fanned-out children.
const CategoryInternal = "INTERNAL"

// TargetFailure records one target that could not be served.
type TargetFailure struct {
	Target string
	Err    error
}

// Report summarizes one dispatch: how many individuals were resolved, how
// many children were actually created, and which targets failed. Failures
// never roll back siblings.
type Report struct {
	Requested int
	Created   int
	ChildIDs  []uint
	Failures  []TargetFailure
}

// Dispatcher spawns derivative work items for help calls.
type Dispatcher struct {
	db  *gorm.DB
	dir directory.Directory
}

// New returns a Dispatcher writing children to db and resolving targets
// through dir.
func New(db *gorm.DB, dir directory.Directory) *Dispatcher {
	return &Dispatcher{db: db, dir: dir}
}

// Dispatch expands targets (individual codes and DEPT_ aliases), removes
// duplicates and the requester, and creates one HELP_NEEDED child per
// remaining individual. Each child creation is independent: one failure is
// recorded and the rest proceed. Dispatch runs outside the parent's own
// transaction.
func (d *Dispatcher) Dispatch(parent *models.WorkItem, requester string, targets []string, note string) *Report {
	report := &Report{}

	resolved := make(map[string]bool)
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if strings.HasPrefix(target, DeptPrefix) {
			members, err := d.dir.MembersOf(strings.TrimPrefix(target, DeptPrefix))
			if err != nil {
				report.Failures = append(report.Failures, TargetFailure{Target: target, Err: err})
				continue
			}
			for _, m := range members {
				resolved[strings.ToUpper(strings.TrimSpace(m))] = true
			}
			continue
		}
		resolved[strings.ToUpper(target)] = true
	}
	delete(resolved, strings.ToUpper(strings.TrimSpace(requester)))

	helpers := make([]string, 0, len(resolved))
	for h := range resolved {
		helpers = append(helpers, h)
	}
	sort.Strings(helpers)
	report.Requested = len(helpers)

	for _, helper := range helpers {
		id, err := d.createChild(parent, requester, helper, note)
		if err != nil {
			report.Failures = append(report.Failures, TargetFailure{Target: helper, Err: err})
			continue
		}
		report.Created++
		report.ChildIDs = append(report.ChildIDs, id)
	}
	return report
}

// createChild writes one derivative work item plus its CREATE ledger entry.
func (d *Dispatcher) createChild(parent *models.WorkItem, requester, helper, note string) (uint, error) {
	subordinate, err := directory.IsSubordinate(d.dir, helper, requester)
	if err != nil {
		return 0, fmt.Errorf("fanout: resolve relationship %s -> %s: %w", requester, helper, err)
	}

	priority := models.PriorityAlert
	prefix := "Help"
	if subordinate {
		priority = models.PriorityHigh
		prefix = "Delegated"
	}

	detail := note
	if detail == "" {
		detail = parent.DetailText
	}

	now := time.Now()
	child := models.WorkItem{
		Owner:         helper,
		Supervisor:    requester,
		Status:        models.StatusHelpNeeded,
		Priority:      priority,
		Category:      CategoryInternal,
		SubjectRef:    parent.SubjectRef,
		Title:         fmt.Sprintf("%s - [%s] - %s", prefix, requester, parent.Title),
		DetailText:    detail,
		ParentID:      &parent.ID,
		LastUpdatedAt: now,
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&child).Error; err != nil {
			return fmt.Errorf("fanout: create child for %s: %w", helper, err)
		}
		// Two entries so the ledger alone implies the child's born status:
		// CREATE opens it, the help call moves it to HELP_NEEDED.
		entries := []models.LedgerEntry{
			{
				WorkItemID: child.ID,
				Actor:      requester,
				Timestamp:  now,
				Content:    fmt.Sprintf("Spawned from work item #%d.", parent.ID),
				EntryKind:  models.KindCreate,
			},
			{
				WorkItemID:   child.ID,
				Actor:        requester,
				Timestamp:    now,
				Content:      detail,
				EntryKind:    models.KindHelpCall,
				TargetHelper: &child.Owner,
			},
		}
		for i := range entries {
			if err := tx.Create(&entries[i]).Error; err != nil {
				return fmt.Errorf("fanout: create ledger entry for %s: %w", helper, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return child.ID, nil
}
