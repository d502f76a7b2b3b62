// Package lifecycle owns the work-item state machine: validated creation,
// the append-only progress ledger, and the projection row derived from it.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nvlong/workdesk/internal/directory"
	"github.com/nvlong/workdesk/internal/fanout"
	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// Manager applies ledger entries to work items. Every state-changing write
// goes through one of its methods; the ledger append and the projection
// overwrite always share a transaction.
type Manager struct {
	db  *gorm.DB
	dir directory.Directory
	fan *fanout.Dispatcher
}

// New returns a Manager writing to db and resolving authorization through dir.
func New(db *gorm.DB, dir directory.Directory) *Manager {
	return &Manager{db: db, dir: dir, fan: fanout.New(db, dir)}
}

// CreateOpts holds parameters for creating a new work item.
type CreateOpts struct {
	Owner       string
	Supervisor  string // owner's manager at creation time, pre-resolved by the caller
	Category    string
	Subject     string // external business object reference; empty bypasses the duplicate guard
	Title       string
	Detail      string
	Attachments string
	StartDate   *time.Time
	DueDate     *time.Time
	SourceAddr  string
}

// Create validates opts, runs the duplicate guard, and writes one work item
// plus its CREATE ledger entry in a single transaction. On a duplicate it
// returns a *DuplicateError carrying the conflicting ID.
func (m *Manager) Create(opts CreateOpts) (*models.WorkItem, SideEffects, error) {
	var fx SideEffects

	opts.Owner = strings.TrimSpace(opts.Owner)
	opts.Category = strings.ToUpper(strings.TrimSpace(opts.Category))
	if opts.Owner == "" {
		return nil, fx, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if opts.Title == "" {
		return nil, fx, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if opts.Category == "" {
		return nil, fx, fmt.Errorf("%w: category is required", ErrValidation)
	}

	var subject *string
	if s := strings.TrimSpace(opts.Subject); s != "" {
		subject = &s
	}

	if existingID, dup, err := checkDuplicate(m.db, opts.Owner, subject, opts.Category); err != nil {
		return nil, fx, err
	} else if dup {
		return nil, fx, &DuplicateError{ExistingID: existingID}
	}

	now := time.Now()
	item := models.WorkItem{
		Owner:         opts.Owner,
		Supervisor:    strings.TrimSpace(opts.Supervisor),
		Status:        models.StatusOpen,
		Priority:      models.PriorityNormal,
		Category:      opts.Category,
		SubjectRef:    subject,
		Title:         opts.Title,
		DetailText:    opts.Detail,
		Attachments:   opts.Attachments,
		StartDate:     opts.StartDate,
		DueDate:       opts.DueDate,
		LastUpdatedAt: now,
	}

	note := "Work item created."
	if opts.Detail != "" {
		note = "Work item created: " + opts.Detail
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("lifecycle: create work item: %w", err)
		}
		entry := models.LedgerEntry{
			WorkItemID: item.ID,
			Actor:      opts.Owner,
			Timestamp:  now,
			Content:    note,
			EntryKind:  models.KindCreate,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("lifecycle: create ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fx, err
	}

	fx.audit(opts.Owner, "TASK_CREATE", SeverityInfo,
		fmt.Sprintf("Created work item #%d: %s", item.ID, item.Title), opts.SourceAddr)
	return &item, fx, nil
}

// ProgressOpts holds parameters for appending one ledger entry.
type ProgressOpts struct {
	WorkItemID uint
	Actor      string
	Percent    int
	Content    string
	Kind       string // PROGRESS, BLOCKED, HELP_CALL or REQUEST_CLOSE
	Helpers    []string
	Attachment string
	SourceAddr string
}

// Result is the outcome of one applied ledger entry.
type Result struct {
	Item    *models.WorkItem
	Entry   *models.LedgerEntry
	Effects SideEffects
	FanOut  *fanout.Report
}

// RecordProgress appends one ledger entry and overwrites the projection row
// in the same transaction. HELP_CALL entries additionally fan out to the
// given helpers after the parent transaction commits; fan-out failures are
// reported in the Result, never rolled back into the parent.
func (m *Manager) RecordProgress(opts ProgressOpts) (*Result, error) {
	switch opts.Kind {
	case models.KindProgress, models.KindBlocked, models.KindHelpCall, models.KindRequestClose:
	default:
		return nil, ErrInvalidTransition
	}

	item, err := m.load(opts.WorkItemID)
	if err != nil {
		return nil, err
	}
	prevStatus := item.Status

	closeNow := false
	if opts.Kind == models.KindRequestClose {
		isAdmin, err := m.dir.IsAdmin(opts.Actor)
		if err != nil {
			return nil, fmt.Errorf("lifecycle: resolve admin flag for %s: %w", opts.Actor, err)
		}
		closeNow = CloseNow(item, opts.Actor, isAdmin)
		// A close request is always a 100% report, attested or not.
		opts.Percent = 100
		if opts.Content == "" {
			opts.Content = "Work reported complete, closure requested."
		}
	}

	next, err := Next(item.Status, opts.Kind, closeNow)
	if err != nil {
		return nil, err
	}

	if opts.Percent < 0 {
		opts.Percent = 0
	}
	if opts.Percent > 100 {
		opts.Percent = 100
	}

	now := time.Now()
	entry := models.LedgerEntry{
		WorkItemID:      item.ID,
		Actor:           opts.Actor,
		Timestamp:       now,
		ProgressPercent: opts.Percent,
		Content:         opts.Content,
		EntryKind:       opts.Kind,
	}
	if opts.Kind == models.KindHelpCall && len(opts.Helpers) > 0 {
		entry.TargetHelper = &opts.Helpers[0]
	}

	updates := map[string]interface{}{
		"status":           next,
		"progress_percent": opts.Percent,
		"detail_text":      opts.Content,
		"last_updated_at":  now,
	}
	if opts.Attachment != "" {
		updates["attachments"] = opts.Attachment
	}
	if next == models.StatusCompleted {
		updates["completed_at"] = now
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("lifecycle: append ledger entry: %w", err)
		}
		if err := tx.Model(&models.WorkItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("lifecycle: update work item %d: %w", item.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	item.Status = next
	item.ProgressPercent = opts.Percent
	item.DetailText = opts.Content
	item.LastUpdatedAt = now
	if opts.Attachment != "" {
		item.Attachments = opts.Attachment
	}
	if next == models.StatusCompleted {
		item.CompletedAt = &now
	}

	result := &Result{Item: item, Entry: &entry}

	// Fan-out runs after the parent commit so the parent's own history is
	// consistent even when child creation partially fails.
	if opts.Kind == models.KindHelpCall && len(opts.Helpers) > 0 {
		result.FanOut = m.fan.Dispatch(item, opts.Actor, opts.Helpers, opts.Content)
	}

	result.Effects = m.progressEffects(item, prevStatus, next, opts)
	return result, nil
}

// progressEffects derives the reward and audit signals for one transition.
func (m *Manager) progressEffects(item *models.WorkItem, prevStatus, next string, opts ProgressOpts) SideEffects {
	var fx SideEffects
	switch {
	case next == models.StatusCompleted:
		if prevStatus == models.StatusHelpNeeded {
			fx.reward(opts.Actor, ActivityHelpCompleted)
			fx.audit(opts.Actor, "TASK_HELP_COMPLETED", SeverityInfo,
				fmt.Sprintf("Completed help item #%d", item.ID), opts.SourceAddr)
		} else {
			code := ActivityAssistedCompleted
			if strings.EqualFold(opts.Actor, item.Owner) {
				code = ActivitySelfCompleted
			}
			fx.reward(opts.Actor, code)
			fx.audit(opts.Actor, "TASK_COMPLETED", SeverityInfo,
				fmt.Sprintf("Completed work item #%d", item.ID), opts.SourceAddr)
		}
	case next == models.StatusWaitingConfirm:
		fx.audit(opts.Actor, "TASK_WAITING", SeverityInfo,
			fmt.Sprintf("Reported work item #%d at 100%%, awaiting confirmation", item.ID), opts.SourceAddr)
	case opts.Kind == models.KindHelpCall:
		fx.audit(opts.Actor, "HELP_CALL", SeverityWarning,
			fmt.Sprintf("Requested help on work item #%d", item.ID), opts.SourceAddr)
	default:
		fx.audit(opts.Actor, "TASK_"+opts.Kind, SeverityInfo,
			fmt.Sprintf("Updated work item #%d (%d%%)", item.ID, opts.Percent), opts.SourceAddr)
	}
	return fx
}

// Approve resolves a pending close request. Only legal while the item is
// WAITING_CONFIRM. Approval completes the item at 100%; rejection returns
// it to PENDING at the fixed rejected progress and withholds the reward.
// Either verdict appends one ledger entry.
func (m *Manager) Approve(id uint, supervisor string, approved bool, feedback, sourceAddr string) (*Result, error) {
	item, err := m.load(id)
	if err != nil {
		return nil, err
	}

	kind := models.KindRejectClose
	percent := rejectedProgress
	content := "[REJECTED]: " + feedback
	if approved {
		kind = models.KindApproveClose
		percent = 100
		content = "[APPROVED]: " + feedback
	}

	next, err := Next(item.Status, kind, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := models.LedgerEntry{
		WorkItemID:      item.ID,
		Actor:           supervisor,
		Timestamp:       now,
		ProgressPercent: percent,
		Content:         content,
		EntryKind:       kind,
	}

	updates := map[string]interface{}{
		"status":             next,
		"progress_percent":   percent,
		"last_updated_at":    now,
		"supervisor_note":    feedback,
		"supervisor_note_at": now,
	}
	if approved {
		updates["completed_at"] = now
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("lifecycle: append ledger entry: %w", err)
		}
		if err := tx.Model(&models.WorkItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("lifecycle: update work item %d: %w", item.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	item.Status = next
	item.ProgressPercent = percent
	item.SupervisorNote = feedback
	item.SupervisorNoteAt = &now
	item.LastUpdatedAt = now
	if approved {
		item.CompletedAt = &now
	}

	var fx SideEffects
	if approved {
		fx.reward(item.Owner, ActivityAssistedCompleted)
		fx.audit(supervisor, "TASK_APPROVED", SeverityInfo,
			fmt.Sprintf("Approved completion of work item #%d", item.ID), sourceAddr)
	} else {
		fx.audit(supervisor, "TASK_REJECTED", SeverityWarning,
			fmt.Sprintf("Rejected completion of work item #%d, returned to PENDING", item.ID), sourceAddr)
	}

	return &Result{Item: item, Entry: &entry, Effects: fx}, nil
}

// AttachReply attaches the single permitted supervisor reply to a ledger
// entry and mirrors it onto the projection's supervisor note.
func (m *Manager) AttachReply(entryID uint, supervisor, text, sourceAddr string) (SideEffects, error) {
	var fx SideEffects

	var entry models.LedgerEntry
	if err := m.db.Where("id = ?", entryID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fx, ErrNotFound
		}
		return fx, fmt.Errorf("lifecycle: load ledger entry %d: %w", entryID, err)
	}
	if entry.SupervisorReply != "" {
		return fx, fmt.Errorf("%w: ledger entry %d already has a supervisor reply", ErrValidation, entryID)
	}

	now := time.Now()
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LedgerEntry{}).Where("id = ?", entryID).Updates(map[string]interface{}{
			"supervisor_reply":    text,
			"supervisor_reply_at": now,
			"supervisor_reply_by": supervisor,
		}).Error; err != nil {
			return fmt.Errorf("lifecycle: attach reply to entry %d: %w", entryID, err)
		}
		if err := tx.Model(&models.WorkItem{}).Where("id = ?", entry.WorkItemID).Updates(map[string]interface{}{
			"supervisor_note":    text,
			"supervisor_note_at": now,
		}).Error; err != nil {
			return fmt.Errorf("lifecycle: sync supervisor note to item %d: %w", entry.WorkItemID, err)
		}
		return nil
	})
	if err != nil {
		return fx, err
	}

	fx.audit(supervisor, "TASK_FEEDBACK", SeverityInfo,
		fmt.Sprintf("Replied to ledger entry #%d on work item #%d", entryID, entry.WorkItemID), sourceAddr)
	return fx, nil
}

// SetPriority changes an item's display priority. Priority is routing
// metadata, not a ledger fact, so no entry is written.
func (m *Manager) SetPriority(id uint, priority string) error {
	priority = strings.ToUpper(strings.TrimSpace(priority))
	switch priority {
	case models.PriorityNormal, models.PriorityHigh, models.PriorityAlert:
	default:
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, priority)
	}

	result := m.db.Model(&models.WorkItem{}).Where("id = ?", id).Updates(map[string]interface{}{
		"priority":        priority,
		"last_updated_at": time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("lifecycle: set priority on %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// load fetches one work item by ID.
func (m *Manager) load(id uint) (*models.WorkItem, error) {
	var item models.WorkItem
	if err := m.db.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lifecycle: load work item %d: %w", id, err)
	}
	return &item, nil
}
