package models

import "time"

// Work item statuses. COMPLETED is the only terminal status.
const (
	StatusOpen           = "OPEN"
	StatusPending        = "PENDING"
	StatusBlocked        = "BLOCKED"
	StatusHelpNeeded     = "HELP_NEEDED"
	StatusWaitingConfirm = "WAITING_CONFIRM"
	StatusCompleted      = "COMPLETED"
)

// Work item priorities. HIGH marks delegated-down children, ALERT marks
// peer help requests.
const (
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityAlert  = "ALERT"
)

// ActiveStatuses lists every non-terminal status. Used by the duplicate
// guard and the board view.
var ActiveStatuses = []string{
	StatusOpen, StatusPending, StatusBlocked, StatusHelpNeeded, StatusWaitingConfirm,
}

// WorkItem is the denormalized current-state record for one unit of work.
// It is a read-optimized cache of the ledger's latest implication and can
// always be rebuilt by replaying the item's ledger entries in order.
type WorkItem struct {
	ID               uint    `gorm:"primaryKey;autoIncrement"`
	Owner            string  `gorm:"size:16;not null;index"`
	Supervisor       string  `gorm:"size:16;index"`
	Status           string  `gorm:"size:16;default:OPEN;index"`
	Priority         string  `gorm:"size:8;default:NORMAL"`
	Category         string  `gorm:"size:32;index"`
	SubjectRef       *string `gorm:"size:32;index"`
	Title            string  `gorm:"size:256;not null"`
	DetailText       string  `gorm:"type:text"`
	Attachments      string  `gorm:"size:512"`
	ProgressPercent  int     `gorm:"default:0"`
	ParentID         *uint   `gorm:"index"`
	SupervisorNote   string  `gorm:"type:text"`
	SupervisorNoteAt *time.Time
	CreatedAt        time.Time
	StartDate        *time.Time
	DueDate          *time.Time
	LastUpdatedAt    time.Time `gorm:"index"`
	CompletedAt      *time.Time

	Parent   *WorkItem     `gorm:"foreignKey:ParentID"`
	Children []WorkItem    `gorm:"foreignKey:ParentID"`
	Ledger   []LedgerEntry `gorm:"foreignKey:WorkItemID"`
}

// Terminal reports whether the item accepts no further ledger entries.
func (w *WorkItem) Terminal() bool {
	return w.Status == StatusCompleted
}
