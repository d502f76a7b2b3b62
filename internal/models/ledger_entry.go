package models

import "time"

// Ledger entry kinds.
const (
	KindCreate       = "CREATE"
	KindProgress     = "PROGRESS"
	KindBlocked      = "BLOCKED"
	KindHelpCall     = "HELP_CALL"
	KindRequestClose = "REQUEST_CLOSE"
	KindApproveClose = "APPROVE_CLOSE"
	KindRejectClose  = "REJECT_CLOSE"
)

// LedgerEntry is one immutable, timestamped fact about a work item's history.
// Rows are append-only; the single permitted mutation is attaching one
// supervisor reply.
type LedgerEntry struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	WorkItemID        uint   `gorm:"not null;index"`
	Actor             string `gorm:"size:16;not null"`
	Timestamp         time.Time
	ProgressPercent   int
	Content           string  `gorm:"type:text"`
	EntryKind         string  `gorm:"size:16;not null"`
	TargetHelper      *string `gorm:"size:16"`
	SupervisorReply   string  `gorm:"type:text"`
	SupervisorReplyAt *time.Time
	SupervisorReplyBy string `gorm:"size:16"`
}
