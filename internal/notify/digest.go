package notify

import (
	"fmt"
	"time"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// DailyReport holds activity counts for a 24-hour period.
type DailyReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Created     int
	Completed   int
	HelpCalls   int
	Rejections  int
	AwaitingNow int
}

// BuildDailyDigest summarizes the last 24 hours of ledger activity into a
// Notice. Returns nil when there was no activity.
func BuildDailyDigest(db *gorm.DB) (*Notice, error) {
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	report, err := buildDailyReport(db, since, now)
	if err != nil {
		return nil, fmt.Errorf("notify: daily digest: %w", err)
	}

	if report.Created == 0 && report.Completed == 0 && report.HelpCalls == 0 && report.Rejections == 0 {
		return nil, nil
	}

	body := fmt.Sprintf(
		"Created: %d\nCompleted: %d\nHelp calls: %d\nRejected closures: %d\nAwaiting confirmation: %d",
		report.Created, report.Completed, report.HelpCalls, report.Rejections, report.AwaitingNow,
	)
	return &Notice{
		Title:    fmt.Sprintf("Workdesk daily digest — %s", now.Format("2006-01-02")),
		Body:     body,
		Severity: "INFO",
	}, nil
}

func buildDailyReport(db *gorm.DB, since, until time.Time) (*DailyReport, error) {
	report := &DailyReport{PeriodStart: since, PeriodEnd: until}

	kindCount := func(kinds ...string) (int, error) {
		var n int64
		err := db.Model(&models.LedgerEntry{}).
			Where("entry_kind IN ? AND timestamp BETWEEN ? AND ?", kinds, since, until).
			Count(&n).Error
		return int(n), err
	}

	var err error
	if report.Created, err = kindCount(models.KindCreate); err != nil {
		return nil, err
	}
	if report.HelpCalls, err = kindCount(models.KindHelpCall); err != nil {
		return nil, err
	}
	if report.Rejections, err = kindCount(models.KindRejectClose); err != nil {
		return nil, err
	}

	var completed int64
	if err := db.Model(&models.WorkItem{}).
		Where("status = ? AND completed_at BETWEEN ? AND ?", models.StatusCompleted, since, until).
		Count(&completed).Error; err != nil {
		return nil, err
	}
	report.Completed = int(completed)

	var awaiting int64
	if err := db.Model(&models.WorkItem{}).
		Where("status = ?", models.StatusWaitingConfirm).
		Count(&awaiting).Error; err != nil {
		return nil, err
	}
	report.AwaitingNow = int(awaiting)

	return report, nil
}
