package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDigestTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.WorkItem{}, &models.LedgerEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func seedDigestEntry(t *testing.T, gdb *gorm.DB, kind string, when time.Time) {
	t.Helper()
	e := models.LedgerEntry{WorkItemID: 1, Actor: "U1", Timestamp: when, EntryKind: kind}
	if err := gdb.Create(&e).Error; err != nil {
		t.Fatal(err)
	}
}

func TestBuildDailyDigest(t *testing.T) {
	gdb := openDigestTestDB(t)
	now := time.Now()
	recent := now.Add(-1 * time.Hour)

	seedDigestEntry(t, gdb, models.KindCreate, recent)
	seedDigestEntry(t, gdb, models.KindCreate, recent)
	seedDigestEntry(t, gdb, models.KindHelpCall, recent)
	seedDigestEntry(t, gdb, models.KindRejectClose, recent)
	// Outside the 24-hour window.
	seedDigestEntry(t, gdb, models.KindCreate, now.Add(-30*time.Hour))

	completedAt := recent
	items := []models.WorkItem{
		{Owner: "U1", Status: models.StatusCompleted, Title: "done", CompletedAt: &completedAt, LastUpdatedAt: now},
		{Owner: "U1", Status: models.StatusWaitingConfirm, Title: "waiting", LastUpdatedAt: now},
		{Owner: "U2", Status: models.StatusWaitingConfirm, Title: "waiting too", LastUpdatedAt: now},
	}
	for i := range items {
		if err := gdb.Create(&items[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	notice, err := BuildDailyDigest(gdb)
	if err != nil {
		t.Fatalf("BuildDailyDigest: %v", err)
	}
	if notice == nil {
		t.Fatal("notice = nil, want a digest")
	}
	if !strings.Contains(notice.Title, "daily digest") {
		t.Errorf("Title = %q, want a digest title", notice.Title)
	}
	for _, want := range []string{
		"Created: 2",
		"Completed: 1",
		"Help calls: 1",
		"Rejected closures: 1",
		"Awaiting confirmation: 2",
	} {
		if !strings.Contains(notice.Body, want) {
			t.Errorf("Body missing %q:\n%s", want, notice.Body)
		}
	}
}

func TestBuildDailyDigest_NoActivity(t *testing.T) {
	gdb := openDigestTestDB(t)

	notice, err := BuildDailyDigest(gdb)
	if err != nil {
		t.Fatalf("BuildDailyDigest: %v", err)
	}
	if notice != nil {
		t.Errorf("notice = %+v, want nil when nothing happened", notice)
	}
}

func TestBuildDailyDigest_QuietDayWithBacklog(t *testing.T) {
	gdb := openDigestTestDB(t)

	// A standing WAITING_CONFIRM backlog alone does not trigger a digest.
	item := models.WorkItem{Owner: "U1", Status: models.StatusWaitingConfirm, Title: "old wait", LastUpdatedAt: time.Now()}
	if err := gdb.Create(&item).Error; err != nil {
		t.Fatal(err)
	}

	notice, err := BuildDailyDigest(gdb)
	if err != nil {
		t.Fatalf("BuildDailyDigest: %v", err)
	}
	if notice != nil {
		t.Errorf("notice = %+v, want nil on a quiet day", notice)
	}
}
