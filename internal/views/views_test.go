package views

import (
	"errors"
	"testing"
	"time"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
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

func seedItem(t *testing.T, gdb *gorm.DB, item models.WorkItem) uint {
	t.Helper()
	if item.LastUpdatedAt.IsZero() {
		item.LastUpdatedAt = time.Now()
	}
	if err := gdb.Create(&item).Error; err != nil {
		t.Fatal(err)
	}
	return item.ID
}

func seedEntry(t *testing.T, gdb *gorm.DB, itemID uint, kind string) {
	t.Helper()
	e := models.LedgerEntry{WorkItemID: itemID, Actor: "U1", Timestamp: time.Now(), EntryKind: kind}
	if err := gdb.Create(&e).Error; err != nil {
		t.Fatal(err)
	}
}

func TestScope_Visibility(t *testing.T) {
	gdb := openTestDB(t)
	seedItem(t, gdb, models.WorkItem{Owner: "U1", Supervisor: "M1", Status: models.StatusPending, Title: "mine"})
	seedItem(t, gdb, models.WorkItem{Owner: "U2", Supervisor: "M1", Status: models.StatusPending, Title: "peer"})
	seedItem(t, gdb, models.WorkItem{Owner: "U3", Supervisor: "M2", Status: models.StatusPending, Title: "other team"})

	tests := []struct {
		name  string
		scope Scope
		want  int
	}{
		{"own items", Scope{Actor: "U1"}, 1},
		{"team view as supervisor", Scope{Actor: "M1", TeamView: true}, 2},
		{"team view as admin", Scope{Actor: "ROOT", TeamView: true, Admin: true}, 3},
		{"team view without reports", Scope{Actor: "U1", TeamView: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Board(gdb, tt.scope, 3)
			if err != nil {
				t.Fatalf("Board: %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("len(rows) = %d, want %d", len(rows), tt.want)
			}
		})
	}
}

func TestBoard_IncludesStaleActiveItems(t *testing.T) {
	gdb := openTestDB(t)
	old := time.Now().AddDate(0, 0, -30)

	// Old but still active: stays on the board.
	stale := models.WorkItem{Owner: "U1", Status: models.StatusBlocked, Title: "stuck", LastUpdatedAt: old}
	if err := gdb.Create(&stale).Error; err != nil {
		t.Fatal(err)
	}
	gdb.Model(&stale).Update("created_at", old)

	// Old and completed: drops off.
	done := models.WorkItem{Owner: "U1", Status: models.StatusCompleted, Title: "done", LastUpdatedAt: old}
	if err := gdb.Create(&done).Error; err != nil {
		t.Fatal(err)
	}
	gdb.Model(&done).Update("created_at", old)

	// Recently created and completed: still visible in the window.
	seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusCompleted, Title: "fresh done"})

	rows, err := Board(gdb, Scope{Actor: "U1"}, 3)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.Title == "done" {
			t.Error("old completed item should not be on the board")
		}
	}
}

func TestBoard_OrdersByLastUpdate(t *testing.T) {
	gdb := openTestDB(t)
	now := time.Now()
	seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusPending, Title: "older", LastUpdatedAt: now.Add(-2 * time.Hour)})
	seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusPending, Title: "newer", LastUpdatedAt: now})

	rows, err := Board(gdb, Scope{Actor: "U1"}, 3)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(rows) != 2 || rows[0].Title != "newer" {
		t.Errorf("first row = %q, want the most recently updated", rows[0].Title)
	}
}

func TestBoard_FillsLogCounts(t *testing.T) {
	gdb := openTestDB(t)
	id := seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusPending, Title: "counted"})
	seedEntry(t, gdb, id, models.KindCreate)
	seedEntry(t, gdb, id, models.KindProgress)
	seedEntry(t, gdb, id, models.KindProgress)

	rows, err := Board(gdb, Scope{Actor: "U1"}, 3)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(rows) != 1 || rows[0].LogCount != 3 {
		t.Errorf("LogCount = %d, want 3", rows[0].LogCount)
	}
}

func TestBuildSummary(t *testing.T) {
	gdb := openTestDB(t)
	seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusCompleted, Title: "a"})
	seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusCompleted, Title: "b"})
	seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusPending, Title: "c"})
	seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusHelpNeeded, Title: "d"})
	seedItem(t, gdb, models.WorkItem{Owner: "U2", Status: models.StatusPending, Title: "not mine"})

	s, err := BuildSummary(gdb, Scope{Actor: "U1"}, 30)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
	if s.Completed != 2 {
		t.Errorf("Completed = %d, want 2", s.Completed)
	}
	if s.Pending != 1 {
		t.Errorf("Pending = %d, want 1", s.Pending)
	}
	if s.HelpNeeded != 1 {
		t.Errorf("HelpNeeded = %d, want 1", s.HelpNeeded)
	}
	if s.CompletedPercent != 50 {
		t.Errorf("CompletedPercent = %d, want 50", s.CompletedPercent)
	}
}

func TestBuildSummary_EmptyScope(t *testing.T) {
	gdb := openTestDB(t)
	s, err := BuildSummary(gdb, Scope{Actor: "NOBODY"}, 30)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if s.Total != 0 || s.CompletedPercent != 0 {
		t.Errorf("summary = %+v, want zeros", s)
	}
}

func TestLedger(t *testing.T) {
	gdb := openTestDB(t)
	id := seedItem(t, gdb, models.WorkItem{Owner: "U1", Status: models.StatusPending, Title: "logged"})
	seedEntry(t, gdb, id, models.KindCreate)
	seedEntry(t, gdb, id, models.KindProgress)

	entries, err := Ledger(gdb, id)
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	// Newest first; equal timestamps fall back to descending ID.
	if entries[0].EntryKind != models.KindProgress {
		t.Errorf("entries[0] = %s, want the latest entry", entries[0].EntryKind)
	}
}

func TestLedger_NotFound(t *testing.T) {
	gdb := openTestDB(t)
	_, err := Ledger(gdb, 9999)
	if err == nil {
		t.Fatal("expected error for missing item")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
	if IsNotFound(errors.New("other")) {
		t.Error("IsNotFound reports true for unrelated errors")
	}
}
