package fanout

import (
	"errors"
	"strings"
	"testing"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubDir struct {
	admins   map[string]bool
	managers map[string]string
	depts    map[string][]string
	deptErr  error
}

func (d *stubDir) IsAdmin(user string) (bool, error) {
	return d.admins[strings.ToLower(user)], nil
}

func (d *stubDir) DirectManagerOf(user string) (string, error) {
	return d.managers[strings.ToLower(user)], nil
}

func (d *stubDir) MembersOf(department string) ([]string, error) {
	if d.deptErr != nil {
		return nil, d.deptErr
	}
	return d.depts[department], nil
}

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

func seedParent(t *testing.T, gdb *gorm.DB) *models.WorkItem {
	t.Helper()
	subject := "ORD-9"
	parent := &models.WorkItem{
		Owner: "U1", Supervisor: "M1", Status: models.StatusHelpNeeded,
		Category: "SALES", SubjectRef: &subject, Title: "Close the quarter",
		DetailText: "Original detail.",
	}
	if err := gdb.Create(parent).Error; err != nil {
		t.Fatal(err)
	}
	return parent
}

func TestDispatch_ExpandsDepartmentAlias(t *testing.T) {
	gdb := openTestDB(t)
	dir := &stubDir{depts: map[string][]string{"OPS": {"u2", "u3", "u4"}}}
	parent := seedParent(t, gdb)

	report := New(gdb, dir).Dispatch(parent, "U1", []string{"DEPT_OPS"}, "All hands.")
	if report.Requested != 3 {
		t.Errorf("Requested = %d, want 3", report.Requested)
	}
	if report.Created != 3 {
		t.Errorf("Created = %d, want 3", report.Created)
	}
	if len(report.Failures) != 0 {
		t.Errorf("Failures = %+v, want none", report.Failures)
	}

	var children []models.WorkItem
	if err := gdb.Where("parent_id = ?", parent.ID).Order("owner ASC").Find(&children).Error; err != nil {
		t.Fatal(err)
	}
	want := []string{"U2", "U3", "U4"}
	if len(children) != len(want) {
		t.Fatalf("len(children) = %d, want %d", len(children), len(want))
	}
	for i, c := range children {
		if c.Owner != want[i] {
			t.Errorf("children[%d].Owner = %s, want %s", i, c.Owner, want[i])
		}
	}
}

func TestDispatch_DedupesAndDropsRequester(t *testing.T) {
	gdb := openTestDB(t)
	dir := &stubDir{depts: map[string][]string{"OPS": {"u1", "u2"}}}
	parent := seedParent(t, gdb)

	// u2 appears individually and via the alias; u1 is the requester.
	report := New(gdb, dir).Dispatch(parent, "u1", []string{"u2", "U2", "DEPT_OPS", " "}, "")
	if report.Requested != 1 {
		t.Errorf("Requested = %d, want 1 (deduped, requester removed)", report.Requested)
	}
	if report.Created != 1 {
		t.Errorf("Created = %d, want 1", report.Created)
	}
}

func TestDispatch_SplitsDelegationFromHelp(t *testing.T) {
	gdb := openTestDB(t)
	// u3 reports to u1; u2 is a peer.
	dir := &stubDir{managers: map[string]string{"u3": "U1"}}
	parent := seedParent(t, gdb)

	New(gdb, dir).Dispatch(parent, "U1", []string{"u2", "u3"}, "Spread the load.")

	var children []models.WorkItem
	if err := gdb.Where("parent_id = ?", parent.ID).Order("owner ASC").Find(&children).Error; err != nil {
		t.Fatal(err)
	}
	if len(children) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(children))
	}

	peer, sub := children[0], children[1]
	if peer.Priority != models.PriorityAlert {
		t.Errorf("peer priority = %s, want %s", peer.Priority, models.PriorityAlert)
	}
	if !strings.HasPrefix(peer.Title, "Help - [U1] - ") {
		t.Errorf("peer title = %q, want Help prefix", peer.Title)
	}
	if sub.Priority != models.PriorityHigh {
		t.Errorf("subordinate priority = %s, want %s", sub.Priority, models.PriorityHigh)
	}
	if !strings.HasPrefix(sub.Title, "Delegated - [U1] - ") {
		t.Errorf("subordinate title = %q, want Delegated prefix", sub.Title)
	}
}

func TestDispatch_AdminRequesterDelegatesToAll(t *testing.T) {
	gdb := openTestDB(t)
	dir := &stubDir{admins: map[string]bool{"root": true}}
	parent := seedParent(t, gdb)

	New(gdb, dir).Dispatch(parent, "root", []string{"u2"}, "")

	var child models.WorkItem
	if err := gdb.Where("parent_id = ?", parent.ID).First(&child).Error; err != nil {
		t.Fatal(err)
	}
	if child.Priority != models.PriorityHigh {
		t.Errorf("priority = %s, want %s (admin requester delegates)", child.Priority, models.PriorityHigh)
	}
}

func TestDispatch_ChildLedgerImpliesBornStatus(t *testing.T) {
	gdb := openTestDB(t)
	dir := &stubDir{}
	parent := seedParent(t, gdb)

	report := New(gdb, dir).Dispatch(parent, "U1", []string{"u2"}, "Take a look.")
	if report.Created != 1 {
		t.Fatalf("Created = %d, want 1", report.Created)
	}

	var child models.WorkItem
	if err := gdb.First(&child, report.ChildIDs[0]).Error; err != nil {
		t.Fatal(err)
	}
	if child.Status != models.StatusHelpNeeded {
		t.Errorf("child status = %s, want %s", child.Status, models.StatusHelpNeeded)
	}
	if child.Supervisor != "U1" {
		t.Errorf("child supervisor = %s, want the requester", child.Supervisor)
	}
	if child.SubjectRef == nil || *child.SubjectRef != "ORD-9" {
		t.Error("child subject not inherited from parent")
	}
	if child.DetailText != "Take a look." {
		t.Errorf("child detail = %q, want the note", child.DetailText)
	}

	var entries []models.LedgerEntry
	if err := gdb.Where("work_item_id = ?", child.ID).Order("id ASC").Find(&entries).Error; err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (CREATE then HELP_CALL)", len(entries))
	}
	if entries[0].EntryKind != models.KindCreate {
		t.Errorf("entries[0] = %s, want %s", entries[0].EntryKind, models.KindCreate)
	}
	if entries[1].EntryKind != models.KindHelpCall {
		t.Errorf("entries[1] = %s, want %s", entries[1].EntryKind, models.KindHelpCall)
	}
	if entries[1].TargetHelper == nil || *entries[1].TargetHelper != "U2" {
		t.Error("entries[1].TargetHelper not set to the child owner")
	}
}

func TestDispatch_NoteFallsBackToParentDetail(t *testing.T) {
	gdb := openTestDB(t)
	parent := seedParent(t, gdb)

	report := New(gdb, &stubDir{}).Dispatch(parent, "U1", []string{"u2"}, "")
	var child models.WorkItem
	if err := gdb.First(&child, report.ChildIDs[0]).Error; err != nil {
		t.Fatal(err)
	}
	if child.DetailText != "Original detail." {
		t.Errorf("child detail = %q, want the parent's detail", child.DetailText)
	}
}

func TestDispatch_AliasFailureDoesNotBlockOthers(t *testing.T) {
	gdb := openTestDB(t)
	dir := &stubDir{deptErr: errors.New("directory offline")}
	parent := seedParent(t, gdb)

	report := New(gdb, dir).Dispatch(parent, "U1", []string{"DEPT_OPS", "u2"}, "")
	if len(report.Failures) != 1 {
		t.Fatalf("Failures = %+v, want 1", report.Failures)
	}
	if report.Failures[0].Target != "DEPT_OPS" {
		t.Errorf("failed target = %s, want DEPT_OPS", report.Failures[0].Target)
	}
	if report.Created != 1 {
		t.Errorf("Created = %d, want 1 (individual target still served)", report.Created)
	}
}

func TestDispatch_EmptyTargets(t *testing.T) {
	gdb := openTestDB(t)
	parent := seedParent(t, gdb)

	report := New(gdb, &stubDir{}).Dispatch(parent, "U1", nil, "")
	if report.Requested != 0 || report.Created != 0 || len(report.Failures) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}
