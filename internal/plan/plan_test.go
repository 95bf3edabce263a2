package plan

import (
	"testing"
	"time"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

func TestExtractCheckboxes(t *testing.T) {
	md := "# Plan\n\n- [ ] Write paper 2h\n* [x] Workout 40m\n- [X] Review: notes 25m\n- not a checkbox\n"
	boxes := ExtractCheckboxes(md)
	if len(boxes) != 3 {
		t.Fatalf("got %d checkboxes, want 3", len(boxes))
	}
	if boxes[0].Key != "line-2" || boxes[0].Label != "Write paper 2h" || boxes[0].Checked {
		t.Errorf("first box = %+v", boxes[0])
	}
	if !boxes[1].Checked || boxes[1].Key != "line-3" {
		t.Errorf("second box = %+v", boxes[1])
	}
	if !boxes[2].Checked {
		t.Errorf("capital X not recognized: %+v", boxes[2])
	}
}

func TestDurationFromLabel(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"Write paper 2h", 120},
		{"Workout 90m", 90},
		{"Deep work 1.5h", 90},
		{"Maintenance 20M", 20},
		{"No duration here", 0},
		{"2h in the middle", 0},
	}
	for _, tt := range tests {
		if got := DurationFromLabel(tt.label); got != tt.want {
			t.Errorf("DurationFromLabel(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestTitleFromLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Deadline paper: experiment writeup 2h", "Deadline paper"},
		{"Daily maintenance 20m", "Daily maintenance"},
		{"Just a title", "Just a title"},
	}
	for _, tt := range tests {
		if got := TitleFromLabel(tt.label); got != tt.want {
			t.Errorf("TitleFromLabel(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

// Saving a new plan preserves the old one in plan_prev.md and normalizes
// the trailing newline.
func TestSavePreservesPrevious(t *testing.T) {
	ws := testWorkspace(t)

	if err := Save(ws, "# Plan — 2026-02-10\n"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := Save(ws, "# Plan — 2026-02-11\n\n- [ ] Item 1h\n\n"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	prev, err := LoadPrev(ws)
	if err != nil {
		t.Fatalf("LoadPrev: %v", err)
	}
	if prev != "# Plan — 2026-02-10\n" {
		t.Errorf("plan_prev = %q", prev)
	}

	cur, err := Load(ws)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cur != "# Plan — 2026-02-11\n\n- [ ] Item 1h\n" {
		t.Errorf("plan = %q", cur)
	}
}

// A draft from another day is discarded on load.
func TestLoadDraftResetsOtherDay(t *testing.T) {
	ws := testWorkspace(t)

	stale := types.NewCheckinDraft("2026-02-10")
	stale.Items["line-2"] = types.CheckinItem{Label: "Old item", Done: true}
	if err := SaveDraft(ws, stale); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	d, err := LoadDraft(ws, "2026-02-11")
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if d.Day != "2026-02-11" || len(d.Items) != 0 || d.Mode != types.ModeCommit {
		t.Errorf("stale draft not reset: %+v", d)
	}

	d.Items["line-2"] = types.CheckinItem{Label: "Write paper 2h", Done: true}
	d.Reflection = "Solid day."
	if err := SaveDraft(ws, d); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	back, err := LoadDraft(ws, "2026-02-11")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.UpdatedAt == "" {
		t.Error("updatedAt not stamped")
	}
	if back.Items["line-2"].Label != "Write paper 2h" || back.Reflection != "Solid day." {
		t.Errorf("draft round trip lost data: %+v", back)
	}
}

func TestClearDraft(t *testing.T) {
	ws := testWorkspace(t)
	d := types.NewCheckinDraft("2026-02-11")
	d.Items["line-2"] = types.CheckinItem{Label: "x", Done: true}
	if err := SaveDraft(ws, d); err != nil {
		t.Fatal(err)
	}
	if err := ClearDraft(ws, "2026-02-11"); err != nil {
		t.Fatalf("ClearDraft: %v", err)
	}
	back, err := LoadDraft(ws, "2026-02-11")
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Items) != 0 || back.Reflection != "" {
		t.Errorf("draft not cleared: %+v", back)
	}
}

func testWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws := &workspace.Workspace{
		Root: t.TempDir(),
		Now:  func() time.Time { return time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC) },
	}
	if err := fsio.WriteTextAtomic(ws.ProfilePath(), "timezone: UTC\n"); err != nil {
		t.Fatal(err)
	}
	return ws
}
