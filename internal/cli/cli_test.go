package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/haricheung/moltfocus/internal/focus"
	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// execute runs the command tree against a temp workspace and captures stdout.
func execute(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--root", root}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func seedWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	profile := `timezone: UTC
wake_time: "07:30"
work_blocks:
  - 09:00-12:00
  - 13:00-18:00
`
	if err := fsio.WriteTextAtomic(filepath.Join(root, "planner", "profile.yaml"), profile); err != nil {
		t.Fatal(err)
	}
	tasks := `week_start: mon
tasks:
  - id: thesis
    title: Thesis chapter
    type: deadline_project
    priority: 9
    status: active
    remaining_hours: 12
    deadline: 2099-01-01
    min_chunk_minutes: 60
    max_chunk_minutes: 120
`
	if err := fsio.WriteTextAtomic(filepath.Join(root, "planner", "tasks.yaml"), tasks); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestStatusDashboard(t *testing.T) {
	root := seedWorkspace(t)
	out, err := execute(t, root)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Streak: 0", "Plan: none yet"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateThenPlan(t *testing.T) {
	root := seedWorkspace(t)
	out, err := execute(t, root, "generate")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Plan for ") {
		t.Errorf("generate output = %q", out)
	}

	out, err = execute(t, root, "plan")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(out, "# Plan — ") || !strings.Contains(out, "## Schedule") {
		t.Errorf("plan output = %q", out)
	}
}

func TestTasksLifecycle(t *testing.T) {
	root := seedWorkspace(t)

	out, err := execute(t, root, "tasks", "create", "reading",
		"--title", "Evening reading", "--type", "open_ended", "--priority", "3")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created reading") {
		t.Errorf("create output = %q", out)
	}

	out, err = execute(t, root, "tasks", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "thesis") || !strings.Contains(out, "reading") {
		t.Errorf("list output = %q", out)
	}

	out, err = execute(t, root, "tasks", "update", "reading", "--priority", "8")
	if err != nil || !strings.Contains(out, "Updated reading") {
		t.Errorf("update: %q, %v", out, err)
	}

	out, err = execute(t, root, "tasks", "show", "reading")
	if err != nil || !strings.Contains(out, "priority: 8") {
		t.Errorf("show: %q, %v", out, err)
	}

	out, err = execute(t, root, "tasks", "delete", "reading")
	if err != nil || !strings.Contains(out, "Deleted reading") {
		t.Errorf("delete: %q, %v", out, err)
	}

	if _, err := execute(t, root, "tasks", "show", "reading"); err == nil {
		t.Error("show after delete should fail")
	}
}

func TestFinalizeWithoutDraftFails(t *testing.T) {
	root := seedWorkspace(t)
	_, err := execute(t, root, "finalize")
	if err == nil || !strings.Contains(err.Error(), "no-draft-for-today") {
		t.Errorf("err = %v", err)
	}
}

func TestFocusCommands(t *testing.T) {
	root := seedWorkspace(t)

	out, err := execute(t, root, "focus", "start", "thesis", "Thesis chapter", "30")
	if err != nil || !strings.Contains(out, "30 min planned") {
		t.Fatalf("start: %q, %v", out, err)
	}

	out, err = execute(t, root, "focus", "status")
	if err != nil || !strings.Contains(out, "Thesis chapter") {
		t.Errorf("status: %q, %v", out, err)
	}

	out, err = execute(t, root, "focus", "interrupt")
	if err != nil || !strings.Contains(out, "1 so far") {
		t.Errorf("interrupt: %q, %v", out, err)
	}

	out, err = execute(t, root, "focus", "stop", "--completed")
	if err != nil || !strings.Contains(out, "Focus stopped") {
		t.Errorf("stop: %q, %v", out, err)
	}

	out, err = execute(t, root, "focus", "stats", "--days", "7")
	if err != nil || !strings.Contains(out, "last 7 days") {
		t.Errorf("stats: %q, %v", out, err)
	}
}

func TestRenderTasksTable(t *testing.T) {
	days := 4
	got := renderTasks([]task.ComputedTask{
		{Task: types.Task{ID: "thesis", Title: "Thesis chapter", Type: types.TaskDeadlineProject, Priority: 9},
			UrgencyScore: 12.5, DaysUntilDeadline: &days},
	})
	for _, want := range []string{"thesis", "Thesis chapter", "12.50", "due in 4d"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}

	if got := renderTasks(nil); !strings.Contains(got, "No active tasks") {
		t.Errorf("empty table = %q", got)
	}
}

func TestRenderStatusFields(t *testing.T) {
	rating := "good"
	day := "2026-02-11"
	summary := "[Good] 2026-02-11: done: a."
	st := types.State{Streak: 5, LastRating: &rating, LastFinalizedDate: &day, LastSummary: &summary}
	got := renderStatus(st, true, &types.FocusSession{TaskLabel: "Thesis", StartedAt: "2026-02-11T09:00:00", PlannedMinutes: 25})
	for _, want := range []string{"Streak: 5", "GOOD", "2026-02-11", "Plan: ready", "Thesis"} {
		if !strings.Contains(got, want) {
			t.Errorf("status missing %q:\n%s", want, got)
		}
	}
}

func TestRenderFocusStats(t *testing.T) {
	got := renderFocusStats(7, focus.Stats{TotalSessions: 3, TotalMinutes: 75, AvgSessionMinutes: 25, CompletionRate: 0.67})
	for _, want := range []string{"last 7 days", "3", "75.0", "67%"} {
		if !strings.Contains(got, want) {
			t.Errorf("stats missing %q:\n%s", want, got)
		}
	}
}

func TestCheckinIntroWording(t *testing.T) {
	got := fmt.Sprintf(checkinIntro, "2026-02-11", 3)
	want := "Check-in for 2026-02-11: 3 items. y = done, n = not done, enter = keep.\n\n"
	if got != want {
		t.Errorf("intro = %q, want %q", got, want)
	}
}

func TestClipWideLabels(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip = %q", got)
	}
	got := clip("a very long label that overflows", 10)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("clip = %q", got)
	}
}
