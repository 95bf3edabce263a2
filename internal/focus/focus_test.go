package focus

import (
	"errors"
	"testing"
	"time"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

// clockWS returns a workspace whose clock the test can move.
func clockWS(t *testing.T) (*workspace.Workspace, *time.Time) {
	t.Helper()
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	ws := &workspace.Workspace{Root: t.TempDir(), Now: func() time.Time { return now }}
	return ws, &now
}

func TestStartStopLifecycle(t *testing.T) {
	ws, now := clockWS(t)

	s, err := Start(ws, "deadline-paper", "Deadline paper", 25)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.ID == "" || s.StartedAt != "2026-02-11T09:00:00" || s.PlannedMinutes != 25 {
		t.Errorf("session = %+v", s)
	}

	// Second start conflicts.
	if _, err := Start(ws, "other", "", 10); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("got %v, want ErrAlreadyActive", err)
	}

	*now = now.Add(26 * time.Minute)
	stopped, err := Stop(ws, true, "went well")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped.ElapsedMinutes != 26.0 || !stopped.Completed || stopped.Notes != "went well" {
		t.Errorf("stopped = %+v", stopped)
	}

	st, err := Load(ws)
	if err != nil {
		t.Fatal(err)
	}
	if st.ActiveSession != nil || len(st.History) != 1 {
		t.Errorf("state after stop = %+v", st)
	}

	// Idle stop fails.
	if _, err := Stop(ws, false, ""); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("got %v, want ErrNoActiveSession", err)
	}
}

// Stopping a session burns the elapsed minutes off a deadline project.
func TestStopLogsTaskProgress(t *testing.T) {
	ws, now := clockWS(t)
	remaining := 10.0
	tf := &types.TasksFile{WeekStart: "mon", Tasks: []types.Task{
		{ID: "deadline-paper", Title: "Deadline paper", Type: types.TaskDeadlineProject,
			Priority: 8, Status: types.StatusActive, RemainingHours: &remaining,
			MinChunkMinutes: 25, MaxChunkMinutes: 180},
	}}
	if err := task.NewStore(ws).Save(tf); err != nil {
		t.Fatal(err)
	}

	if _, err := Start(ws, "deadline-paper", "Deadline paper", 30); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(30 * time.Minute)
	if _, err := Stop(ws, true, ""); err != nil {
		t.Fatal(err)
	}

	back, err := task.NewStore(ws).Load()
	if err != nil {
		t.Fatal(err)
	}
	got := *task.Find(back, "deadline-paper").RemainingHours
	if got != 9.5 {
		t.Errorf("remaining_hours = %v, want 9.5", got)
	}
}

// Unknown task IDs and broken task files never fail the stop itself.
func TestStopSurvivesTaskFailure(t *testing.T) {
	ws, now := clockWS(t)
	if err := fsio.WriteTextAtomic(ws.TasksPath(), "week_start: [broken"); err != nil {
		t.Fatal(err)
	}
	if _, err := Start(ws, "ghost", "", 25); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(5 * time.Minute)
	if _, err := Stop(ws, false, ""); err != nil {
		t.Errorf("Stop failed on bad tasks.yaml: %v", err)
	}
}

func TestInterrupt(t *testing.T) {
	ws, _ := clockWS(t)

	// Idle interrupt is a quiet no-op.
	s, err := Interrupt(ws)
	if err != nil || s != nil {
		t.Errorf("idle interrupt = %+v, %v", s, err)
	}

	if _, err := Start(ws, "deadline-paper", "", 25); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if s, err = Interrupt(ws); err != nil {
			t.Fatal(err)
		}
	}
	if s.Interruptions != 2 {
		t.Errorf("interruptions = %d, want 2", s.Interruptions)
	}

	active, err := Active(ws)
	if err != nil || active == nil || active.Interruptions != 2 {
		t.Errorf("persisted active = %+v, %v", active, err)
	}
}

func TestStatsOver(t *testing.T) {
	ws, now := clockWS(t)
	run := func(taskID string, minutes int, completed bool, interruptions int) {
		if _, err := Start(ws, taskID, "", 25); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < interruptions; i++ {
			if _, err := Interrupt(ws); err != nil {
				t.Fatal(err)
			}
		}
		*now = now.Add(time.Duration(minutes) * time.Minute)
		if _, err := Stop(ws, completed, ""); err != nil {
			t.Fatal(err)
		}
	}

	run("a", 25, true, 1)
	run("b", 15, false, 0)

	// A session from twelve days ago falls outside a 7-day window.
	old := *now
	*now = now.AddDate(0, 0, -12)
	run("c", 30, true, 0)
	*now = old

	stats, err := StatsOver(ws, 7)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSessions != 2 {
		t.Fatalf("sessions = %d, want 2", stats.TotalSessions)
	}
	if stats.TotalMinutes != 40.0 || stats.AvgSessionMinutes != 20.0 {
		t.Errorf("minutes = %v avg %v", stats.TotalMinutes, stats.AvgSessionMinutes)
	}
	if stats.TotalInterruptions != 1 || stats.CompletionRate != 0.5 {
		t.Errorf("interruptions = %d rate %v", stats.TotalInterruptions, stats.CompletionRate)
	}
}
