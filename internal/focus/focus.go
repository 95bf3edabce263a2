// Package focus implements the single-active-session focus timer. Sessions
// live in focus.json; stopping a session logs its elapsed minutes against
// the matching task.
package focus

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

var (
	// ErrAlreadyActive reports a start while a session is running.
	ErrAlreadyActive = errors.New("focus session already active")
	// ErrNoActiveSession reports a stop with no session running.
	ErrNoActiveSession = errors.New("no active focus session")
)

// Load reads focus.json, returning an empty state when absent.
func Load(ws *workspace.Workspace) (*types.FocusState, error) {
	st := &types.FocusState{}
	if err := fsio.ReadJSON(ws.FocusPath(), st); err != nil {
		return nil, err
	}
	if st.History == nil {
		st.History = []types.FocusSession{}
	}
	return st, nil
}

func save(ws *workspace.Workspace, st *types.FocusState) error {
	return fsio.WriteJSONAtomic(ws.FocusPath(), st)
}

// Start opens a new session. Fails with ErrAlreadyActive when one is running.
func Start(ws *workspace.Workspace, taskID, label string, minutes int) (*types.FocusSession, error) {
	st, err := Load(ws)
	if err != nil {
		return nil, err
	}
	if st.ActiveSession != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyActive, st.ActiveSession.TaskID)
	}
	if minutes <= 0 {
		minutes = types.DefaultFocusMinutes
	}
	if label == "" {
		label = taskID
	}
	s := &types.FocusSession{
		ID:             uuid.NewString(),
		TaskID:         taskID,
		TaskLabel:      label,
		StartedAt:      ws.NowLocal().Format(types.TimestampLayout),
		PlannedMinutes: minutes,
	}
	st.ActiveSession = s
	if err := save(ws, st); err != nil {
		return nil, err
	}
	return s, nil
}

// Stop closes the active session, moves it to history, and credits the
// elapsed minutes to the task. Task-update failures are logged, not returned:
// the session record itself must never be lost over a tasks.yaml problem.
func Stop(ws *workspace.Workspace, completed bool, notes string) (*types.FocusSession, error) {
	st, err := Load(ws)
	if err != nil {
		return nil, err
	}
	if st.ActiveSession == nil {
		return nil, ErrNoActiveSession
	}
	s := st.ActiveSession
	now := ws.NowLocal()
	ended := now.Format(types.TimestampLayout)
	s.EndedAt = &ended
	s.Completed = completed
	s.Notes = notes
	if started, perr := time.ParseInLocation(types.TimestampLayout, s.StartedAt, now.Location()); perr == nil {
		s.ElapsedMinutes = math.Round(now.Sub(started).Minutes()*10) / 10
	}
	st.History = append(st.History, *s)
	st.ActiveSession = nil
	if err := save(ws, st); err != nil {
		return nil, err
	}

	logProgress(ws, s)
	return s, nil
}

func logProgress(ws *workspace.Workspace, s *types.FocusSession) {
	minutes := int(math.Round(s.ElapsedMinutes))
	if minutes <= 0 {
		return
	}
	store := task.NewStore(ws)
	tf, err := store.Load()
	if err != nil {
		slog.Error("[FOCUS] load tasks for progress", "error", err)
		return
	}
	t := task.Find(tf, s.TaskID)
	if t == nil {
		return
	}
	task.UpdateProgress(t, minutes)
	if err := store.Save(tf); err != nil {
		slog.Error("[FOCUS] save task progress", "task", s.TaskID, "error", err)
	}
}

// Interrupt bumps the interruption counter on the active session. Idle is a
// no-op that returns nil.
func Interrupt(ws *workspace.Workspace) (*types.FocusSession, error) {
	st, err := Load(ws)
	if err != nil {
		return nil, err
	}
	if st.ActiveSession == nil {
		return nil, nil
	}
	st.ActiveSession.Interruptions++
	if err := save(ws, st); err != nil {
		return nil, err
	}
	return st.ActiveSession, nil
}

// Active returns the running session, nil when idle.
func Active(ws *workspace.Workspace) (*types.FocusSession, error) {
	st, err := Load(ws)
	if err != nil {
		return nil, err
	}
	return st.ActiveSession, nil
}

// Stats summarizes focus history over a trailing window of days.
type Stats struct {
	TotalSessions      int     `json:"totalSessions"`
	TotalMinutes       float64 `json:"totalMinutes"`
	AvgSessionMinutes  float64 `json:"avgSessionMinutes"`
	TotalInterruptions int     `json:"totalInterruptions"`
	CompletionRate     float64 `json:"completionRate"`
}

// StatsOver aggregates sessions started within the last N days.
func StatsOver(ws *workspace.Workspace, days int) (Stats, error) {
	st, err := Load(ws)
	if err != nil {
		return Stats{}, err
	}
	cutoff := ws.NowLocal().AddDate(0, 0, -days).Format(types.TimestampLayout)

	var out Stats
	completed := 0
	for _, s := range st.History {
		if s.StartedAt < cutoff {
			continue
		}
		out.TotalSessions++
		out.TotalMinutes += s.ElapsedMinutes
		out.TotalInterruptions += s.Interruptions
		if s.Completed {
			completed++
		}
	}
	if out.TotalSessions > 0 {
		out.AvgSessionMinutes = math.Round(out.TotalMinutes/float64(out.TotalSessions)*10) / 10
		out.CompletionRate = math.Round(float64(completed)/float64(out.TotalSessions)*1000) / 1000
	}
	out.TotalMinutes = math.Round(out.TotalMinutes*10) / 10
	return out, nil
}
