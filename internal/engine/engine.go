// Package engine is the public operation surface of the planner. Transports
// (CLI today, anything else tomorrow) call these methods; each one loads
// what it needs from the workspace, mutates in memory, and writes atomically.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/haricheung/moltfocus/internal/agentctx"
	"github.com/haricheung/moltfocus/internal/analytics"
	"github.com/haricheung/moltfocus/internal/finalize"
	"github.com/haricheung/moltfocus/internal/focus"
	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/hooks"
	"github.com/haricheung/moltfocus/internal/journal"
	"github.com/haricheung/moltfocus/internal/plan"
	"github.com/haricheung/moltfocus/internal/reflection"
	"github.com/haricheung/moltfocus/internal/schedule"
	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

// Engine exposes every planner operation over one workspace.
type Engine struct {
	ws         *workspace.Workspace
	journal    *journal.Journal
	dispatcher *hooks.Dispatcher
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithJournal routes operation events to j. A nil journal disables logging.
func WithJournal(j *journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithoutHooks disables hook dispatch entirely (used by tests).
func WithoutHooks() Option {
	return func(e *Engine) { e.dispatcher = nil }
}

// New builds an engine over a resolved workspace. By default it journals to
// planner/events.jsonl and dispatches hooks from hooks.yaml.
func New(ws *workspace.Workspace, opts ...Option) *Engine {
	e := &Engine{
		ws:         ws,
		journal:    journal.New(ws.EventLogPath()),
		dispatcher: hooks.NewDispatcher(ws),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workspace returns the engine's resolved workspace.
func (e *Engine) Workspace() *workspace.Workspace { return e.ws }

// --- Profile and tasks ---

func (e *Engine) Profile() (types.Profile, error) { return e.ws.Profile() }

func (e *Engine) Tasks() (*types.TasksFile, error) { return task.NewStore(e.ws).Load() }

// ComputedTasks returns the active tasks with urgency projections, most
// urgent first.
func (e *Engine) ComputedTasks() ([]task.ComputedTask, error) {
	tf, err := e.Tasks()
	if err != nil {
		return nil, err
	}
	return task.ComputedTasks(tf, e.ws.NowLocal()), nil
}

func (e *Engine) CreateTask(t types.Task) (types.Task, error) {
	store := task.NewStore(e.ws)
	tf, err := store.Load()
	if err != nil {
		return types.Task{}, err
	}
	created, err := task.Create(tf, t)
	if err != nil {
		return types.Task{}, err
	}
	if err := store.Save(tf); err != nil {
		return types.Task{}, err
	}
	e.journal.Append(journal.Event{Kind: journal.KindTaskCreated, Day: e.ws.Today(), TaskID: created.ID})
	return created, nil
}

func (e *Engine) UpdateTask(id string, p task.Patch) (types.Task, error) {
	store := task.NewStore(e.ws)
	tf, err := store.Load()
	if err != nil {
		return types.Task{}, err
	}
	updated, err := task.Update(tf, id, p)
	if err != nil {
		return types.Task{}, err
	}
	if err := store.Save(tf); err != nil {
		return types.Task{}, err
	}
	e.journal.Append(journal.Event{Kind: journal.KindTaskUpdated, Day: e.ws.Today(), TaskID: id})
	return updated, nil
}

func (e *Engine) DeleteTask(id string, archive bool) error {
	store := task.NewStore(e.ws)
	tf, err := store.Load()
	if err != nil {
		return err
	}
	if err := task.Delete(tf, id, archive); err != nil {
		return err
	}
	if err := store.Save(tf); err != nil {
		return err
	}
	e.journal.Append(journal.Event{Kind: journal.KindTaskDeleted, Day: e.ws.Today(), TaskID: id})
	return nil
}

// --- Plan and draft ---

func (e *Engine) Plan() (string, error) { return plan.Load(e.ws) }

// SavePlan writes plan.md, preserving the previous plan for change detection.
func (e *Engine) SavePlan(text string) error {
	if err := plan.Save(e.ws, text); err != nil {
		return err
	}
	e.journal.Append(journal.Event{Kind: journal.KindPlanSaved, Day: e.ws.Today()})
	return nil
}

// GeneratePlan builds and writes the schedule for the given date, defaulting
// to today. Plan-generation hooks fire around the write.
func (e *Engine) GeneratePlan(ctx context.Context, date string) (types.DaySchedule, error) {
	target := e.ws.NowLocal()
	if date != "" {
		parsed, err := time.ParseInLocation(types.DateLayout, date, target.Location())
		if err != nil {
			return types.DaySchedule{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
		target = parsed
	}
	day := target.Format(types.DateLayout)
	e.dispatcher.Dispatch(ctx, hooks.PrePlanGenerate, map[string]any{"date": day})
	s, err := schedule.Generate(e.ws, target)
	if err != nil {
		return types.DaySchedule{}, err
	}
	e.dispatcher.Dispatch(ctx, hooks.PostPlanGenerate, map[string]any{
		"date": day, "blocks": len(s.Blocks), "unscheduled": len(s.UnscheduledTasks),
	})
	e.journal.Append(journal.Event{Kind: journal.KindPlanGenerated, Day: day, Blocks: len(s.Blocks)})
	return s, nil
}

// Draft returns today's check-in draft, empty when none exists yet.
func (e *Engine) Draft() (*types.CheckinDraft, error) {
	return plan.LoadDraft(e.ws, e.ws.Today())
}

// SaveCheckinDraft persists the auto-saved draft. Writes for any day other
// than today are rejected: the draft file holds exactly one day's state.
func (e *Engine) SaveCheckinDraft(day string, mode types.Mode, items map[string]types.CheckinItem, reflectionText string) (*types.CheckinDraft, error) {
	today := e.ws.Today()
	if day != "" && day != today {
		return nil, fmt.Errorf("draft day %q is not today (%s)", day, today)
	}
	d := types.NewCheckinDraft(today)
	d.Mode = types.NormalizeMode(string(mode))
	if items != nil {
		d.Items = items
	}
	d.Reflection = reflectionText
	if err := plan.SaveDraft(e.ws, d); err != nil {
		return nil, err
	}
	return d, nil
}

// --- Finalization, analytics, reflections ---

// FinalizeDay runs the end-of-day pipeline.
func (e *Engine) FinalizeDay(ctx context.Context) (finalize.Result, error) {
	res, err := finalize.Run(ctx, e.ws, e.dispatcher)
	if err != nil {
		return res, err
	}
	if res.OK && !res.AlreadyFinalized {
		e.journal.Append(journal.Event{
			Kind: journal.KindDayFinalized, Day: res.Day,
			Rating: string(res.Rating), Streak: res.Streak,
		})
	}
	return res, nil
}

func (e *Engine) Analytics() (types.AnalyticsSummary, error) { return analytics.Load(e.ws) }

func (e *Engine) RefreshAnalytics() (types.AnalyticsSummary, error) { return analytics.Refresh(e.ws) }

// RecentReflections returns the newest n journal sections.
func (e *Engine) RecentReflections(n int) ([]string, error) {
	return reflection.Recent(e.ws, n)
}

// --- Focus ---

func (e *Engine) FocusStart(ctx context.Context, taskID, label string, minutes int) (*types.FocusSession, error) {
	s, err := focus.Start(e.ws, taskID, label, minutes)
	if err != nil {
		return nil, err
	}
	e.dispatcher.Dispatch(ctx, hooks.OnFocusStart, map[string]any{
		"task_id": s.TaskID, "label": s.TaskLabel, "planned_minutes": s.PlannedMinutes,
	})
	e.journal.Append(journal.Event{Kind: journal.KindFocusStart, Day: e.ws.Today(), TaskID: s.TaskID})
	return s, nil
}

func (e *Engine) FocusStop(ctx context.Context, completed bool, notes string) (*types.FocusSession, error) {
	s, err := focus.Stop(e.ws, completed, notes)
	if err != nil {
		return nil, err
	}
	e.dispatcher.Dispatch(ctx, hooks.OnFocusStop, map[string]any{
		"task_id": s.TaskID, "elapsed_minutes": s.ElapsedMinutes, "completed": s.Completed,
	})
	e.journal.Append(journal.Event{
		Kind: journal.KindFocusStop, Day: e.ws.Today(),
		TaskID: s.TaskID, Minutes: s.ElapsedMinutes,
	})
	return s, nil
}

func (e *Engine) FocusInterrupt() (*types.FocusSession, error) { return focus.Interrupt(e.ws) }

func (e *Engine) FocusCurrent() (*types.FocusSession, error) { return focus.Active(e.ws) }

func (e *Engine) FocusStats(days int) (focus.Stats, error) { return focus.StatsOver(e.ws, days) }

// --- State and agent context ---

func (e *Engine) State() (types.State, error) {
	var st types.State
	if err := fsio.ReadJSON(e.ws.StatePath(), &st); err != nil {
		return types.State{}, err
	}
	return st, nil
}

// AgentContext returns the aggregated snapshot, regenerating it from the
// current workspace contents.
func (e *Engine) AgentContext() (agentctx.Context, error) {
	return agentctx.Generate(e.ws)
}
