// Package finalize runs the end-of-day pipeline: rate the day, extend the
// streak, prepend the reflection entry, persist state, credit task progress,
// refresh the derived artifacts, and clear the draft.
//
// The pipeline is idempotent per day. Rating, streak, reflection, and state
// are fatal stages; task progress, analytics, agent context, and hooks are
// best-effort so one bad secondary stage cannot block the day's close.
package finalize

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/haricheung/moltfocus/internal/agentctx"
	"github.com/haricheung/moltfocus/internal/analytics"
	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/hooks"
	"github.com/haricheung/moltfocus/internal/plan"
	"github.com/haricheung/moltfocus/internal/rating"
	"github.com/haricheung/moltfocus/internal/reflection"
	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

const historyCap = 30

// ReasonNoDraft is the gate reason when today has no draft to finalize.
const ReasonNoDraft = "no-draft-for-today"

// Result is the pipeline outcome returned to callers and transports.
type Result struct {
	OK               bool         `json:"ok"`
	Reason           string       `json:"reason,omitempty"`
	AlreadyFinalized bool         `json:"already_finalized,omitempty"`
	Day              string       `json:"day,omitempty"`
	Rating           types.Rating `json:"rating,omitempty"`
	Streak           int          `json:"streak,omitempty"`
	TaskUpdates      []string     `json:"task_updates,omitempty"`
}

// Run executes the pipeline for today. The dispatcher may be nil when no
// hooks should fire. A well-known lockfile serializes concurrent runners
// (UI plus a nightly trigger) around the whole pipeline.
func Run(ctx context.Context, ws *workspace.Workspace, dispatcher *hooks.Dispatcher) (Result, error) {
	lock := flock.New(ws.FinalizeLockPath())
	if ok, err := lock.TryLockContext(ctx, 100*time.Millisecond); err != nil || !ok {
		return Result{}, err
	}
	defer lock.Unlock()

	today := ws.Today()

	// Stage 1: gate on a draft for today and on idempotency. The raw file is
	// read here on purpose: the tolerant draft loader would substitute an
	// empty draft for today and defeat the gate.
	var draft types.CheckinDraft
	if err := fsio.ReadJSON(ws.DraftPath(), &draft); err != nil {
		return Result{}, err
	}
	if draft.Day != today {
		return Result{OK: false, Reason: ReasonNoDraft}, nil
	}
	var st types.State
	if err := fsio.ReadJSON(ws.StatePath(), &st); err != nil {
		return Result{}, err
	}
	if st.LastFinalizedDate != nil && *st.LastFinalizedDate == today {
		res := Result{OK: true, AlreadyFinalized: true, Day: today, Streak: st.Streak}
		if st.LastRating != nil {
			res.Rating = types.Rating(*st.LastRating)
		}
		return res, nil
	}
	mode := types.NormalizeMode(string(draft.Mode))

	dispatcher.Dispatch(ctx, hooks.PreFinalize, map[string]any{"day": today, "mode": string(mode)})

	// Stage 2: plan-change detection, by stripped string equality.
	planText, err := plan.Load(ws)
	if err != nil {
		return Result{}, err
	}
	prevText, err := plan.LoadPrev(ws)
	if err != nil {
		return Result{}, err
	}
	planChanged := strings.TrimSpace(planText) != strings.TrimSpace(prevText)

	// Stage 3: rating, recovery promotion, streak.
	doneLabels, noteLines := collectItems(&draft)
	done := len(doneLabels)
	total := len(plan.ExtractCheckboxes(planText))
	if total == 0 {
		total = len(draft.Items)
	}
	minutes := 0
	for _, label := range doneLabels {
		minutes += plan.DurationFromLabel(label)
	}

	dayRating := rating.Rate(done, total, draft.Reflection, false)
	reflected := len(strings.TrimSpace(draft.Reflection)) >= 30
	if mode == types.ModeRecovery && dayRating == types.RatingBad && (done >= 1 || reflected) {
		dayRating = types.RatingFair
	}
	counts := rating.StreakCounts(done, draft.Reflection, planChanged)
	if counts && (st.LastStreakDate == nil || *st.LastStreakDate != today) {
		if st.LastStreakDate != nil {
			if gap := daysBetween(*st.LastStreakDate, today); gap <= 1 {
				st.Streak++
			} else {
				st.Streak = 1
			}
		} else {
			st.Streak = 1
		}
		d := today
		st.LastStreakDate = &d
	}

	summary := rating.Summarize(today, dayRating, doneLabels, minutes, draft.Reflection)

	// Stage 4: prepend the reflection entry.
	entry := reflection.Entry{
		Day:        today,
		Timestamp:  ws.NowLocal().Format("2006-01-02T15:04"),
		Rating:     dayRating,
		Mode:       mode,
		DoneItems:  doneLabels,
		Notes:      noteLines,
		Reflection: draft.Reflection,
		Summary:    summary,
	}
	if err := reflection.Prepend(ws, entry); err != nil {
		return Result{}, err
	}

	// Stage 5: persist state with the deduplicated, capped history.
	r, m, s2, f := string(dayRating), string(mode), summary, today
	st.LastRating, st.LastMode, st.LastSummary, st.LastFinalizedDate = &r, &m, &s2, &f
	st.History = pushHistory(st.History, types.HistoryEntry{
		Day: today, Rating: dayRating, Mode: mode,
		StreakCounted: counts, DoneCount: done, Total: total,
	})
	if err := fsio.WriteJSONAtomic(ws.StatePath(), &st); err != nil {
		return Result{}, err
	}

	// Stage 6: task progress, best-effort.
	updates := processTasks(ctx, ws, &draft, &st, today, dispatcher)

	// Stages 7-9: derived artifacts and hooks, best-effort.
	if _, err := analytics.Refresh(ws); err != nil {
		slog.Error("[FINALIZE] analytics refresh failed", "error", err)
	}
	if _, err := agentctx.Generate(ws); err != nil {
		slog.Error("[FINALIZE] agent context failed", "error", err)
	}
	dispatcher.Dispatch(ctx, hooks.PostFinalize, map[string]any{
		"day": today, "rating": string(dayRating), "streak": st.Streak, "mode": string(mode),
	})

	// Stage 10: reset the draft for tomorrow.
	if err := plan.ClearDraft(ws, today); err != nil {
		return Result{}, err
	}

	return Result{OK: true, Day: today, Rating: dayRating, Streak: st.Streak, TaskUpdates: updates}, nil
}

// collectItems walks draft items in key order and returns the done labels
// and the rendered "label: comment" note lines.
func collectItems(draft *types.CheckinDraft) (doneLabels, noteLines []string) {
	keys := make([]string, 0, len(draft.Items))
	for k := range draft.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		item := draft.Items[k]
		if item.Done {
			doneLabels = append(doneLabels, item.Label)
		}
		if strings.TrimSpace(item.Comment) != "" {
			noteLines = append(noteLines, item.Label+": "+item.Comment)
		}
	}
	return doneLabels, noteLines
}

func daysBetween(from, to string) int {
	a, err1 := time.Parse(types.DateLayout, from)
	b, err2 := time.Parse(types.DateLayout, to)
	if err1 != nil || err2 != nil {
		return 1 << 30
	}
	return int(b.Sub(a).Hours() / 24)
}

// pushHistory replaces any entry for the same day, sorts ascending, and
// keeps the newest 30.
func pushHistory(history []types.HistoryEntry, e types.HistoryEntry) []types.HistoryEntry {
	out := history[:0]
	for _, h := range history {
		if h.Day != e.Day {
			out = append(out, h)
		}
	}
	out = append(out, e)
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	if len(out) > historyCap {
		out = out[len(out)-historyCap:]
	}
	return out
}

// processTasks runs the weekly reset, credits done items, and archives
// completed tasks. Nothing here is fatal: a tasks.yaml problem is logged and
// the finalization stands.
func processTasks(ctx context.Context, ws *workspace.Workspace, draft *types.CheckinDraft, st *types.State, today string, dispatcher *hooks.Dispatcher) []string {
	store := task.NewStore(ws)
	tf, err := store.Load()
	if err != nil {
		slog.Error("[FINALIZE] load tasks", "error", err)
		return nil
	}
	prevWeekStart := st.WeekStartDate
	reset := task.ResetWeeklyBudgets(tf, st, today)
	updates := task.ProcessCheckinProgress(draft, tf)
	archived := task.ArchiveCompleted(tf)

	if reset || len(updates) > 0 || len(archived) > 0 {
		if err := store.Save(tf); err != nil {
			slog.Error("[FINALIZE] save tasks", "error", err)
			return updates
		}
	}
	if st.WeekStartDate != prevWeekStart {
		if err := fsio.WriteJSONAtomic(ws.StatePath(), st); err != nil {
			slog.Error("[FINALIZE] save state after weekly reset", "error", err)
		}
	}
	for _, id := range archived {
		dispatcher.Dispatch(ctx, hooks.OnTaskComplete, map[string]any{"day": today, "task_id": id})
	}
	return updates
}
