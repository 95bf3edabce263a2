// Package agentctx emits agent_context.json, the aggregated snapshot that
// external agents and dashboards read instead of walking the workspace
// themselves. Suggestions come from fixed rules over the analytics summary.
package agentctx

import (
	"fmt"
	"math"
	"strings"

	"github.com/haricheung/moltfocus/internal/analytics"
	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

// Snapshot is the analytics slice of the context.
type Snapshot struct {
	Streak              int                `json:"streak"`
	LastRating          *string            `json:"lastRating"`
	Rolling7DayAvg      float64            `json:"rolling7dayAvg"`
	Rolling30DayAvg     float64            `json:"rolling30dayAvg"`
	CompletionByWeekday map[string]float64 `json:"completionByWeekday"`
	TotalDaysTracked    int                `json:"totalDaysTracked"`
}

// UrgentTask is one entry of the top-urgency projection.
type UrgentTask struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	Priority     int     `json:"priority"`
	UrgencyScore float64 `json:"urgency_score"`
}

// BudgetStatus reports one weekly-budget task's progress.
type BudgetStatus struct {
	TaskID         string  `json:"task_id"`
	Title          string  `json:"title"`
	TargetHours    float64 `json:"target_hours"`
	ActualHours    float64 `json:"actual_hours"`
	RemainingHours float64 `json:"remaining_hours"`
	ProgressPct    float64 `json:"progress_pct"`
}

// Suggestion is one rule-generated nudge.
type Suggestion struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Context is the full agent_context.json document.
type Context struct {
	GeneratedAt        string         `json:"generatedAt"`
	Analytics          Snapshot       `json:"analytics"`
	TopUrgentTasks     []UrgentTask   `json:"topUrgentTasks"`
	WeeklyBudgetStatus []BudgetStatus `json:"weeklyBudgetStatus"`
	Suggestions        []Suggestion   `json:"suggestions"`
}

// Generate assembles the context from state, tasks, and analytics, writes
// agent_context.json, and returns it.
func Generate(ws *workspace.Workspace) (Context, error) {
	var st types.State
	if err := fsio.ReadJSON(ws.StatePath(), &st); err != nil {
		return Context{}, err
	}
	summary, err := analytics.Load(ws)
	if err != nil {
		return Context{}, err
	}
	tf, err := task.NewStore(ws).Load()
	if err != nil {
		return Context{}, err
	}

	ctx := Context{
		GeneratedAt: ws.NowLocal().Format(types.TimestampLayout),
		Analytics: Snapshot{
			Streak:              st.Streak,
			LastRating:          st.LastRating,
			Rolling7DayAvg:      summary.Rolling7DayAvg,
			Rolling30DayAvg:     summary.Rolling30DayAvg,
			CompletionByWeekday: summary.CompletionByWeekday,
			TotalDaysTracked:    summary.TotalDaysTracked,
		},
		TopUrgentTasks:     []UrgentTask{},
		WeeklyBudgetStatus: []BudgetStatus{},
		Suggestions:        []Suggestion{},
	}
	if ctx.Analytics.CompletionByWeekday == nil {
		ctx.Analytics.CompletionByWeekday = map[string]float64{}
	}

	computed := task.ComputedTasks(tf, ws.NowLocal())
	for _, c := range computed {
		if len(ctx.TopUrgentTasks) == 5 {
			break
		}
		ctx.TopUrgentTasks = append(ctx.TopUrgentTasks, UrgentTask{
			ID: c.ID, Title: c.Title, Type: string(c.Type),
			Priority: c.Priority, UrgencyScore: c.UrgencyScore,
		})
	}

	for _, t := range tf.Tasks {
		if t.Type != types.TaskWeeklyBudget || t.TargetHoursPerWeek == nil || *t.TargetHoursPerWeek <= 0 {
			continue
		}
		target := *t.TargetHoursPerWeek
		remaining := target - t.HoursThisWeek
		if remaining < 0 {
			remaining = 0
		}
		ctx.WeeklyBudgetStatus = append(ctx.WeeklyBudgetStatus, BudgetStatus{
			TaskID: t.ID, Title: t.Title,
			TargetHours:    target,
			ActualHours:    round1(t.HoursThisWeek),
			RemainingHours: round1(remaining),
			ProgressPct:    round1(t.HoursThisWeek / target * 100),
		})
	}

	ctx.Suggestions = suggestions(ws, st, summary, computed)

	if err := fsio.WriteJSONAtomic(ws.AgentContextPath(), ctx); err != nil {
		return Context{}, err
	}
	return ctx, nil
}

// Load reads the last written agent_context.json.
func Load(ws *workspace.Workspace) (Context, error) {
	var ctx Context
	if err := fsio.ReadJSON(ws.AgentContextPath(), &ctx); err != nil {
		return Context{}, err
	}
	return ctx, nil
}

func suggestions(ws *workspace.Workspace, st types.State, summary types.AnalyticsSummary, computed []task.ComputedTask) []Suggestion {
	var out []Suggestion

	if summary.Rolling7DayAvg > 0 && summary.Rolling7DayAvg < 0.5 {
		out = append(out, Suggestion{
			Type:     "difficulty_adjustment",
			Severity: "high",
			Message: fmt.Sprintf(
				"7-day completion is %.0f%%. Consider planning fewer items or shrinking chunk sizes.",
				summary.Rolling7DayAvg*100),
		})
	}

	if len(summary.BestTimeBlocks) > 0 && len(computed) > 0 {
		best := summary.BestTimeBlocks
		if len(best) > 2 {
			best = best[:2]
		}
		out = append(out, Suggestion{
			Type:     "scheduling",
			Severity: "medium",
			Message: fmt.Sprintf("Your best days are %s. Schedule %q there.",
				strings.Join(best, " and "), computed[0].Title),
		})
	}

	for i, label := range summary.MostSkippedTasks {
		if i == 3 {
			break
		}
		out = append(out, Suggestion{
			Type:     "skip_warning",
			Severity: "medium",
			Message:  fmt.Sprintf("%q is skipped more often than done. Shrink it or drop it.", label),
		})
	}

	today := types.DayTag(ws.NowLocal().Weekday())
	if rate, ok := summary.CompletionByWeekday[today]; ok && rate < 0.4 {
		out = append(out, Suggestion{
			Type:     "weekday_warning",
			Severity: "low",
			Message: fmt.Sprintf("Historically %s completes at %.0f%%. Plan lighter today.",
				today, rate*100),
		})
	}

	if st.LastRating != nil && *st.LastRating == string(types.RatingBad) && summary.RecoverySuccessRate > 0.6 {
		out = append(out, Suggestion{
			Type:     "recovery_suggestion",
			Severity: "medium",
			Message: fmt.Sprintf(
				"Yesterday rated bad and recovery mode works for you (%.0f%% success). Consider a recovery day.",
				summary.RecoverySuccessRate*100),
		})
	}
	return out
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
