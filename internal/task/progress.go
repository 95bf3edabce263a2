package task

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/haricheung/moltfocus/internal/plan"
	"github.com/haricheung/moltfocus/internal/types"
)

// MatchFromLabel resolves a check-in label to a task by title prefix.
// Exact title matches win; otherwise either string may prefix the other.
func MatchFromLabel(tasks []types.Task, label string) *types.Task {
	prefix := strings.ToLower(plan.TitleFromLabel(label))
	if prefix == "" {
		return nil
	}
	for i := range tasks {
		if strings.ToLower(tasks[i].Title) == prefix {
			return &tasks[i]
		}
	}
	for i := range tasks {
		title := strings.ToLower(tasks[i].Title)
		if strings.HasPrefix(title, prefix) || strings.HasPrefix(prefix, title) {
			return &tasks[i]
		}
	}
	return nil
}

// UpdateProgress credits minutes of completed work against a task.
// Deadline projects burn down remaining hours and auto-complete at zero;
// weekly budgets accumulate hours. Rituals carry no numeric tracking.
func UpdateProgress(t *types.Task, minutes int) {
	switch t.Type {
	case types.TaskDeadlineProject:
		if t.RemainingHours != nil {
			rem := *t.RemainingHours - float64(minutes)/60.0
			if rem < 0 {
				rem = 0
			}
			*t.RemainingHours = rem
			if rem <= 0 {
				t.Status = types.StatusComplete
			}
		}
	case types.TaskWeeklyBudget:
		t.HoursThisWeek += float64(minutes) / 60.0
	}
}

// ProcessCheckinProgress credits every done draft item against its matched
// task and returns human-readable update strings like "paper: +120min".
// Items without a parseable duration fall back to the ritual estimate, or
// 30 minutes.
func ProcessCheckinProgress(draft *types.CheckinDraft, f *types.TasksFile) []string {
	keys := make([]string, 0, len(draft.Items))
	for k := range draft.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var updates []string
	for _, key := range keys {
		item := draft.Items[key]
		if !item.Done {
			continue
		}
		t := MatchFromLabel(f.Tasks, item.Label)
		if t == nil {
			continue
		}
		minutes := plan.DurationFromLabel(item.Label)
		if minutes <= 0 {
			if t.Type == types.TaskDailyRitual && t.EstimatedMinutesPerDay != nil && *t.EstimatedMinutesPerDay > 0 {
				minutes = *t.EstimatedMinutesPerDay
			} else {
				minutes = 30
			}
		}
		UpdateProgress(t, minutes)
		updates = append(updates, fmt.Sprintf("%s: +%dmin", t.ID, minutes))
	}
	return updates
}

// ResetWeeklyBudgets zeroes weekly hours when a new tracking week starts.
// It reports whether a reset happened so the caller knows to persist both
// the task file and the state.
func ResetWeeklyBudgets(f *types.TasksFile, st *types.State, today string) bool {
	startDay, ok := types.ParseDayTag(f.WeekStart)
	if !ok {
		startDay = time.Monday
	}
	todayDate, err := time.Parse(types.DateLayout, today)
	if err != nil {
		return false
	}

	if st.WeekStartDate != "" {
		if last, perr := time.Parse(types.DateLayout, st.WeekStartDate); perr == nil {
			if todayDate.Sub(last).Hours() < 7*24 {
				return false
			}
		}
	}

	if todayDate.Weekday() == startDay {
		for i := range f.Tasks {
			if f.Tasks[i].Type == types.TaskWeeklyBudget {
				f.Tasks[i].HoursThisWeek = 0
			}
		}
		st.WeekStartDate = today
		return true
	}

	// Never tracked before: backfill the most recent week start so the
	// seven-day guard works from now on.
	if st.WeekStartDate == "" {
		daysSince := (int(todayDate.Weekday()) - int(startDay) + 7) % 7
		st.WeekStartDate = todayDate.AddDate(0, 0, -daysSince).Format(types.DateLayout)
	}
	return false
}

// ArchiveCompleted moves complete tasks to the archived list and returns
// their IDs.
func ArchiveCompleted(f *types.TasksFile) []string {
	var ids []string
	remaining := f.Tasks[:0]
	for _, t := range f.Tasks {
		if t.Status == types.StatusComplete {
			f.Archived = append(f.Archived, t)
			ids = append(ids, t.ID)
		} else {
			remaining = append(remaining, t)
		}
	}
	f.Tasks = remaining
	return ids
}

// UrgencyScore is the composite scheduling score for a task: base priority
// plus deadline pressure, weekly budget gap, and a small ritual boost.
func UrgencyScore(t types.Task, today time.Time) float64 {
	score, _, _ := urgency(t, today)
	return score
}

func urgency(t types.Task, today time.Time) (score float64, daysLeft *int, progressPct *float64) {
	score = float64(t.Priority)
	switch t.Type {
	case types.TaskDeadlineProject:
		if t.Deadline != "" {
			if d, err := time.ParseInLocation(types.DateLayout, t.Deadline, today.Location()); err == nil {
				// Calendar-date difference: today's clock time must not
				// shave a day off the countdown.
				y, m, dd := today.Date()
				midnight := time.Date(y, m, dd, 0, 0, 0, 0, today.Location())
				days := int(d.Sub(midnight).Hours() / 24)
				if days < 1 {
					days = 1
				}
				daysLeft = &days
				if t.RemainingHours != nil && *t.RemainingHours > 0 {
					score += *t.RemainingHours / float64(days) * 5
				}
			}
		} else if t.RemainingHours != nil && *t.RemainingHours > 0 {
			// No deadline set but work remains: moderate urgency.
			score += 2
		}
	case types.TaskWeeklyBudget:
		if t.TargetHoursPerWeek != nil && *t.TargetHoursPerWeek > 0 {
			target := *t.TargetHoursPerWeek
			gap := target - t.HoursThisWeek
			if gap < 0 {
				gap = 0
			}
			pct := round1(t.HoursThisWeek / target * 100)
			progressPct = &pct
			score += gap / target * 3
		}
	case types.TaskDailyRitual:
		// Small constant boost so rituals still get scheduled.
		score++
	}
	return score, daysLeft, progressPct
}

// ComputedTask pairs a task with its derived urgency numbers.
type ComputedTask struct {
	types.Task
	UrgencyScore      float64
	DaysUntilDeadline *int
	WeeklyProgressPct *float64
}

// ComputedTasks projects every task in the file with its urgency score,
// highest first. Ties keep file order.
func ComputedTasks(f *types.TasksFile, today time.Time) []ComputedTask {
	out := make([]ComputedTask, 0, len(f.Tasks))
	for _, t := range f.Tasks {
		score, days, pct := urgency(t, today)
		out = append(out, ComputedTask{
			Task:              t,
			UrgencyScore:      round2(score),
			DaysUntilDeadline: days,
			WeeklyProgressPct: pct,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UrgencyScore > out[j].UrgencyScore
	})
	return out
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round2(f float64) float64 { return math.Round(f*100) / 100 }
