// Package schedule turns the profile's free time and the active task list
// into a time-blocked day plan, and renders it as plan.md.
//
// Placement is greedy: tasks are scored by urgency, then walked through the
// free slots in chronological order, taking the biggest chunk that fits
// within the task's chunk bounds. Fixed routines and weekly events never
// move; they only shrink the available slots.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/haricheung/moltfocus/internal/plan"
	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

const (
	// Slots shorter than this are not worth scheduling into.
	minSlotMinutes = 10
	// Breathing room inserted after every placed chunk.
	chunkBufferMinutes = 5
	// Ritual fallback when estimated_minutes_per_day is unset.
	defaultRitualMinutes = 15
)

// AvailableSlots subtracts every fixed routine and this weekday's events
// (padded by commute) from the profile work blocks. Result is sorted and
// free of slivers under ten minutes.
func AvailableSlots(p types.Profile, date time.Time) []types.TimeRange {
	blocked := make([]types.TimeRange, 0, len(p.FixedRoutines)+len(p.WeeklyFixedEvents))
	for _, r := range p.FixedRoutines {
		blocked = append(blocked, r.Window)
	}
	dayTag := types.DayTag(date.Weekday())
	for _, e := range p.WeeklyFixedEvents {
		if e.Day != dayTag {
			continue
		}
		commute := e.CommuteMinEachWay
		if commute == 0 {
			commute = p.CommuteOneWayMin
		}
		blocked = append(blocked, types.TimeRange{
			Start: e.Time.Start.Add(-commute),
			End:   e.Time.End.Add(commute),
		})
	}

	slots := append([]types.TimeRange(nil), p.WorkBlocks...)
	for _, b := range blocked {
		var next []types.TimeRange
		for _, s := range slots {
			next = append(next, s.Subtract(b)...)
		}
		slots = next
	}

	var out []types.TimeRange
	for _, s := range slots {
		if s.Duration() >= minSlotMinutes {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// dailyDemand is how many minutes a task wants on a single day.
func dailyDemand(t types.Task) int {
	switch t.Type {
	case types.TaskDailyRitual:
		if t.EstimatedMinutesPerDay != nil && *t.EstimatedMinutesPerDay > 0 {
			return *t.EstimatedMinutesPerDay
		}
		return defaultRitualMinutes
	case types.TaskDeadlineProject:
		// One big block per day keeps deadline work deep.
		return t.MaxChunkMinutes
	case types.TaskWeeklyBudget:
		remaining := 0
		if t.TargetHoursPerWeek != nil {
			remaining = int((*t.TargetHoursPerWeek - t.HoursThisWeek) * 60)
		}
		if remaining < 0 {
			remaining = 0
		}
		// Spread the remaining budget over roughly three days.
		d := remaining / 3
		if d < t.MinChunkMinutes {
			d = t.MinChunkMinutes
		}
		if d > t.MaxChunkMinutes {
			d = t.MaxChunkMinutes
		}
		return d
	default:
		return t.MinChunkMinutes
	}
}

// Build produces the schedule for one day without touching the filesystem.
func Build(p types.Profile, tf *types.TasksFile, date time.Time) types.DaySchedule {
	day := date.Format(types.DateLayout)
	slots := AvailableSlots(p, date)
	totalAvailable := 0
	for _, s := range slots {
		totalAvailable += s.Duration()
	}

	// Active tasks in urgency order; stable sort keeps file order on ties.
	var active []types.Task
	for _, t := range tf.Tasks {
		if t.Status == types.StatusActive {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return task.UrgencyScore(active[i], date) > task.UrgencyScore(active[j], date)
	})

	cursors := make([]types.ClockMinute, len(slots))
	for i, s := range slots {
		cursors[i] = s.Start
	}

	var blocks []types.ScheduledBlock
	var unscheduled []string
	taskMinutes := 0
	for _, t := range active {
		demand := dailyDemand(t)
		placed := 0
		for i, s := range slots {
			if demand <= 0 {
				break
			}
			available := int(s.End - cursors[i])
			if available < t.MinChunkMinutes {
				continue
			}
			chunk := demand
			if chunk > available {
				chunk = available
			}
			if chunk > t.MaxChunkMinutes {
				chunk = t.MaxChunkMinutes
			}
			if chunk < t.MinChunkMinutes {
				continue
			}
			start := cursors[i]
			blocks = append(blocks, types.ScheduledBlock{
				Start:           start,
				End:             start.Add(chunk),
				TaskID:          t.ID,
				TaskTitle:       t.Title,
				DurationMinutes: chunk,
				BlockType:       types.BlockTask,
			})
			cursors[i] = start.Add(chunk + chunkBufferMinutes)
			demand -= chunk
			placed += chunk
			taskMinutes += chunk
		}
		if placed == 0 {
			unscheduled = append(unscheduled, t.ID)
		}
	}

	// Informational blocks: routines every day, events on their weekday.
	dayTag := types.DayTag(date.Weekday())
	for _, r := range p.FixedRoutines {
		blocks = append(blocks, types.ScheduledBlock{
			Start:           r.Window.Start,
			End:             r.Window.End,
			TaskID:          r.Name,
			TaskTitle:       routineTitle(r.Name),
			DurationMinutes: r.Window.Duration(),
			BlockType:       types.BlockRoutine,
		})
	}
	for _, e := range p.WeeklyFixedEvents {
		if e.Day != dayTag {
			continue
		}
		blocks = append(blocks, types.ScheduledBlock{
			Start:           e.Time.Start,
			End:             e.Time.End,
			TaskID:          strings.ReplaceAll(strings.ToLower(e.Name), " ", "-"),
			TaskTitle:       e.Name,
			DurationMinutes: e.Time.Duration(),
			BlockType:       types.BlockEvent,
		})
	}
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })

	utilization := 0.0
	if totalAvailable > 0 {
		utilization = float64(taskMinutes) / float64(totalAvailable) * 100
	}
	return types.DaySchedule{
		Date:             day,
		Blocks:           blocks,
		UnscheduledTasks: unscheduled,
		TotalWorkMinutes: taskMinutes,
		UtilizationPct:   utilization,
	}
}

// routineTitle turns "morning_review" into "Morning Review".
func routineTitle(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// formatDuration renders minutes as "2h", "1h05m", or "45m".
func formatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// Render produces the plan.md text for a schedule.
func Render(s types.DaySchedule, tf *types.TasksFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan — %s\n\n", s.Date)

	var taskBlocks []types.ScheduledBlock
	for _, blk := range s.Blocks {
		if blk.BlockType == types.BlockTask {
			taskBlocks = append(taskBlocks, blk)
		}
	}

	if len(taskBlocks) > 0 {
		b.WriteString("## Top priorities\n")
		seen := map[string]bool{}
		rank := 0
		for _, blk := range taskBlocks {
			if seen[blk.TaskID] {
				continue
			}
			seen[blk.TaskID] = true
			rank++
			fmt.Fprintf(&b, "%d) %s\n", rank, blk.TaskTitle)
			if rank == 5 {
				break
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Schedule\n")
	for _, blk := range s.Blocks {
		if blk.BlockType == types.BlockTask {
			fmt.Fprintf(&b, "- %s–%s %s [%s]\n",
				blk.Start, blk.End, blk.TaskTitle, formatDuration(blk.DurationMinutes))
		} else {
			fmt.Fprintf(&b, "- %s–%s %s\n", blk.Start, blk.End, blk.TaskTitle)
		}
	}

	b.WriteString("\n## Minimum viable day\n")
	listed := map[string]bool{}
	for _, blk := range taskBlocks {
		if listed[blk.TaskID] {
			continue
		}
		listed[blk.TaskID] = true
		fmt.Fprintf(&b, "- [ ] %s %s\n", blk.TaskTitle, formatDuration(blk.DurationMinutes))
	}

	if len(s.UnscheduledTasks) > 0 {
		b.WriteString("\n## Carryover\n")
		for _, id := range s.UnscheduledTasks {
			title := id
			if t := task.Find(tf, id); t != nil {
				title = t.Title
			}
			fmt.Fprintf(&b, "- %s (deferred — insufficient time slots)\n", title)
		}
	}
	return b.String()
}

// Generate builds today's (or the given date's) schedule and writes plan.md,
// preserving the previous plan in plan_prev.md.
func Generate(ws *workspace.Workspace, date time.Time) (types.DaySchedule, error) {
	profile, err := ws.Profile()
	if err != nil {
		return types.DaySchedule{}, err
	}
	tf, err := task.NewStore(ws).Load()
	if err != nil {
		return types.DaySchedule{}, err
	}
	s := Build(profile, tf, date)
	if err := plan.Save(ws, Render(s, tf)); err != nil {
		return types.DaySchedule{}, err
	}
	return s, nil
}
