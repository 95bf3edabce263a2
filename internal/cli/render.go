// Package cli is the terminal transport over the engine: a cobra command
// tree plus the rendering helpers it prints with. Rendering functions return
// strings so commands stay testable without capturing stdout.
package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/haricheung/moltfocus/internal/agentctx"
	"github.com/haricheung/moltfocus/internal/focus"
	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
)

var (
	goodColor = color.New(color.FgGreen, color.Bold)
	fairColor = color.New(color.FgYellow, color.Bold)
	badColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// ratingLabel colorizes a rating for terminal display.
func ratingLabel(r string) string {
	switch types.Rating(r) {
	case types.RatingGood:
		return goodColor.Sprint("GOOD")
	case types.RatingFair:
		return fairColor.Sprint("FAIR")
	case types.RatingBad:
		return badColor.Sprint("BAD")
	default:
		return dimColor.Sprint("—")
	}
}

// clip truncates a cell to the given display width, runewidth-aware so wide
// labels don't break table alignment.
func clip(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// renderStatus is the no-argument dashboard.
func renderStatus(st types.State, planPresent bool, active *types.FocusSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Streak: %d\n", st.Streak)
	rating := ""
	if st.LastRating != nil {
		rating = *st.LastRating
	}
	fmt.Fprintf(&b, "Last rating: %s\n", ratingLabel(rating))
	if st.LastFinalizedDate != nil {
		fmt.Fprintf(&b, "Last finalized: %s\n", *st.LastFinalizedDate)
	}
	if st.LastSummary != nil {
		fmt.Fprintf(&b, "Summary: %s\n", *st.LastSummary)
	}
	if planPresent {
		b.WriteString("Plan: ready (molt plan to view)\n")
	} else {
		b.WriteString("Plan: none yet (molt generate)\n")
	}
	if active != nil {
		fmt.Fprintf(&b, "Focus: %s since %s (%d planned min)\n",
			active.TaskLabel, active.StartedAt, active.PlannedMinutes)
	}
	return b.String()
}

// renderTasks tabulates the urgency projection.
func renderTasks(computed []task.ComputedTask) string {
	if len(computed) == 0 {
		return "No active tasks. Add one with: molt tasks create\n"
	}
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"ID", "Title", "Type", "Pri", "Urgency", "Detail"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, c := range computed {
		detail := ""
		switch {
		case c.DaysUntilDeadline != nil:
			detail = fmt.Sprintf("due in %dd", *c.DaysUntilDeadline)
		case c.WeeklyProgressPct != nil:
			detail = fmt.Sprintf("week %.0f%%", *c.WeeklyProgressPct)
		}
		table.Append([]string{
			c.ID, clip(c.Title, 32), string(c.Type),
			fmt.Sprintf("%d", c.Priority),
			fmt.Sprintf("%.2f", c.UrgencyScore),
			detail,
		})
	}
	table.Render()
	return b.String()
}

// renderAnalytics summarizes analytics.json for the terminal.
func renderAnalytics(s types.AnalyticsSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Days tracked: %d\n", s.TotalDaysTracked)
	fmt.Fprintf(&b, "7-day completion: %.0f%%   30-day: %.0f%%\n",
		s.Rolling7DayAvg*100, s.Rolling30DayAvg*100)
	if s.RecoverySuccessRate > 0 {
		fmt.Fprintf(&b, "Recovery success: %.0f%%\n", s.RecoverySuccessRate*100)
	}

	if len(s.CompletionByWeekday) > 0 {
		table := tablewriter.NewWriter(&b)
		table.SetHeader([]string{"Day", "Completion"})
		table.SetBorder(false)
		for _, tag := range types.DayTags {
			if rate, ok := s.CompletionByWeekday[tag]; ok {
				table.Append([]string{tag, fmt.Sprintf("%.0f%%", rate*100)})
			}
		}
		table.Render()
	}
	if len(s.BestTimeBlocks) > 0 {
		fmt.Fprintf(&b, "Best days: %s\n", strings.Join(s.BestTimeBlocks, ", "))
	}
	if len(s.MostSkippedTasks) > 0 {
		fmt.Fprintf(&b, "Often skipped: %s\n", strings.Join(s.MostSkippedTasks, ", "))
	}
	return b.String()
}

// renderFocusStats tabulates a stats window.
func renderFocusStats(days int, s focus.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Focus sessions, last %d days:\n", days)
	table := tablewriter.NewWriter(&b)
	table.SetBorder(false)
	table.Append([]string{"Sessions", fmt.Sprintf("%d", s.TotalSessions)})
	table.Append([]string{"Minutes", fmt.Sprintf("%.1f", s.TotalMinutes)})
	table.Append([]string{"Avg session", fmt.Sprintf("%.1f min", s.AvgSessionMinutes)})
	table.Append([]string{"Interruptions", fmt.Sprintf("%d", s.TotalInterruptions)})
	table.Append([]string{"Completion", fmt.Sprintf("%.0f%%", s.CompletionRate*100)})
	table.Render()
	return b.String()
}

// renderSuggestions lists agent-context suggestions with severity coloring.
func renderSuggestions(sugs []agentctx.Suggestion) string {
	if len(sugs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Suggestions:\n")
	for _, s := range sugs {
		sev := s.Severity
		if s.Severity == "high" {
			sev = badColor.Sprint(s.Severity)
		}
		fmt.Fprintf(&b, "  [%s] %s\n", sev, s.Message)
	}
	return b.String()
}
