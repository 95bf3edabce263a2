// Package analytics mines the reflection journal and the state history into
// rolling completion metrics, and maintains analytics.json.
package analytics

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/plan"
	"github.com/haricheung/moltfocus/internal/reflection"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

const nonePlaceholder = "(none)"

var timedLabelRe = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?[hm]\b`)

// Parse extracts one DayRecord per "## YYYY-MM-DD" section of the journal.
// The writer in package reflection produces the format consumed here; both
// sides treat it as a stable contract.
func Parse(text string) []types.DayRecord {
	var records []types.DayRecord
	for _, section := range reflection.Split(text) {
		if r, ok := parseSection(section); ok {
			records = append(records, r)
		}
	}
	return records
}

func parseSection(section string) (types.DayRecord, bool) {
	lines := strings.Split(section, "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "## ") {
		return types.DayRecord{}, false
	}
	r := types.DayRecord{Date: strings.TrimSpace(lines[0][3:])}

	var block string       // current "**Heading**" block
	var reflected []string // reflection body lines
	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "**Rating:**"):
			r.Rating = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "**Rating:**")))
			block = ""
		case strings.HasPrefix(trimmed, "**Mode:**"):
			r.Mode = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "**Mode:**")))
			block = ""
		case trimmed == "**Done**" || trimmed == "**Notes**" || trimmed == "**Reflection**" || trimmed == "**Auto-summary**":
			block = trimmed
		case strings.HasPrefix(trimmed, "- ") || trimmed != "":
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
			switch block {
			case "**Done**":
				if item != nonePlaceholder {
					r.DoneItems = append(r.DoneItems, item)
				}
			case "**Notes**":
				if item != nonePlaceholder {
					r.Notes = append(r.Notes, item)
				}
			case "**Reflection**":
				if trimmed != "- "+nonePlaceholder {
					reflected = append(reflected, trimmed)
				}
			}
		}
	}
	r.ReflectionText = strings.Join(reflected, "\n")

	// All planned items: everything done plus noted items not already done.
	r.AllItems = append(r.AllItems, r.DoneItems...)
	doneStems := make(map[string]bool, len(r.DoneItems))
	for _, d := range r.DoneItems {
		doneStems[stem(d)] = true
	}
	for _, n := range r.Notes {
		label := n
		if idx := strings.Index(n, ":"); idx >= 0 {
			label = n[:idx]
		}
		if !doneStems[stem(label)] {
			r.AllItems = append(r.AllItems, strings.TrimSpace(label))
		}
	}
	return r, true
}

// stem normalizes an item label for identity: duration and sub-description
// stripped, lowercased.
func stem(label string) string {
	return strings.ToLower(plan.TitleFromLabel(label))
}

// Compute derives the full summary from parsed records and the state history.
func Compute(records []types.DayRecord, history []types.HistoryEntry) types.AnalyticsSummary {
	s := types.AnalyticsSummary{
		CompletionByWeekday:  map[string]float64{},
		CompletionByTaskType: map[string]float64{},
		TotalDaysTracked:     len(records),
	}

	// Per-weekday means.
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range records {
		d, err := time.Parse(types.DateLayout, r.Date)
		if err != nil {
			continue
		}
		tag := types.DayTag(d.Weekday())
		sums[tag] += r.CompletionRate()
		counts[tag]++
	}
	for tag, n := range counts {
		s.CompletionByWeekday[tag] = round3(sums[tag] / float64(n))
	}
	s.BestTimeBlocks = bestWeekdays(s.CompletionByWeekday, 3)
	s.CompletionByTaskType = completionByTaskType(records)
	s.MostSkippedTasks = mostSkipped(records)
	s.StreakHistory = streakRuns(history)

	sorted := append([]types.DayRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })
	s.Rolling7DayAvg = rollingAvg(sorted, 7)
	s.Rolling30DayAvg = rollingAvg(sorted, 30)
	s.RecoverySuccessRate = recoveryRate(records)
	return s
}

func bestWeekdays(byDay map[string]float64, n int) []string {
	type dayRate struct {
		tag  string
		rate float64
	}
	var all []dayRate
	// Walk in weekday order so equal rates break ties deterministically.
	for _, tag := range types.DayTags {
		if rate, ok := byDay[tag]; ok {
			all = append(all, dayRate{tag, rate})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].rate > all[j].rate })
	if len(all) > n {
		all = all[:n]
	}
	out := make([]string, 0, len(all))
	for _, d := range all {
		out = append(out, d.tag)
	}
	return out
}

// classifyItem buckets an item label by its text. Timed labels carry a
// duration suffix; maintenance and ritual labels are daily rituals.
func classifyItem(label string) string {
	lower := strings.ToLower(label)
	switch {
	case timedLabelRe.MatchString(label):
		return "timed_task"
	case strings.Contains(lower, "maintenance") || strings.Contains(lower, "ritual"):
		return "daily_ritual"
	default:
		return "other"
	}
}

func completionByTaskType(records []types.DayRecord) map[string]float64 {
	done := map[string]int{}
	total := map[string]int{}
	for _, r := range records {
		doneStems := make(map[string]bool, len(r.DoneItems))
		for _, d := range r.DoneItems {
			doneStems[stem(d)] = true
		}
		for _, item := range r.AllItems {
			typ := classifyItem(item)
			total[typ]++
			if doneStems[stem(item)] {
				done[typ]++
			}
		}
	}
	out := map[string]float64{}
	for typ, n := range total {
		out[typ] = round3(float64(done[typ]) / float64(n))
	}
	return out
}

func mostSkipped(records []types.DayRecord) []string {
	appearances := map[string]int{}
	skips := map[string]int{}
	display := map[string]string{}
	for _, r := range records {
		doneStems := make(map[string]bool, len(r.DoneItems))
		for _, d := range r.DoneItems {
			doneStems[stem(d)] = true
		}
		for _, item := range r.AllItems {
			key := stem(item)
			if key == "" {
				continue
			}
			appearances[key]++
			if _, ok := display[key]; !ok {
				display[key] = plan.TitleFromLabel(item)
			}
			if !doneStems[key] {
				skips[key]++
			}
		}
	}

	type skipped struct {
		label string
		rate  float64
	}
	var out []skipped
	for key, n := range appearances {
		if n < 3 {
			continue
		}
		rate := float64(skips[key]) / float64(n)
		if rate >= 0.5 {
			out = append(out, skipped{display[key], rate})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].rate != out[j].rate {
			return out[i].rate > out[j].rate
		}
		return out[i].label < out[j].label
	})
	if len(out) > 5 {
		out = out[:5]
	}
	labels := make([]string, 0, len(out))
	for _, s := range out {
		labels = append(labels, s.label)
	}
	return labels
}

func streakRuns(history []types.HistoryEntry) []types.StreakRun {
	var runs []types.StreakRun
	var cur *types.StreakRun
	for _, h := range history {
		if h.StreakCounted {
			if cur == nil {
				cur = &types.StreakRun{Start: h.Day, End: h.Day, Length: 1}
			} else {
				cur.End = h.Day
				cur.Length++
			}
			continue
		}
		if cur != nil {
			runs = append(runs, *cur)
			cur = nil
		}
	}
	if cur != nil {
		runs = append(runs, *cur)
	}
	return runs
}

// rollingAvg averages completion over the newest n records (records must be
// sorted newest first). Fewer records than n averages what there is.
func rollingAvg(sorted []types.DayRecord, n int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	var sum float64
	for _, r := range sorted {
		sum += r.CompletionRate()
	}
	return round3(sum / float64(len(sorted)))
}

func recoveryRate(records []types.DayRecord) float64 {
	var total, ok int
	for _, r := range records {
		if r.Mode != string(types.ModeRecovery) {
			continue
		}
		total++
		if r.Rating == string(types.RatingGood) || r.Rating == string(types.RatingFair) {
			ok++
		}
	}
	if total == 0 {
		return 0
	}
	return round3(float64(ok) / float64(total))
}

// Refresh recomputes the summary from reflections.md and state.json and
// writes analytics.json.
func Refresh(ws *workspace.Workspace) (types.AnalyticsSummary, error) {
	text, err := fsio.ReadText(ws.ReflectionsPath())
	if err != nil {
		return types.AnalyticsSummary{}, err
	}
	var st types.State
	if err := fsio.ReadJSON(ws.StatePath(), &st); err != nil {
		return types.AnalyticsSummary{}, err
	}
	summary := Compute(Parse(text), st.History)
	if err := fsio.WriteJSONAtomic(ws.AnalyticsPath(), summary); err != nil {
		return types.AnalyticsSummary{}, err
	}
	return summary, nil
}

// Load reads analytics.json, returning a zero summary when absent.
func Load(ws *workspace.Workspace) (types.AnalyticsSummary, error) {
	var s types.AnalyticsSummary
	if err := fsio.ReadJSON(ws.AnalyticsPath(), &s); err != nil {
		return types.AnalyticsSummary{}, err
	}
	return s, nil
}

func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
