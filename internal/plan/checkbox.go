// Package plan reads and writes plan.md and the check-in draft, and parses
// plan checkboxes and the durations embedded in their labels.
package plan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/haricheung/moltfocus/internal/types"
)

var (
	checkboxRe         = regexp.MustCompile(`^\s*[-*]\s*\[([ xX])\]\s+(.*)$`)
	durationRe         = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([hm])\s*$`)
	trailingDurationRe = regexp.MustCompile(`(?i)\s+\d+(?:\.\d+)?\s*[hm]\s*$`)
)

// ExtractCheckboxes returns every "- [ ]" / "- [x]" line in plan text.
// Keys are "line-<n>" with n the zero-based line number, so they stay
// stable as long as the plan file is not rewritten.
func ExtractCheckboxes(planMD string) []types.PlanCheckbox {
	var out []types.PlanCheckbox
	for i, line := range strings.Split(planMD, "\n") {
		m := checkboxRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, types.PlanCheckbox{
			Key:     "line-" + strconv.Itoa(i),
			Label:   strings.TrimSpace(m[2]),
			Checked: strings.ToLower(strings.TrimSpace(m[1])) == "x",
		})
	}
	return out
}

// DurationFromLabel extracts trailing durations like "2h", "90m", or "1.5h"
// as minutes. Returns 0 when the label carries no duration.
func DurationFromLabel(label string) int {
	m := durationRe.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if strings.ToLower(m[2]) == "h" {
		return int(val * 60)
	}
	return int(val)
}

// TitleFromLabel strips the trailing duration and any ": sub-description"
// suffix, leaving the task title prefix.
func TitleFromLabel(label string) string {
	cleaned := strings.TrimSpace(trailingDurationRe.ReplaceAllString(label, ""))
	if idx := strings.Index(cleaned, ":"); idx >= 0 {
		return strings.TrimSpace(cleaned[:idx])
	}
	return cleaned
}
