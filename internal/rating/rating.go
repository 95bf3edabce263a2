// Package rating holds the deterministic end-of-day rules: how a day is
// graded, whether it keeps the streak alive, and the one-line auto-summary.
package rating

import (
	"fmt"
	"strings"

	"github.com/haricheung/moltfocus/internal/types"
)

// A reflection this long counts as meaningful effort on its own.
const meaningfulReflectionLen = 30

// Rate grades a day from its check-in counts. anyTimed reports whether any
// done item carried a duration suffix.
func Rate(done, total int, reflection string, anyTimed bool) types.Rating {
	reflected := len(strings.TrimSpace(reflection)) >= meaningfulReflectionLen
	half := total / 2
	if half < 1 {
		half = 1
	}
	switch {
	case done >= half, done >= 2, anyTimed && done >= 1:
		return types.RatingGood
	case done >= 1, reflected:
		return types.RatingFair
	default:
		return types.RatingBad
	}
}

// StreakCounts reports whether the day earns streak credit: at least one done
// item, a meaningful reflection, or an edited plan.
func StreakCounts(done int, reflection string, planChanged bool) bool {
	return done >= 1 ||
		len(strings.TrimSpace(reflection)) >= meaningfulReflectionLen ||
		planChanged
}

var adviceByRating = map[types.Rating]string{
	types.RatingGood: "Keep the momentum; protect one deep block early tomorrow.",
	types.RatingFair: "Aim for one deeper block next; reduce context switching.",
	types.RatingBad:  "Reset: pick one small win + one deep block tomorrow.",
}

var leadByRating = map[types.Rating]string{
	types.RatingGood: "Good",
	types.RatingFair: "Fair",
	types.RatingBad:  "Bad",
}

// Summarize builds the one-sentence auto-summary stored in state and in the
// reflection entry.
func Summarize(day string, r types.Rating, doneItems []string, minutes int, reflection string) string {
	var parts []string
	if len(doneItems) > 0 {
		shown := doneItems
		extra := ""
		if len(shown) > 3 {
			extra = fmt.Sprintf(" (+%d more)", len(shown)-3)
			shown = shown[:3]
		}
		parts = append(parts, "done: "+strings.Join(shown, ", ")+extra)
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("logged ~%d min", minutes))
	}
	if strings.TrimSpace(reflection) != "" {
		parts = append(parts, "reflection recorded")
	}
	body := "no notable progress logged"
	if len(parts) > 0 {
		body = strings.Join(parts, "; ")
	}
	return fmt.Sprintf("[%s] %s: %s. %s", leadByRating[r], day, body, adviceByRating[r])
}
