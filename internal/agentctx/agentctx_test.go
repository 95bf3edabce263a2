package agentctx

import (
	"strings"
	"testing"
	"time"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

// Wednesday 2026-02-11.
func testWS(t *testing.T) *workspace.Workspace {
	t.Helper()
	now := time.Date(2026, 2, 11, 8, 0, 0, 0, time.UTC)
	return &workspace.Workspace{Root: t.TempDir(), Now: func() time.Time { return now }}
}

func seed(t *testing.T, ws *workspace.Workspace, st types.State, summary types.AnalyticsSummary, tf *types.TasksFile) {
	t.Helper()
	if err := fsio.WriteJSONAtomic(ws.StatePath(), st); err != nil {
		t.Fatal(err)
	}
	if err := fsio.WriteJSONAtomic(ws.AnalyticsPath(), summary); err != nil {
		t.Fatal(err)
	}
	if tf != nil {
		if err := fsio.WriteYAMLAtomic(ws.TasksPath(), tf); err != nil {
			t.Fatal(err)
		}
	}
}

func budgetTasks() *types.TasksFile {
	target := 8.0
	rem := 12.0
	return &types.TasksFile{WeekStart: "mon", Tasks: []types.Task{
		{ID: "deadline-paper", Title: "Deadline paper", Type: types.TaskDeadlineProject,
			Priority: 9, Status: types.StatusActive, RemainingHours: &rem, Deadline: "2026-02-20",
			MinChunkMinutes: 25, MaxChunkMinutes: 180},
		{ID: "important-project", Title: "Important project", Type: types.TaskWeeklyBudget,
			Priority: 7, Status: types.StatusActive, TargetHoursPerWeek: &target, HoursThisWeek: 2,
			MinChunkMinutes: 25, MaxChunkMinutes: 180},
	}}
}

func TestGenerateSnapshot(t *testing.T) {
	ws := testWS(t)
	rating := "good"
	seed(t, ws,
		types.State{Streak: 4, LastRating: &rating},
		types.AnalyticsSummary{Rolling7DayAvg: 0.8, Rolling30DayAvg: 0.7, TotalDaysTracked: 12,
			CompletionByWeekday: map[string]float64{"mon": 0.9}},
		budgetTasks())

	ctx, err := Generate(ws)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ctx.Analytics.Streak != 4 || *ctx.Analytics.LastRating != "good" {
		t.Errorf("snapshot = %+v", ctx.Analytics)
	}
	if ctx.GeneratedAt != "2026-02-11T08:00:00" {
		t.Errorf("generatedAt = %s", ctx.GeneratedAt)
	}
	if len(ctx.TopUrgentTasks) != 2 || ctx.TopUrgentTasks[0].ID != "deadline-paper" {
		t.Errorf("topUrgentTasks = %+v", ctx.TopUrgentTasks)
	}
	if len(ctx.WeeklyBudgetStatus) != 1 {
		t.Fatalf("weeklyBudgetStatus = %+v", ctx.WeeklyBudgetStatus)
	}
	b := ctx.WeeklyBudgetStatus[0]
	if b.TargetHours != 8 || b.ActualHours != 2 || b.RemainingHours != 6 || b.ProgressPct != 25 {
		t.Errorf("budget = %+v", b)
	}

	// Written to disk and loadable.
	back, err := Load(ws)
	if err != nil || back.Analytics.Streak != 4 {
		t.Errorf("Load = %+v, %v", back, err)
	}
}

func messagesByType(sugs []Suggestion) map[string]string {
	out := map[string]string{}
	for _, s := range sugs {
		out[s.Type] = s.Message
	}
	return out
}

func TestSuggestionRules(t *testing.T) {
	ws := testWS(t)
	rating := "bad"
	seed(t, ws,
		types.State{LastRating: &rating},
		types.AnalyticsSummary{
			Rolling7DayAvg:      0.3,
			BestTimeBlocks:      []string{"mon", "tue", "fri"},
			MostSkippedTasks:    []string{"Gym", "Reading", "Stretching", "Piano"},
			CompletionByWeekday: map[string]float64{"wed": 0.2},
			RecoverySuccessRate: 0.75,
		},
		budgetTasks())

	ctx, err := Generate(ws)
	if err != nil {
		t.Fatal(err)
	}
	byType := messagesByType(ctx.Suggestions)

	if _, ok := byType["difficulty_adjustment"]; !ok {
		t.Error("missing difficulty_adjustment for low 7-day average")
	}
	if msg := byType["scheduling"]; !strings.Contains(msg, "mon and tue") || !strings.Contains(msg, "Deadline paper") {
		t.Errorf("scheduling = %q", msg)
	}
	skips := 0
	for _, s := range ctx.Suggestions {
		if s.Type == "skip_warning" {
			skips++
		}
	}
	if skips != 3 {
		t.Errorf("skip warnings = %d, want capped at 3", skips)
	}
	if msg := byType["weekday_warning"]; !strings.Contains(msg, "wed") {
		t.Errorf("weekday_warning = %q", msg)
	}
	if _, ok := byType["recovery_suggestion"]; !ok {
		t.Error("missing recovery_suggestion for bad day with good recovery rate")
	}
}

// A healthy week produces no noise.
func TestSuggestionsQuietWhenHealthy(t *testing.T) {
	ws := testWS(t)
	rating := "good"
	seed(t, ws,
		types.State{LastRating: &rating},
		types.AnalyticsSummary{Rolling7DayAvg: 0.9,
			CompletionByWeekday: map[string]float64{"wed": 0.8}},
		types.NewTasksFile())

	ctx, err := Generate(ws)
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Suggestions) != 0 {
		t.Errorf("suggestions = %+v", ctx.Suggestions)
	}
}

// A zero 7-day average means no data, not low completion.
func TestNoDifficultyWarningAtZero(t *testing.T) {
	ws := testWS(t)
	seed(t, ws, types.State{}, types.AnalyticsSummary{Rolling7DayAvg: 0}, types.NewTasksFile())
	ctx, err := Generate(ws)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range ctx.Suggestions {
		if s.Type == "difficulty_adjustment" {
			t.Errorf("difficulty warning with no data: %+v", s)
		}
	}
}
