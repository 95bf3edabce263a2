// Package types defines the shared data model for the planner workspace:
// clock primitives, the user profile, tasks, check-in drafts, day state,
// focus sessions, generated schedules, and analytics summaries.
//
// JSON files use camelCase keys and YAML files use snake_case. Unknown keys
// are ignored on load; missing keys fall back to defaults so that partially
// written files stay readable.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout formats calendar days as they appear in JSON keys and plan headers.
const DateLayout = "2006-01-02"

// TimestampLayout formats the local timestamps written to drafts and focus logs.
const TimestampLayout = "2006-01-02T15:04:05"

// DayTags lists weekday tags in profile order, Monday first.
var DayTags = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// DayTag returns the three-letter tag for a weekday.
func DayTag(d time.Weekday) string {
	return DayTags[(int(d)+6)%7]
}

// ParseDayTag resolves a tag like "tue" to a weekday.
func ParseDayTag(tag string) (time.Weekday, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for i, t := range DayTags {
		if t == tag {
			return time.Weekday((i + 1) % 7), true
		}
	}
	return 0, false
}

// ClockMinute is a clock time expressed as minutes after midnight.
type ClockMinute int

const maxClockMinute ClockMinute = 23*60 + 59

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (ClockMinute, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockMinute(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time: %q", s)
}

func (c ClockMinute) Hour() int   { return int(c) / 60 }
func (c ClockMinute) Minute() int { return int(c) % 60 }

// Add shifts the clock by minutes, clamping within the same day.
func (c ClockMinute) Add(minutes int) ClockMinute {
	v := c + ClockMinute(minutes)
	if v < 0 {
		return 0
	}
	if v > maxClockMinute {
		return maxClockMinute
	}
	return v
}

func (c ClockMinute) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockMinute) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *ClockMinute) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c ClockMinute) MarshalYAML() (any, error) { return c.String(), nil }

func (c *ClockMinute) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var rangeDashes = strings.NewReplacer("–", "-", "—", "-")

// TimeRange is a start/end window within a single day.
type TimeRange struct {
	Start ClockMinute
	End   ClockMinute
}

// ParseTimeRange parses "09:00-11:00". En and em dashes also separate.
func ParseTimeRange(s string) (TimeRange, error) {
	parts := strings.Split(rangeDashes.Replace(s), "-")
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("invalid time range: %q", s)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return TimeRange{}, fmt.Errorf("invalid time range: %q", s)
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return TimeRange{}, fmt.Errorf("invalid time range: %q", s)
	}
	return TimeRange{Start: start, End: end}, nil
}

// Duration returns the range length in minutes, never negative.
func (r TimeRange) Duration() int {
	if r.End < r.Start {
		return 0
	}
	return int(r.End - r.Start)
}

func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// Subtract removes o from r and returns what remains.
func (r TimeRange) Subtract(o TimeRange) []TimeRange {
	if !r.Overlaps(o) {
		return []TimeRange{r}
	}
	var out []TimeRange
	if r.Start < o.Start {
		out = append(out, TimeRange{Start: r.Start, End: o.Start})
	}
	if o.End < r.End {
		out = append(out, TimeRange{Start: o.End, End: r.End})
	}
	return out
}

func (r TimeRange) String() string { return r.Start.String() + "-" + r.End.String() }

func (r TimeRange) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *TimeRange) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeRange(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r TimeRange) MarshalYAML() (any, error) { return r.String(), nil }

func (r *TimeRange) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParseTimeRange(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// FixedRoutine is a named daily routine window from profile.yaml.
type FixedRoutine struct {
	Name        string
	Window      TimeRange
	DurationMin *int
}

// WeeklyEvent is a recurring weekly commitment with optional commute.
type WeeklyEvent struct {
	Name              string    `yaml:"name"`
	Day               string    `yaml:"day"` // mon, tue, wed, ...
	Time              TimeRange `yaml:"time"`
	Location          string    `yaml:"location"`
	CommuteMinEachWay int       `yaml:"commute_min_each_way"`
}

func (e *WeeklyEvent) UnmarshalYAML(value *yaml.Node) error {
	type wire WeeklyEvent
	var w wire
	if err := value.Decode(&w); err != nil {
		return err
	}
	*e = WeeklyEvent(w)
	e.Day = strings.ToLower(e.Day)
	return nil
}

// Profile is the user profile loaded from profile.yaml. Routines keep the
// order they appear in the file.
type Profile struct {
	Timezone              string
	WakeTime              string
	DailyPlanDeliveryTime string
	WorkBlocks            []TimeRange
	FixedRoutines         []FixedRoutine
	CommuteOneWayMin      int
	WeeklyFixedEvents     []WeeklyEvent
}

// DefaultProfile returns the profile used when profile.yaml is absent.
func DefaultProfile() Profile {
	return Profile{Timezone: "UTC", WakeTime: "08:00", DailyPlanDeliveryTime: "08:30"}
}

func (p *Profile) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Timezone              string      `yaml:"timezone"`
		WakeTime              string      `yaml:"wake_time"`
		DailyPlanDeliveryTime string      `yaml:"daily_plan_delivery_time"`
		WorkBlocks            []TimeRange `yaml:"work_blocks"`
		FixedRoutines         yaml.Node   `yaml:"fixed_routines"`
		Commute               struct {
			TypicalOneWayMin int `yaml:"typical_one_way_min"`
		} `yaml:"commute"`
		WeeklyFixedEvents []WeeklyEvent `yaml:"weekly_fixed_events"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = DefaultProfile()
	if raw.Timezone != "" {
		p.Timezone = raw.Timezone
	}
	if raw.WakeTime != "" {
		p.WakeTime = raw.WakeTime
	}
	if raw.DailyPlanDeliveryTime != "" {
		p.DailyPlanDeliveryTime = raw.DailyPlanDeliveryTime
	}
	p.WorkBlocks = raw.WorkBlocks
	p.CommuteOneWayMin = raw.Commute.TypicalOneWayMin
	p.WeeklyFixedEvents = raw.WeeklyFixedEvents
	if raw.FixedRoutines.Kind == yaml.MappingNode {
		content := raw.FixedRoutines.Content
		for i := 0; i+1 < len(content); i += 2 {
			var rd struct {
				Window      string `yaml:"window"`
				DurationMin *int   `yaml:"duration_min"`
			}
			if err := content[i+1].Decode(&rd); err != nil {
				return err
			}
			if rd.Window == "" {
				rd.Window = "00:00-00:00"
			}
			win, err := ParseTimeRange(rd.Window)
			if err != nil {
				return err
			}
			p.FixedRoutines = append(p.FixedRoutines, FixedRoutine{
				Name:        content[i].Value,
				Window:      win,
				DurationMin: rd.DurationMin,
			})
		}
	}
	return nil
}

// TaskType classifies how a task is scheduled and tracked.
type TaskType string

const (
	TaskDeadlineProject TaskType = "deadline_project" // finite work toward a due date
	TaskWeeklyBudget    TaskType = "weekly_budget"    // recurring weekly hour target
	TaskDailyRitual     TaskType = "daily_ritual"     // short daily habit
	TaskOpenEnded       TaskType = "open_ended"       // no deadline or budget
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusActive   TaskStatus = "active"
	StatusPaused   TaskStatus = "paused"
	StatusComplete TaskStatus = "complete"
)

// Chunk bounds applied when tasks.yaml omits them.
const (
	DefaultMinChunkMinutes = 25
	DefaultMaxChunkMinutes = 180
)

// Task is one tracked commitment from tasks.yaml. Optional numeric fields
// are pointers so absent values survive a load/save round trip.
type Task struct {
	ID       string
	Title    string
	Type     TaskType
	Priority int // 1 (low) to 10 (high)
	Status   TaskStatus

	// deadline_project
	RemainingHours *float64
	Deadline       string // ISO date, optional

	// weekly_budget
	TargetHoursPerWeek *float64
	HoursThisWeek      float64

	// daily_ritual
	EstimatedMinutesPerDay *int

	MinChunkMinutes int
	MaxChunkMinutes int
	Notes           string
}

func (t *Task) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ID                     string     `yaml:"id"`
		Title                  string     `yaml:"title"`
		Type                   TaskType   `yaml:"type"`
		Priority               *int       `yaml:"priority"`
		Status                 TaskStatus `yaml:"status"`
		RemainingHours         *float64   `yaml:"remaining_hours"`
		Deadline               string     `yaml:"deadline"`
		TargetHoursPerWeek     *float64   `yaml:"target_hours_per_week"`
		HoursThisWeek          *float64   `yaml:"hours_this_week"`
		EstimatedMinutesPerDay *int       `yaml:"estimated_minutes_per_day"`
		MinChunkMinutes        *int       `yaml:"min_chunk_minutes"`
		MaxChunkMinutes        *int       `yaml:"max_chunk_minutes"`
		Notes                  string     `yaml:"notes"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	t.ID = raw.ID
	t.Title = raw.Title
	t.Type = raw.Type
	t.Priority = 5
	if raw.Priority != nil {
		t.Priority = *raw.Priority
	}
	t.Status = StatusActive
	if raw.Status != "" {
		t.Status = raw.Status
	}
	t.RemainingHours = raw.RemainingHours
	t.Deadline = raw.Deadline
	t.TargetHoursPerWeek = raw.TargetHoursPerWeek
	t.HoursThisWeek = 0
	if raw.HoursThisWeek != nil {
		t.HoursThisWeek = *raw.HoursThisWeek
	}
	t.EstimatedMinutesPerDay = raw.EstimatedMinutesPerDay
	t.MinChunkMinutes = DefaultMinChunkMinutes
	if raw.MinChunkMinutes != nil {
		t.MinChunkMinutes = *raw.MinChunkMinutes
	}
	t.MaxChunkMinutes = DefaultMaxChunkMinutes
	if raw.MaxChunkMinutes != nil {
		t.MaxChunkMinutes = *raw.MaxChunkMinutes
	}
	t.Notes = raw.Notes
	return nil
}

// MarshalYAML emits only the fields relevant to the task type and skips
// chunk bounds that still hold their defaults, keeping tasks.yaml compact.
func (t Task) MarshalYAML() (any, error) {
	entries := []yamlKV{
		{"id", t.ID},
		{"title", t.Title},
		{"type", string(t.Type)},
		{"priority", t.Priority},
		{"status", string(t.Status)},
	}
	switch t.Type {
	case TaskDeadlineProject:
		if t.RemainingHours != nil {
			entries = append(entries, yamlKV{"remaining_hours", *t.RemainingHours})
		}
		if t.Deadline != "" {
			entries = append(entries, yamlKV{"deadline", t.Deadline})
		}
	case TaskWeeklyBudget:
		if t.TargetHoursPerWeek != nil {
			entries = append(entries, yamlKV{"target_hours_per_week", *t.TargetHoursPerWeek})
		}
		entries = append(entries, yamlKV{"hours_this_week", t.HoursThisWeek})
	case TaskDailyRitual:
		if t.EstimatedMinutesPerDay != nil {
			entries = append(entries, yamlKV{"estimated_minutes_per_day", *t.EstimatedMinutesPerDay})
		}
	}
	if t.MinChunkMinutes != DefaultMinChunkMinutes {
		entries = append(entries, yamlKV{"min_chunk_minutes", t.MinChunkMinutes})
	}
	if t.MaxChunkMinutes != DefaultMaxChunkMinutes {
		entries = append(entries, yamlKV{"max_chunk_minutes", t.MaxChunkMinutes})
	}
	if t.Notes != "" {
		entries = append(entries, yamlKV{"notes", t.Notes})
	}
	return mappingNode(entries)
}

type yamlKV struct {
	key string
	val any
}

func mappingNode(entries []yamlKV) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		var vn yaml.Node
		if err := vn.Encode(e.val); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.key}, &vn)
	}
	return n, nil
}

// TasksFile is the full contents of tasks.yaml.
type TasksFile struct {
	WeekStart string `yaml:"week_start"` // weekday tag, default mon
	Tasks     []Task `yaml:"tasks"`
	Archived  []Task `yaml:"archived,omitempty"`
}

// NewTasksFile returns an empty task list with defaults.
func NewTasksFile() *TasksFile {
	return &TasksFile{WeekStart: "mon", Tasks: []Task{}}
}

func (f *TasksFile) UnmarshalYAML(value *yaml.Node) error {
	type wire TasksFile
	var w wire
	if err := value.Decode(&w); err != nil {
		return err
	}
	*f = TasksFile(w)
	if f.WeekStart == "" {
		f.WeekStart = "mon"
	}
	return nil
}

// Mode is the declared intent for a day.
type Mode string

const (
	ModeCommit   Mode = "commit"   // normal full-effort day
	ModeRecovery Mode = "recovery" // reduced-bar day that protects the streak
)

// NormalizeMode trims and lowercases a mode string, defaulting to commit.
func NormalizeMode(s string) Mode {
	m := strings.ToLower(strings.TrimSpace(s))
	if m == "" {
		return ModeCommit
	}
	return Mode(m)
}

// Rating grades a finalized day.
type Rating string

const (
	RatingGood Rating = "good"
	RatingFair Rating = "fair"
	RatingBad  Rating = "bad"
)

// CheckinItem is the completion mark for one plan checkbox.
type CheckinItem struct {
	Label   string `json:"label"`
	Done    bool   `json:"done"`
	Comment string `json:"comment"`
}

// CheckinDraft accumulates check-in input for a day before finalization.
// Items are keyed by checkbox key.
type CheckinDraft struct {
	Day        string                 `json:"day"`
	UpdatedAt  string                 `json:"updatedAt"`
	Mode       Mode                   `json:"mode"`
	Items      map[string]CheckinItem `json:"items"`
	Reflection string                 `json:"reflection"`
}

// NewCheckinDraft returns an empty commit-mode draft for a day.
func NewCheckinDraft(day string) *CheckinDraft {
	return &CheckinDraft{Day: day, Mode: ModeCommit, Items: map[string]CheckinItem{}}
}

func (d *CheckinDraft) UnmarshalJSON(b []byte) error {
	type wire CheckinDraft
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = CheckinDraft(w)
	d.Mode = NormalizeMode(string(d.Mode))
	if d.Items == nil {
		d.Items = map[string]CheckinItem{}
	}
	return nil
}

func (d CheckinDraft) MarshalJSON() ([]byte, error) {
	type wire CheckinDraft
	w := wire(d)
	if w.Items == nil {
		w.Items = map[string]CheckinItem{}
	}
	return json.Marshal(w)
}

// HistoryEntry is one finalized day in the state ledger.
type HistoryEntry struct {
	Day           string `json:"day"`
	Rating        Rating `json:"rating"`
	Mode          Mode   `json:"mode"`
	StreakCounted bool   `json:"streakCounted"`
	DoneCount     int    `json:"doneCount"`
	Total         int    `json:"total"`
}

// State is the persistent ledger in state.json. Nullable fields stay null
// until the first finalization writes them.
type State struct {
	Streak               int            `json:"streak"`
	LastStreakDate       *string        `json:"lastStreakDate"`
	LastRating           *string        `json:"lastRating"`
	LastMode             *string        `json:"lastMode"`
	LastSummary          *string        `json:"lastSummary"`
	LastFinalizedDate    *string        `json:"lastFinalizedDate"`
	History              []HistoryEntry `json:"history"`
	WeeklyBudgetTracking map[string]any `json:"weeklyBudgetTracking,omitempty"`
	WeekStartDate        string         `json:"weekStartDate,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	type wire State
	w := wire(s)
	if w.History == nil {
		w.History = []HistoryEntry{}
	}
	return json.Marshal(w)
}

// PlanCheckbox is one "- [ ]" line parsed from plan.md.
type PlanCheckbox struct {
	Key     string // stable key, "line-<n>"
	Label   string
	Checked bool
}

// DefaultFocusMinutes is the planned length of a focus session when the
// caller gives none.
const DefaultFocusMinutes = 25

// FocusSession is one timed focus block, active or completed.
type FocusSession struct {
	ID             string  `json:"id,omitempty"`
	TaskID         string  `json:"taskId"`
	TaskLabel      string  `json:"taskLabel"`
	StartedAt      string  `json:"startedAt"`
	PlannedMinutes int     `json:"plannedMinutes"`
	EndedAt        *string `json:"endedAt"`
	ElapsedMinutes float64 `json:"elapsedMinutes"`
	Completed      bool    `json:"completed"`
	Interruptions  int     `json:"interruptions"`
	Notes          string  `json:"notes"`
}

func (s *FocusSession) UnmarshalJSON(b []byte) error {
	type wire FocusSession
	w := wire{PlannedMinutes: DefaultFocusMinutes}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = FocusSession(w)
	return nil
}

// FocusState is the contents of focus.json.
type FocusState struct {
	ActiveSession *FocusSession  `json:"activeSession"`
	History       []FocusSession `json:"history"`
}

func (s FocusState) MarshalJSON() ([]byte, error) {
	type wire FocusState
	w := wire(s)
	if w.History == nil {
		w.History = []FocusSession{}
	}
	return json.Marshal(w)
}

// BlockType tags the origin of a scheduled block.
type BlockType string

const (
	BlockTask    BlockType = "task"
	BlockRoutine BlockType = "routine"
	BlockEvent   BlockType = "event"
)

// ScheduledBlock is one allocated block in a generated day schedule.
type ScheduledBlock struct {
	Start           ClockMinute `json:"start"`
	End             ClockMinute `json:"end"`
	TaskID          string      `json:"taskId"`
	TaskTitle       string      `json:"taskTitle"`
	DurationMinutes int         `json:"durationMinutes"`
	BlockType       BlockType   `json:"blockType"`
}

// DaySchedule is the scheduler output for one day.
type DaySchedule struct {
	Date             string           `json:"date"`
	Blocks           []ScheduledBlock `json:"blocks"`
	UnscheduledTasks []string         `json:"unscheduledTasks"`
	TotalWorkMinutes int              `json:"totalWorkMinutes"`
	UtilizationPct   float64          `json:"utilizationPct"`
}

func (s DaySchedule) MarshalJSON() ([]byte, error) {
	type wire DaySchedule
	w := wire(s)
	w.UtilizationPct = round1(w.UtilizationPct)
	if w.Blocks == nil {
		w.Blocks = []ScheduledBlock{}
	}
	if w.UnscheduledTasks == nil {
		w.UnscheduledTasks = []string{}
	}
	return json.Marshal(w)
}

// DayRecord is one day parsed out of reflections.md.
type DayRecord struct {
	Date           string
	Rating         string
	Mode           string
	DoneItems      []string
	AllItems       []string
	ReflectionText string
	Notes          []string
}

// CompletionRate is done items over all items, zero when nothing was planned.
func (r DayRecord) CompletionRate() float64 {
	if len(r.AllItems) == 0 {
		return 0
	}
	return float64(len(r.DoneItems)) / float64(len(r.AllItems))
}

// StreakRun is one unbroken run of streak-counted days.
type StreakRun struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Length int    `json:"length"`
}

// AnalyticsSummary is the computed contents of analytics.json.
type AnalyticsSummary struct {
	CompletionByWeekday  map[string]float64 `json:"completionByWeekday"`
	CompletionByTaskType map[string]float64 `json:"completionByTaskType"`
	BestTimeBlocks       []string           `json:"bestTimeBlocks"`
	MostSkippedTasks     []string           `json:"mostSkippedTasks"`
	StreakHistory        []StreakRun        `json:"streakHistory"`
	Rolling7DayAvg       float64            `json:"rolling7dayAvg"`
	Rolling30DayAvg      float64            `json:"rolling30dayAvg"`
	RecoverySuccessRate  float64            `json:"recoverySuccessRate"`
	TotalDaysTracked     int                `json:"totalDaysTracked"`
}

func (a AnalyticsSummary) MarshalJSON() ([]byte, error) {
	type wire AnalyticsSummary
	w := wire(a)
	if w.CompletionByWeekday == nil {
		w.CompletionByWeekday = map[string]float64{}
	}
	if w.CompletionByTaskType == nil {
		w.CompletionByTaskType = map[string]float64{}
	}
	if w.BestTimeBlocks == nil {
		w.BestTimeBlocks = []string{}
	}
	if w.MostSkippedTasks == nil {
		w.MostSkippedTasks = []string{}
	}
	if w.StreakHistory == nil {
		w.StreakHistory = []StreakRun{}
	}
	w.Rolling7DayAvg = round3(w.Rolling7DayAvg)
	w.Rolling30DayAvg = round3(w.Rolling30DayAvg)
	w.RecoverySuccessRate = round3(w.RecoverySuccessRate)
	return json.Marshal(w)
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
