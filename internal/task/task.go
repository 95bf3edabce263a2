// Package task implements tasks.yaml storage, validation, task lifecycle,
// and progress tracking.
package task

import (
	"errors"
	"fmt"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

var (
	// ErrNotFound reports an unknown task ID.
	ErrNotFound = errors.New("task not found")
	// ErrDuplicateID reports a create using an ID already in the file.
	ErrDuplicateID = errors.New("task ID already exists")
)

// Store reads and writes tasks.yaml for one workspace.
type Store struct {
	ws *workspace.Workspace
}

func NewStore(ws *workspace.Workspace) *Store { return &Store{ws: ws} }

// Load parses tasks.yaml, returning an empty default file when it is missing.
func (s *Store) Load() (*types.TasksFile, error) {
	f := types.NewTasksFile()
	if err := fsio.ReadYAML(s.ws.TasksPath(), f); err != nil {
		return nil, err
	}
	if f.Tasks == nil {
		f.Tasks = []types.Task{}
	}
	return f, nil
}

// Save writes the task file back atomically.
func (s *Store) Save(f *types.TasksFile) error {
	return fsio.WriteYAMLAtomic(s.ws.TasksPath(), f)
}

// Find returns a pointer into the active task list, nil when absent.
func Find(f *types.TasksFile, id string) *types.Task {
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			return &f.Tasks[i]
		}
	}
	return nil
}

// Validate checks the task schema shared by create and update.
func Validate(t types.Task) error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("missing required field: id"))
	}
	if t.Title == "" {
		errs = append(errs, errors.New("missing required field: title"))
	}
	switch t.Type {
	case "":
		errs = append(errs, errors.New("missing required field: type"))
	case types.TaskDeadlineProject, types.TaskWeeklyBudget, types.TaskDailyRitual, types.TaskOpenEnded:
	default:
		errs = append(errs, fmt.Errorf("invalid task type: %s", t.Type))
	}
	switch t.Status {
	case types.StatusActive, types.StatusPaused, types.StatusComplete:
	default:
		errs = append(errs, fmt.Errorf("invalid status: %s", t.Status))
	}
	if t.Priority < 1 || t.Priority > 10 {
		errs = append(errs, errors.New("priority must be integer 1-10"))
	}
	return errors.Join(errs...)
}

// Create validates and appends a new task. Zero-valued priority, status, and
// chunk bounds pick up their defaults first.
func Create(f *types.TasksFile, t types.Task) (types.Task, error) {
	applyDefaults(&t)
	if err := Validate(t); err != nil {
		return types.Task{}, err
	}
	if Find(f, t.ID) != nil {
		return types.Task{}, fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
	}
	f.Tasks = append(f.Tasks, t)
	return t, nil
}

func applyDefaults(t *types.Task) {
	if t.Priority == 0 {
		t.Priority = 5
	}
	if t.Status == "" {
		t.Status = types.StatusActive
	}
	if t.MinChunkMinutes == 0 {
		t.MinChunkMinutes = types.DefaultMinChunkMinutes
	}
	if t.MaxChunkMinutes == 0 {
		t.MaxChunkMinutes = types.DefaultMaxChunkMinutes
	}
}

// Patch lists optional task updates; nil members leave the field unchanged.
type Patch struct {
	Title                  *string
	Type                   *types.TaskType
	Priority               *int
	Status                 *types.TaskStatus
	RemainingHours         *float64
	Deadline               *string
	TargetHoursPerWeek     *float64
	HoursThisWeek          *float64
	EstimatedMinutesPerDay *int
	MinChunkMinutes        *int
	MaxChunkMinutes        *int
	Notes                  *string
}

func (p Patch) apply(t *types.Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.RemainingHours != nil {
		v := *p.RemainingHours
		t.RemainingHours = &v
	}
	if p.Deadline != nil {
		t.Deadline = *p.Deadline
	}
	if p.TargetHoursPerWeek != nil {
		v := *p.TargetHoursPerWeek
		t.TargetHoursPerWeek = &v
	}
	if p.HoursThisWeek != nil {
		t.HoursThisWeek = *p.HoursThisWeek
	}
	if p.EstimatedMinutesPerDay != nil {
		v := *p.EstimatedMinutesPerDay
		t.EstimatedMinutesPerDay = &v
	}
	if p.MinChunkMinutes != nil {
		t.MinChunkMinutes = *p.MinChunkMinutes
	}
	if p.MaxChunkMinutes != nil {
		t.MaxChunkMinutes = *p.MaxChunkMinutes
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
}

// Update applies a patch to the task with the given ID and validates the
// merged result before replacing it.
func Update(f *types.TasksFile, id string, p Patch) (types.Task, error) {
	idx := -1
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return types.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := f.Tasks[idx]
	p.apply(&updated)
	if err := Validate(updated); err != nil {
		return types.Task{}, err
	}
	f.Tasks[idx] = updated
	return updated, nil
}

// Delete removes a task from the active list. With archive set, the task is
// marked complete and kept in the archived list instead of being dropped.
func Delete(f *types.TasksFile, id string, archive bool) error {
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			t := f.Tasks[i]
			f.Tasks = append(f.Tasks[:i], f.Tasks[i+1:]...)
			if archive {
				t.Status = types.StatusComplete
				f.Archived = append(f.Archived, t)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
