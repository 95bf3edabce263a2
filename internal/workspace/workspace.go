// Package workspace resolves the planner root directory and the locations
// of every file inside it.
//
// Layout under the root:
//
//	planner/            profile.yaml, tasks.yaml, state.json, analytics.json,
//	                    agent_context.json, hooks.yaml, events.jsonl
//	planner/latest/     plan.md, plan_prev.md, checkin_draft.json, focus.json
//	reflections/        reflections.md
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/types"
)

// EnvRoot overrides the workspace location when set.
const EnvRoot = "PLANNER_ROOT"

// Workspace is a resolved planner root. Now is the clock used for "today"
// decisions; tests swap it for a fixed time.
type Workspace struct {
	Root string
	Now  func() time.Time
}

// Resolve locates the workspace root. Precedence: the explicit path, then
// $PLANNER_ROOT, then ~/planner.
func Resolve(explicit string) (*Workspace, error) {
	root := explicit
	if root == "" {
		root = os.Getenv(EnvRoot)
	}
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		root = filepath.Join(home, "planner")
	}
	expanded, err := ExpandHome(root)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	ws := &Workspace{Root: abs, Now: time.Now}
	if err := ws.EnsureLayout(); err != nil {
		return nil, err
	}
	return ws, nil
}

// EnsureLayout creates the workspace directory skeleton.
func (w *Workspace) EnsureLayout() error {
	for _, dir := range []string{w.LatestDir(), filepath.Join(w.Root, "reflections")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", path, err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func (w *Workspace) PlannerDir() string { return filepath.Join(w.Root, "planner") }
func (w *Workspace) LatestDir() string  { return filepath.Join(w.PlannerDir(), "latest") }

func (w *Workspace) ProfilePath() string      { return filepath.Join(w.PlannerDir(), "profile.yaml") }
func (w *Workspace) TasksPath() string        { return filepath.Join(w.PlannerDir(), "tasks.yaml") }
func (w *Workspace) StatePath() string        { return filepath.Join(w.PlannerDir(), "state.json") }
func (w *Workspace) AnalyticsPath() string    { return filepath.Join(w.PlannerDir(), "analytics.json") }
func (w *Workspace) AgentContextPath() string {
	return filepath.Join(w.PlannerDir(), "agent_context.json")
}
func (w *Workspace) HooksConfigPath() string { return filepath.Join(w.PlannerDir(), "hooks.yaml") }
func (w *Workspace) EventLogPath() string    { return filepath.Join(w.PlannerDir(), "events.jsonl") }
func (w *Workspace) FinalizeLockPath() string {
	return filepath.Join(w.PlannerDir(), ".finalize.lock")
}

func (w *Workspace) PlanPath() string     { return filepath.Join(w.LatestDir(), "plan.md") }
func (w *Workspace) PlanPrevPath() string { return filepath.Join(w.LatestDir(), "plan_prev.md") }
func (w *Workspace) DraftPath() string    { return filepath.Join(w.LatestDir(), "checkin_draft.json") }
func (w *Workspace) FocusPath() string    { return filepath.Join(w.LatestDir(), "focus.json") }

func (w *Workspace) ReflectionsPath() string {
	return filepath.Join(w.Root, "reflections", "reflections.md")
}

// Profile loads planner/profile.yaml, returning defaults when it is absent.
func (w *Workspace) Profile() (types.Profile, error) {
	p := types.DefaultProfile()
	if err := fsio.ReadYAML(w.ProfilePath(), &p); err != nil {
		return types.DefaultProfile(), err
	}
	return p, nil
}

// Location returns the profile timezone, falling back to UTC when the
// profile is unreadable or names an unknown zone.
func (w *Workspace) Location() *time.Location {
	p, err := w.Profile()
	if err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NowLocal returns the current time in the profile timezone.
func (w *Workspace) NowLocal() time.Time {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return now().In(w.Location())
}

// Today returns today's date string in the profile timezone.
func (w *Workspace) Today() string {
	return w.NowLocal().Format(types.DateLayout)
}
