// Package journal appends one JSON line per engine operation to
// planner/events.jsonl. The log is an audit trail, not state: nothing in the
// engine reads it back, and a write failure never fails the operation that
// produced it.
//
// Design constraints:
//   - All Journal methods are nil-safe (no-op on nil receiver) so callers
//     don't need nil checks before every log call.
//   - Concurrent writes are safe (mutex-protected).
//   - Errors go to slog and are otherwise swallowed.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind labels one logged operation.
type EventKind string

const (
	KindPlanGenerated EventKind = "plan_generated"
	KindPlanSaved     EventKind = "plan_saved"
	KindDayFinalized  EventKind = "day_finalized"
	KindFocusStart    EventKind = "focus_start"
	KindFocusStop     EventKind = "focus_stop"
	KindTaskCreated   EventKind = "task_created"
	KindTaskUpdated   EventKind = "task_updated"
	KindTaskDeleted   EventKind = "task_deleted"
)

// Event is one JSONL line. Fields are omitempty so each event carries only
// its relevant data.
type Event struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"ts"`
	Kind      EventKind `json:"kind"`
	Day       string    `json:"day,omitempty"`

	TaskID  string  `json:"task_id,omitempty"`
	Rating  string  `json:"rating,omitempty"`
	Streak  int     `json:"streak,omitempty"`
	Blocks  int     `json:"blocks,omitempty"`
	Minutes float64 `json:"minutes,omitempty"`
	Detail  string  `json:"detail,omitempty"`
}

// Journal appends events to one JSONL file.
type Journal struct {
	path string
	mu   sync.Mutex
}

// New returns a journal writing to path. The file and its directory are
// created on first write.
func New(path string) *Journal { return &Journal{path: path} }

// Append writes one event line, filling in the ID and timestamp.
func (j *Journal) Append(e Event) {
	if j == nil {
		return
	}
	e.ID = uuid.NewString()
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("[JOURNAL] marshal event", "kind", e.Kind, "error", err)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		slog.Error("[JOURNAL] create dir", "error", err)
		return
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("[JOURNAL] open log", "path", j.path, "error", err)
		return
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s\n", data); err != nil {
		slog.Error("[JOURNAL] write event", "error", err)
	}
}
