package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner", "events.jsonl")
	j := New(path)

	j.Append(Event{Kind: KindDayFinalized, Day: "2026-02-11", Rating: "good", Streak: 4})
	j.Append(Event{Kind: KindFocusStart, TaskID: "deadline-paper"})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Kind != KindDayFinalized || events[0].Streak != 4 {
		t.Errorf("event[0] = %+v", events[0])
	}
	if events[0].ID == "" || events[0].Timestamp == "" {
		t.Errorf("id/ts not stamped: %+v", events[0])
	}
	if events[1].TaskID != "deadline-paper" {
		t.Errorf("event[1] = %+v", events[1])
	}
}

// A nil journal accepts events without doing anything.
func TestNilJournalNoOps(t *testing.T) {
	var j *Journal
	j.Append(Event{Kind: KindPlanSaved})
}
