package reflection

import (
	"strings"
	"testing"
	"time"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

func testWS(t *testing.T) *workspace.Workspace {
	t.Helper()
	return &workspace.Workspace{Root: t.TempDir(), Now: time.Now}
}

func sampleEntry(day string) Entry {
	return Entry{
		Day:        day,
		Timestamp:  day + "T21:30",
		Rating:     types.RatingGood,
		Mode:       types.ModeCommit,
		DoneItems:  []string{"Deep work 2h"},
		Notes:      []string{"Deep work 2h: went well"},
		Reflection: "Solid day overall.",
		Summary:    "[Good] " + day + ": done: Deep work 2h.",
	}
}

func TestRenderTemplate(t *testing.T) {
	got := Render(sampleEntry("2026-02-11"))
	for _, want := range []string{
		"## 2026-02-11\n",
		"- Time: 2026-02-11T21:30\n",
		"**Rating:** GOOD\n",
		"**Mode:** COMMIT\n",
		"**Done**\n- Deep work 2h\n",
		"**Notes**\n- Deep work 2h: went well\n",
		"**Reflection**\nSolid day overall.\n",
		"**Auto-summary**\n- [Good]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered entry missing %q:\n%s", want, got)
		}
	}
}

// Empty lists and reflection all render the "(none)" placeholder.
func TestRenderEmptySections(t *testing.T) {
	got := Render(Entry{Day: "2026-02-11", Rating: types.RatingBad, Mode: types.ModeRecovery})
	if n := strings.Count(got, "- (none)"); n != 3 {
		t.Errorf("placeholder count = %d, want 3:\n%s", n, got)
	}
}

// First Prepend creates the file with the header; later entries land right
// after the separator, so the newest day heading always comes first.
func TestPrependOrdering(t *testing.T) {
	ws := testWS(t)

	if err := Prepend(ws, sampleEntry("2026-02-10")); err != nil {
		t.Fatalf("first Prepend: %v", err)
	}
	text, _ := fsio.ReadText(ws.ReflectionsPath())
	if !strings.HasPrefix(text, "# Reflections (rolling)\n") {
		t.Fatalf("header missing:\n%s", text)
	}

	if err := Prepend(ws, sampleEntry("2026-02-11")); err != nil {
		t.Fatalf("second Prepend: %v", err)
	}
	text, _ = fsio.ReadText(ws.ReflectionsPath())
	first := strings.Index(text, "## 2026-02-11")
	second := strings.Index(text, "## 2026-02-10")
	if first < 0 || second < 0 || first > second {
		t.Errorf("entries out of order (11 at %d, 10 at %d):\n%s", first, second, text)
	}
}

// A journal without the header separator still accepts entries at the top.
func TestPrependNoMarker(t *testing.T) {
	ws := testWS(t)
	if err := fsio.WriteTextAtomic(ws.ReflectionsPath(), "## 2026-02-09\nold entry\n"); err != nil {
		t.Fatal(err)
	}
	if err := Prepend(ws, sampleEntry("2026-02-10")); err != nil {
		t.Fatal(err)
	}
	text, _ := fsio.ReadText(ws.ReflectionsPath())
	if !strings.HasPrefix(text, "## 2026-02-10") {
		t.Errorf("new entry not at top:\n%s", text)
	}
	if !strings.Contains(text, "## 2026-02-09") {
		t.Errorf("old entry lost:\n%s", text)
	}
}

func TestRecent(t *testing.T) {
	ws := testWS(t)
	for _, day := range []string{"2026-02-09", "2026-02-10", "2026-02-11"} {
		if err := Prepend(ws, sampleEntry(day)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := Recent(ws, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d sections", len(got))
	}
	if !strings.HasPrefix(got[0], "## 2026-02-11") || !strings.HasPrefix(got[1], "## 2026-02-10") {
		t.Errorf("wrong sections: %q / %q", got[0][:14], got[1][:14])
	}

	// Missing file reads as no sections.
	none, err := Recent(testWS(t), 5)
	if err != nil || len(none) != 0 {
		t.Errorf("empty journal: %v, %d sections", err, len(none))
	}
}

// Sections come back stripped, so trailing separator lines and blank lines
// in the file never leak into display output.
func TestRecentStripsSections(t *testing.T) {
	ws := testWS(t)
	text := "# Reflections (rolling)\n\n---\n\n## 2026-02-11\nbody\n   \n\n## 2026-02-10\nolder\n"
	if err := fsio.WriteTextAtomic(ws.ReflectionsPath(), text); err != nil {
		t.Fatal(err)
	}
	got, err := Recent(ws, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("sections = %d", len(got))
	}
	if got[0] != "## 2026-02-11\nbody" {
		t.Errorf("section not stripped: %q", got[0])
	}
}

func TestSplitIgnoresNonDateHeadings(t *testing.T) {
	text := "# Reflections (rolling)\n\n## Not a date\n\n## 2026-02-11\nbody\n"
	got := Split(text)
	if len(got) != 1 || !strings.HasPrefix(got[0], "## 2026-02-11") {
		t.Errorf("Split = %q", got)
	}
}
