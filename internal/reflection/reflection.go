// Package reflection maintains reflections.md, the rolling journal of
// finalized days. Entries are prepended so the newest day is always first;
// the file format is a stable contract consumed by the analytics parser.
package reflection

import (
	"fmt"
	"strings"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

const header = "# Reflections (rolling)\n\nAppend newest entries at the top.\n\n---\n\n"

const entryMarker = "---\n\n"

// Entry is the material rendered into one journal section.
type Entry struct {
	Day        string
	Timestamp  string // ISO minute timestamp in the profile timezone
	Rating     types.Rating
	Mode       types.Mode
	DoneItems  []string
	Notes      []string // pre-rendered "label: comment" lines
	Reflection string
	Summary    string
}

// Render produces the markdown section for one day.
func Render(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", e.Day)
	fmt.Fprintf(&b, "- Time: %s\n\n", e.Timestamp)
	fmt.Fprintf(&b, "**Rating:** %s\n\n", strings.ToUpper(string(e.Rating)))
	fmt.Fprintf(&b, "**Mode:** %s\n\n", strings.ToUpper(string(e.Mode)))

	b.WriteString("**Done**\n")
	writeList(&b, e.DoneItems)

	b.WriteString("\n**Notes**\n")
	writeList(&b, e.Notes)

	b.WriteString("\n**Reflection**\n")
	if strings.TrimSpace(e.Reflection) == "" {
		b.WriteString("- (none)\n")
	} else {
		b.WriteString(e.Reflection + "\n")
	}

	b.WriteString("\n**Auto-summary**\n")
	fmt.Fprintf(&b, "- %s\n", e.Summary)
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("- (none)\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

// Prepend inserts the rendered entry at the top of the journal, right after
// the header separator. A missing file gets the header first; a file without
// the separator gets the entry prepended whole.
func Prepend(ws *workspace.Workspace, e Entry) error {
	existing, err := fsio.ReadText(ws.ReflectionsPath())
	if err != nil {
		return err
	}
	section := Render(e) + "\n"

	var out string
	switch {
	case strings.TrimSpace(existing) == "":
		out = header + section
	default:
		if idx := strings.Index(existing, entryMarker); idx >= 0 {
			cut := idx + len(entryMarker)
			out = existing[:cut] + section + existing[cut:]
		} else {
			out = section + existing
		}
	}
	return fsio.WriteTextAtomic(ws.ReflectionsPath(), out)
}

// Recent returns the newest n day sections, newest first, each stripped of
// surrounding whitespace so display code can join them directly.
func Recent(ws *workspace.Workspace, n int) ([]string, error) {
	text, err := fsio.ReadText(ws.ReflectionsPath())
	if err != nil {
		return nil, err
	}
	sections := Split(text)
	if n >= 0 && len(sections) > n {
		sections = sections[:n]
	}
	for i, s := range sections {
		sections[i] = strings.TrimSpace(s)
	}
	return sections, nil
}

// Split cuts the journal into per-day sections on "## YYYY-MM-DD" headings,
// preserving file order (newest first).
func Split(text string) []string {
	var sections []string
	var cur []string
	flush := func() {
		if cur != nil {
			sections = append(sections, strings.TrimRight(strings.Join(cur, "\n"), "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if isDayHeading(line) {
			flush()
			cur = []string{line}
			continue
		}
		if cur != nil {
			cur = append(cur, line)
		}
	}
	flush()
	return sections
}

// isDayHeading matches "## YYYY-MM-DD" at line start.
func isDayHeading(line string) bool {
	if !strings.HasPrefix(line, "## ") {
		return false
	}
	rest := strings.TrimSpace(line[3:])
	if len(rest) != 10 || rest[4] != '-' || rest[7] != '-' {
		return false
	}
	for i, r := range rest {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
