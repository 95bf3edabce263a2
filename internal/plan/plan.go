package plan

import (
	"strings"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/types"
	"github.com/haricheung/moltfocus/internal/workspace"
)

// Load returns the current plan.md text, "" when no plan exists.
func Load(ws *workspace.Workspace) (string, error) {
	return fsio.ReadText(ws.PlanPath())
}

// LoadPrev returns the previous plan preserved by the last Save.
func LoadPrev(ws *workspace.Workspace) (string, error) {
	return fsio.ReadText(ws.PlanPrevPath())
}

// Save writes plan.md with a single trailing newline. A non-blank existing
// plan is copied to plan_prev.md first so finalization can diff them.
func Save(ws *workspace.Workspace, content string) error {
	existing, err := fsio.ReadText(ws.PlanPath())
	if err != nil {
		return err
	}
	if strings.TrimSpace(existing) != "" {
		if err := fsio.WriteTextAtomic(ws.PlanPrevPath(), existing); err != nil {
			return err
		}
	}
	return fsio.WriteTextAtomic(ws.PlanPath(), strings.TrimRight(content, " \t\r\n")+"\n")
}

// LoadDraft reads the check-in draft for today. Drafts left over from
// another day are discarded and replaced with a fresh commit-mode draft.
func LoadDraft(ws *workspace.Workspace, today string) (*types.CheckinDraft, error) {
	d := types.NewCheckinDraft(today)
	if err := fsio.ReadJSON(ws.DraftPath(), d); err != nil {
		return nil, err
	}
	if d.Day != today {
		return types.NewCheckinDraft(today), nil
	}
	return d, nil
}

// SaveDraft stamps updatedAt in the profile timezone and writes the draft.
func SaveDraft(ws *workspace.Workspace, d *types.CheckinDraft) error {
	d.UpdatedAt = ws.NowLocal().Format(types.TimestampLayout)
	return fsio.WriteJSONAtomic(ws.DraftPath(), d)
}

// ClearDraft resets the draft to an empty one for the given day.
func ClearDraft(ws *workspace.Workspace, day string) error {
	return SaveDraft(ws, types.NewCheckinDraft(day))
}
