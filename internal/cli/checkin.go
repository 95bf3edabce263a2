package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/haricheung/moltfocus/internal/plan"
	"github.com/haricheung/moltfocus/internal/types"
)

func newCheckinCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Walk through today's plan items interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckin(cmd, app)
		},
	}
}

const checkinIntro = "Check-in for %s: %d items. y = done, n = not done, enter = keep.\n\n"

// runCheckin walks the plan's checkboxes one at a time, saving the draft
// after every answer so a dropped terminal loses nothing.
func runCheckin(cmd *cobra.Command, app *App) error {
	planText, err := app.Engine.Plan()
	if err != nil {
		return err
	}
	boxes := plan.ExtractCheckboxes(planText)
	if len(boxes) == 0 {
		return fmt.Errorf("no plan items to check in (molt generate first)")
	}

	draft, err := app.Engine.Draft()
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, checkinIntro, draft.Day, len(boxes))

	for i, box := range boxes {
		item := draft.Items[box.Key]
		item.Label = box.Label
		mark := " "
		if item.Done {
			mark = "x"
		}
		fmt.Fprintf(out, "%d/%d [%s] %s\n", i+1, len(boxes), mark, box.Label)

		rl.SetPrompt("done? [y/n] ")
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			fmt.Fprintln(out, "\nDraft saved. Resume with: molt checkin")
			return saveDraft(app, draft)
		}
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "x":
			item.Done = true
		case "n", "no":
			item.Done = false
		}

		rl.SetPrompt("comment (optional): ")
		comment, err := rl.Readline()
		if err == nil && strings.TrimSpace(comment) != "" {
			item.Comment = strings.TrimSpace(comment)
		}

		draft.Items[box.Key] = item
		if err := saveDraft(app, draft); err != nil {
			return err
		}
	}

	rl.SetPrompt("mode [commit/recovery] (commit): ")
	modeLine, err := rl.Readline()
	if err == nil {
		draft.Mode = types.NormalizeMode(modeLine)
	}

	fmt.Fprintln(out, "Reflection (finish with an empty line):")
	var refLines []string
	for {
		rl.SetPrompt("… ")
		line, err := rl.Readline()
		if err != nil || strings.TrimSpace(line) == "" {
			break
		}
		refLines = append(refLines, line)
	}
	draft.Reflection = strings.Join(refLines, "\n")

	if err := saveDraft(app, draft); err != nil {
		return err
	}

	done := 0
	for _, it := range draft.Items {
		if it.Done {
			done++
		}
	}
	fmt.Fprintf(out, "\nSaved: %d/%d done, mode %s. Close the day with: molt finalize\n",
		done, len(boxes), draft.Mode)
	return nil
}

func saveDraft(app *App, d *types.CheckinDraft) error {
	_, err := app.Engine.SaveCheckinDraft(d.Day, d.Mode, d.Items, d.Reflection)
	return err
}
