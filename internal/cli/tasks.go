package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haricheung/moltfocus/internal/task"
	"github.com/haricheung/moltfocus/internal/types"
)

// taskFlags covers every settable task field; create and update share it.
type taskFlags struct {
	title     string
	taskType  string
	priority  int
	status    string
	remaining float64
	deadline  string
	target    float64
	estimate  int
	minChunk  int
	maxChunk  int
	notes     string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "task title")
	cmd.Flags().StringVar(&f.taskType, "type", "", "deadline_project|weekly_budget|daily_ritual|open_ended")
	cmd.Flags().IntVar(&f.priority, "priority", 0, "priority 1-10")
	cmd.Flags().StringVar(&f.status, "status", "", "active|paused|complete")
	cmd.Flags().Float64Var(&f.remaining, "remaining-hours", 0, "remaining hours (deadline_project)")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "deadline date YYYY-MM-DD")
	cmd.Flags().Float64Var(&f.target, "target-hours", 0, "target hours per week (weekly_budget)")
	cmd.Flags().IntVar(&f.estimate, "estimate-min", 0, "estimated minutes per day (daily_ritual)")
	cmd.Flags().IntVar(&f.minChunk, "min-chunk", 0, "minimum schedulable chunk, minutes")
	cmd.Flags().IntVar(&f.maxChunk, "max-chunk", 0, "maximum schedulable chunk, minutes")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
}

// patch converts only the flags the user actually set.
func (f *taskFlags) patch(cmd *cobra.Command) task.Patch {
	var p task.Patch
	if cmd.Flags().Changed("title") {
		p.Title = &f.title
	}
	if cmd.Flags().Changed("type") {
		tt := types.TaskType(f.taskType)
		p.Type = &tt
	}
	if cmd.Flags().Changed("priority") {
		p.Priority = &f.priority
	}
	if cmd.Flags().Changed("status") {
		st := types.TaskStatus(f.status)
		p.Status = &st
	}
	if cmd.Flags().Changed("remaining-hours") {
		p.RemainingHours = &f.remaining
	}
	if cmd.Flags().Changed("deadline") {
		p.Deadline = &f.deadline
	}
	if cmd.Flags().Changed("target-hours") {
		p.TargetHoursPerWeek = &f.target
	}
	if cmd.Flags().Changed("estimate-min") {
		p.EstimatedMinutesPerDay = &f.estimate
	}
	if cmd.Flags().Changed("min-chunk") {
		p.MinChunkMinutes = &f.minChunk
	}
	if cmd.Flags().Changed("max-chunk") {
		p.MaxChunkMinutes = &f.maxChunk
	}
	if cmd.Flags().Changed("notes") {
		p.Notes = &f.notes
	}
	return p
}

func newTasksCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage the task registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasksList(cmd, app)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List active tasks by urgency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasksList(cmd, app)
		},
	}

	var cf taskFlags
	create := &cobra.Command{
		Use:   "create <id>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := types.Task{
				ID:       args[0],
				Title:    cf.title,
				Type:     types.TaskType(cf.taskType),
				Priority: cf.priority,
				Notes:    cf.notes,
				Deadline: cf.deadline,
			}
			if cmd.Flags().Changed("remaining-hours") {
				t.RemainingHours = &cf.remaining
			}
			if cmd.Flags().Changed("target-hours") {
				t.TargetHoursPerWeek = &cf.target
			}
			if cmd.Flags().Changed("estimate-min") {
				t.EstimatedMinutesPerDay = &cf.estimate
			}
			t.MinChunkMinutes = cf.minChunk
			t.MaxChunkMinutes = cf.maxChunk
			created, err := app.Engine.CreateTask(t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", created.ID, created.Type)
			return nil
		},
	}
	cf.register(create)

	var uf taskFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := app.Engine.UpdateTask(args[0], uf.patch(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.ID)
			return nil
		},
	}
	uf.register(update)

	var archive bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Engine.DeleteTask(args[0], archive); err != nil {
				return err
			}
			verb := "Deleted"
			if archive {
				verb = "Archived"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, args[0])
			return nil
		},
	}
	del.Flags().BoolVar(&archive, "archive", false, "mark complete instead of removing")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := app.Engine.Tasks()
			if err != nil {
				return err
			}
			t := task.Find(tf, args[0])
			if t == nil {
				return fmt.Errorf("task %q: %w", args[0], task.ErrNotFound)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", t.ID, t.Title)
			fmt.Fprintf(out, "  type: %s  priority: %d  status: %s\n", t.Type, t.Priority, t.Status)
			switch t.Type {
			case types.TaskDeadlineProject:
				if t.RemainingHours != nil {
					fmt.Fprintf(out, "  remaining: %.1fh  deadline: %s\n", *t.RemainingHours, t.Deadline)
				}
			case types.TaskWeeklyBudget:
				if t.TargetHoursPerWeek != nil {
					fmt.Fprintf(out, "  week: %.1f/%.1fh\n", t.HoursThisWeek, *t.TargetHoursPerWeek)
				}
			case types.TaskDailyRitual:
				if t.EstimatedMinutesPerDay != nil {
					fmt.Fprintf(out, "  daily: %d min\n", *t.EstimatedMinutesPerDay)
				}
			}
			if t.MinChunkMinutes > 0 || t.MaxChunkMinutes > 0 {
				fmt.Fprintf(out, "  chunks: %d-%d min\n", t.MinChunkMinutes, t.MaxChunkMinutes)
			}
			if t.Notes != "" {
				fmt.Fprintf(out, "  notes: %s\n", t.Notes)
			}
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del, show)
	return cmd
}

func runTasksList(cmd *cobra.Command, app *App) error {
	computed, err := app.Engine.ComputedTasks()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTasks(computed))
	return nil
}
