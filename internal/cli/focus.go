package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haricheung/moltfocus/internal/focus"
)

func newFocusCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Timed focus sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFocusStatus(cmd, app)
		},
	}

	start := &cobra.Command{
		Use:   "start <task-id> [label] [minutes]",
		Short: "Begin a focus session",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := ""
			minutes := 0
			if len(args) > 1 {
				label = args[1]
			}
			if len(args) > 2 {
				n, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("minutes %q: %w", args[2], err)
				}
				minutes = n
			}
			s, err := app.Engine.FocusStart(cmd.Context(), args[0], label, minutes)
			if err != nil {
				if errors.Is(err, focus.ErrAlreadyActive) {
					return fmt.Errorf("a session is already running (molt focus stop first)")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Focus started: %s, %d min planned\n", s.TaskLabel, s.PlannedMinutes)
			return nil
		},
	}

	var completed bool
	var notes string
	stop := &cobra.Command{
		Use:   "stop",
		Short: "End the active session and log time",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Engine.FocusStop(cmd.Context(), completed, notes)
			if err != nil {
				if errors.Is(err, focus.ErrNoActiveSession) {
					return fmt.Errorf("no active session")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Focus stopped: %s, %.1f min elapsed\n", s.TaskLabel, s.ElapsedMinutes)
			return nil
		},
	}
	stop.Flags().BoolVar(&completed, "completed", false, "mark the session's goal as met")
	stop.Flags().StringVar(&notes, "notes", "", "session notes")

	interrupt := &cobra.Command{
		Use:   "interrupt",
		Short: "Record an interruption on the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Engine.FocusInterrupt()
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No active session.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Interruption noted (%d so far)\n", s.Interruptions)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the active session, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFocusStatus(cmd, app)
		},
	}

	var days int
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Engine.FocusStats(days)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderFocusStats(days, s))
			return nil
		},
	}
	stats.Flags().IntVar(&days, "days", 7, "window in days")

	cmd.AddCommand(start, stop, interrupt, status, stats)
	return cmd
}

func runFocusStatus(cmd *cobra.Command, app *App) error {
	s, err := app.Engine.FocusCurrent()
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No active session.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Focusing on %s since %s (%d min planned, %d interruptions)\n",
		s.TaskLabel, s.StartedAt, s.PlannedMinutes, s.Interruptions)
	return nil
}
