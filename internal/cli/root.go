package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/haricheung/moltfocus/internal/engine"
	"github.com/haricheung/moltfocus/internal/workspace"
)

// App carries the resolved engine through the command tree.
type App struct {
	Engine *engine.Engine
}

// NewRootCommand builds the molt command tree. The workspace root comes from
// --root, then $PLANNER_ROOT, then ~/planner.
func NewRootCommand() *cobra.Command {
	app := &App{}
	v := viper.New()

	root := &cobra.Command{
		Use:           "molt",
		Short:         "Personal daily-planning engine",
		Long:          "molt keeps a file-backed workspace of plans, tasks, and reflections,\nschedules your day, and closes it out with a rated reflection entry.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlag("root", cmd.Root().PersistentFlags().Lookup("root")); err != nil {
				return err
			}
			ws, err := workspace.Resolve(v.GetString("root"))
			if err != nil {
				return err
			}
			app.Engine = engine.New(ws)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, app)
		},
	}
	root.PersistentFlags().String("root", "", "workspace root (default $PLANNER_ROOT or ~/planner)")
	v.SetDefault("root", "")
	_ = v.BindEnv("root", workspace.EnvRoot)

	root.AddCommand(
		newGenerateCommand(app),
		newFinalizeCommand(app),
		newTasksCommand(app),
		newAnalyticsCommand(app),
		newFocusCommand(app),
		newCheckinCommand(app),
		newPlanCommand(app),
		newReflectionsCommand(app),
		newStateCommand(app),
	)
	return root
}

func runStatus(cmd *cobra.Command, app *App) error {
	st, err := app.Engine.State()
	if err != nil {
		return err
	}
	planText, err := app.Engine.Plan()
	if err != nil {
		return err
	}
	active, err := app.Engine.FocusCurrent()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderStatus(st, strings.TrimSpace(planText) != "", active))
	return nil
}

func newGenerateCommand(app *App) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the day's time-blocked plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Engine.GeneratePlan(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan for %s: %d blocks, %d min of task work (%.0f%% of free time)\n",
				s.Date, len(s.Blocks), s.TotalWorkMinutes, s.UtilizationPct)
			if len(s.UnscheduledTasks) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Carryover: %s\n", strings.Join(s.UnscheduledTasks, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date (YYYY-MM-DD, default today)")
	return cmd
}

func newFinalizeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize",
		Short: "Close out the day: rating, streak, reflection entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Engine.FinalizeDay(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !res.OK:
				return fmt.Errorf("finalize: %s", res.Reason)
			case res.AlreadyFinalized:
				fmt.Fprintf(out, "Already finalized for %s (rating %s, streak %d)\n",
					res.Day, ratingLabel(string(res.Rating)), res.Streak)
			default:
				fmt.Fprintf(out, "Finalized %s: %s, streak %d\n",
					res.Day, ratingLabel(string(res.Rating)), res.Streak)
				for _, u := range res.TaskUpdates {
					fmt.Fprintf(out, "  %s\n", u)
				}
			}
			return nil
		},
	}
}

func newPlanCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "plan [show]",
		Short:     "Print the current plan.md",
		Args:      cobra.OnlyValidArgs,
		ValidArgs: []string{"show"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := app.Engine.Plan()
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No plan yet. Run: molt generate")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newReflectionsCommand(app *App) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "reflections",
		Short: "Show the newest reflection entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := app.Engine.RecentReflections(n)
			if err != nil {
				return err
			}
			if len(sections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reflections yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(sections, "\n\n"))
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 3, "number of entries")
	return cmd
}

func newStateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the persistent day ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.Engine.State()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Streak: %d\n", st.Streak)
			if st.LastFinalizedDate != nil {
				fmt.Fprintf(out, "Last finalized: %s\n", *st.LastFinalizedDate)
			}
			for _, h := range st.History {
				mark := " "
				if h.StreakCounted {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s  %-4s %-8s %d/%d\n", mark, h.Day, h.Rating, h.Mode, h.DoneCount, h.Total)
			}
			return nil
		},
	}
}

func newAnalyticsCommand(app *App) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show rolling completion metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Engine.Analytics()
			if refresh {
				s, err = app.Engine.RefreshAnalytics()
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderAnalytics(s))
			ctx, err := app.Engine.AgentContext()
			if err == nil {
				fmt.Fprint(cmd.OutOrStdout(), renderSuggestions(ctx.Suggestions))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute from reflections before showing")
	return cmd
}
