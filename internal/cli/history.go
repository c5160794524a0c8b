package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pepperonas/Affentanz/internal/db"
	"github.com/pepperonas/Affentanz/internal/events"
	"github.com/pepperonas/Affentanz/internal/models"
)

var (
	historyWorkflow string
	historyLimit    int
	historyPrune    string

	recentRemove string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(recentCmd)

	historyCmd.Flags().StringVar(&historyWorkflow, "workflow", "", "only show runs of this workflow")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
	historyCmd.Flags().StringVar(&historyPrune, "prune", "", "delete runs and events older than a duration or date (e.g. 30d)")

	recentCmd.Flags().StringVar(&recentRemove, "remove", "", "remove a path from the recent list")
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs, or one run with its events",
	Example: `  affentanz history
  affentanz history --workflow login -n 5
  affentanz history 3f2a9c1e-... --json
  affentanz history --prune 30d`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		runs := db.NewRunRepository(database)
		out := cmd.OutOrStdout()

		if historyPrune != "" {
			return pruneHistory(cmd, database)
		}

		if len(args) == 1 {
			run, err := runs.Get(ctx, args[0])
			if err != nil {
				if errors.Is(err, db.ErrRunNotFound) {
					return &PreflightError{
						Message:  fmt.Sprintf("run %s not found", args[0]),
						NextStep: "affentanz history",
					}
				}
				return err
			}
			runEvents, err := db.NewEventRepository(database).ListByEntity(ctx, models.EntityTypeRun, run.ID, 0)
			if err != nil {
				return err
			}
			if IsJSONOutput() || IsJSONLOutput() {
				return WriteOutput(out, struct {
					Run    *models.RunRecord `json:"run"`
					Events []*models.Event   `json:"events"`
				}{run, runEvents})
			}
			return printRun(cmd, run, runEvents)
		}

		records, err := runs.List(ctx, historyWorkflow, historyLimit)
		if err != nil {
			return err
		}
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, records)
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				shortID(r.ID),
				formatRunState(r.State),
				r.WorkflowName,
				fmt.Sprintf("%d/%d", r.CompletedActions, r.TotalActions),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				runDuration(r),
			})
		}
		return writeTable(out, []string{"RUN", "STATE", "WORKFLOW", "ACTIONS", "STARTED", "DURATION"}, rows)
	},
}

func pruneHistory(cmd *cobra.Command, database *db.DB) error {
	cutoff, err := ParseSince(historyPrune)
	if err != nil {
		return err
	}
	if !SkipConfirmation() && !confirm(fmt.Sprintf("Delete run history before %s?", cutoff.Local().Format("2006-01-02 15:04"))) {
		return errors.New("aborted")
	}
	result, err := db.PruneHistory(cmd.Context(), database, *cutoff)
	if err != nil {
		return err
	}
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d runs and %d events\n", result.Runs, result.Events)
	return nil
}

func printRun(cmd *cobra.Command, run *models.RunRecord, runEvents []*models.Event) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  workflow:   %s (%s)\n", run.WorkflowName, run.WorkflowSource)
	fmt.Fprintf(out, "  state:      %s\n", formatRunState(run.State))
	fmt.Fprintf(out, "  actions:    %d/%d\n", run.CompletedActions, run.TotalActions)
	if run.Iterations > 1 {
		fmt.Fprintf(out, "  iterations: %d\n", run.Iterations)
	}
	fmt.Fprintf(out, "  started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "  duration:   %s\n", runDuration(run))
	if run.Failure != nil {
		fmt.Fprintf(out, "  failure:    %s\n", formatFailure(run.Failure))
	}
	if len(runEvents) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	rows := make([][]string, 0, len(runEvents))
	for _, e := range runEvents {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("15:04:05.000"),
			string(e.Type),
			eventDetail(e),
		})
	}
	return writeTable(out, []string{"TIME", "EVENT", "DETAIL"}, rows)
}

func eventDetail(e *models.Event) string {
	switch e.Type {
	case models.EventTypeActionStarted, models.EventTypeActionCompleted, models.EventTypeActionFailed, models.EventTypeConditionError:
		var p models.ActionPayload
		if err := events.DecodePayload(e, &p); err != nil {
			return ""
		}
		detail := fmt.Sprintf("#%d %s", p.ActionIndex+1, p.Description)
		if p.Duration != "" {
			detail += " (" + p.Duration + ")"
		}
		if p.Error != "" {
			detail += ": " + p.Error
		}
		return detail
	case models.EventTypeRunFinished:
		var p models.RunFinishedPayload
		if err := events.DecodePayload(e, &p); err != nil {
			return ""
		}
		return fmt.Sprintf("%s after %s", p.State, p.Duration)
	default:
		return ""
	}
}

func runDuration(r *models.RunRecord) string {
	if r.EndedAt == nil {
		return "-"
	}
	return formatDuration(r.EndedAt.Sub(r.StartedAt))
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently opened workflow files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		recent := db.NewRecentRepository(database, currentConfig().Workflows.RecentLimit)
		out := cmd.OutOrStdout()

		if recentRemove != "" {
			if err := recent.Remove(ctx, recentRemove); err != nil {
				return err
			}
			if !IsJSONOutput() && !IsJSONLOutput() {
				fmt.Fprintf(out, "Removed %s\n", recentRemove)
			}
			return nil
		}

		entries, err := recent.List(ctx)
		if err != nil {
			return err
		}
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No recent workflows")
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for i, entry := range entries {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				entry.Path,
				entry.OpenedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		return writeTable(out, []string{"#", "PATH", "OPENED"}, rows)
	},
}
