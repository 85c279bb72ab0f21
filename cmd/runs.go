package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/occr-cli/internal/cohort"
	"github.com/sells-group/occr-cli/internal/model"
	"github.com/sells-group/occr-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect scoring run history",
	Long:  "Commands for listing, viewing, and summarizing saved scoring runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scoring runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		groupFlag, _ := cmd.Flags().GetString("group")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{Limit: limit}
		if groupFlag != "" {
			g, err := model.ParseGrouping(groupFlag)
			if err != nil {
				return eris.Wrap(err, "runs list")
			}
			filter.Grouping = g
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		summaryFlag, _ := cmd.Flags().GetString("summary")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if format == formatJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		rep := scoreReport{Run: run}
		if summaryFlag != "" {
			g, err := model.ParseGrouping(summaryFlag)
			if err != nil {
				return eris.Wrap(err, "runs show")
			}
			rep.SummaryBy = g
			rep.Summaries = cohort.Summarize(run.Results, cohort.SummaryKey(g, run.Succeeded()))
		}
		return writeReportTable(os.Stdout, rep)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("group", "", "filter by grouping (none, sector, size)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().String("format", formatTable, "output format: table or json")
	runsShowCmd.Flags().String("summary", "", "add a summary table by sector or size")

	runsStatsCmd.Flags().Int("limit", 10000, "max number of recent runs to include")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total         int
	Companies     int
	Failed        int
	ByGrouping    map[model.Grouping]int
	AvgCompanies  float64
	FailureRate   float64
	CleanRuns     int
	LatestRunID   string
	LatestRunAsOf string
}

// computeRunStats computes aggregate statistics from a list of runs ordered
// newest first.
func computeRunStats(runs []model.ScoreRun) runStats {
	s := runStats{Total: len(runs), ByGrouping: make(map[model.Grouping]int)}

	for _, r := range runs {
		s.Companies += r.Companies
		s.Failed += r.Failed
		s.ByGrouping[r.Grouping]++
		if r.Failed == 0 {
			s.CleanRuns++
		}
	}

	if s.Total > 0 {
		s.AvgCompanies = float64(s.Companies) / float64(s.Total)
		s.LatestRunID = runs[0].ID
		s.LatestRunAsOf = runs[0].AsOf.Format("2006-01-02")
	}
	if s.Companies > 0 {
		s.FailureRate = float64(s.Failed) / float64(s.Companies)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.ScoreRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tAS_OF\tGROUPING\tCOMPANIES\tFAILED\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t--------\t---------\t------\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(r.ID),
			r.AsOf.Format("2006-01-02"),
			r.Grouping,
			r.Companies,
			r.Failed,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Clean runs:\t%d\n", s.CleanRuns)
	for _, g := range []model.Grouping{model.GroupingNone, model.GroupingSector, model.GroupingSize} {
		if n := s.ByGrouping[g]; n > 0 {
			_, _ = fmt.Fprintf(w, "  Grouping %s:\t%d\n", g, n)
		}
	}
	_, _ = fmt.Fprintf(w, "Companies scored:\t%d\n", s.Companies)
	_, _ = fmt.Fprintf(w, "Companies failed:\t%d\n", s.Failed)
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "Avg companies/run:\t%.1f\n", s.AvgCompanies)
		_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailureRate*100)
		_, _ = fmt.Fprintf(w, "Latest run:\t%s (as of %s)\n", truncateID(s.LatestRunID), s.LatestRunAsOf)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
