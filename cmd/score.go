package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/occr-cli/internal/cohort"
	"github.com/sells-group/occr-cli/internal/config"
	"github.com/sells-group/occr-cli/internal/loader"
	"github.com/sells-group/occr-cli/internal/model"
	"github.com/sells-group/occr-cli/internal/pipeline"
	"github.com/sells-group/occr-cli/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a cohort of companies",
	Long: `Score every company in a cohort manifest and normalize the raw OCCR.

Each company gets five sub-scores (historical credit, stressed solvency,
utilization, transaction behavior, credit event clustering) which are
combined into a raw OCCR and min-max normalized across the cohort, or
within each sector or enterprise-value quartile with --group.

Companies whose inputs are invalid are reported with their error and do
not stop the run.

Examples:
  # Score a cohort as of a fixed date
  score --cohort cohort.yaml --as-of 31/12/2024

  # Normalize within sectors and print per-sector averages
  score --cohort cohort.yaml --group sector --summary sector

  # Export to Excel and keep the run in history
  score --cohort cohort.yaml --format xlsx --output occr.xlsx --save

  # Use the asymmetric utilization policy with a reproducible seed
  score --cohort cohort.yaml --utilization-policy asymmetric --seed 7`,
	RunE: runScore,
}

func init() {
	registerScoreFlags(scoreCmd.Flags())
	_ = scoreCmd.MarkFlagRequired("cohort")

	rootCmd.AddCommand(scoreCmd)
}

func registerScoreFlags(f *pflag.FlagSet) {
	f.String("cohort", "", "path to the cohort manifest (YAML)")
	f.String("as-of", "", "evaluation date, DD/MM/YYYY or YYYY-MM-DD (default: manifest as_of, then today)")
	f.String("group", "none", "normalization grouping: none, sector or size")
	f.String("summary", "", "add a summary table by sector or size")
	f.String("format", formatTable, "output format: table, csv, json or xlsx")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "save the run to the configured store")
	f.Int64("seed", 0, "Monte-Carlo seed (overrides config)")
	f.Int("trials", 0, "Monte-Carlo trials (overrides config)")
	f.String("utilization-policy", "", "utilization policy: clamped or asymmetric (overrides config)")
	f.Float64("penalty-slope", 0, "asymmetric utilization penalty slope (overrides config)")
	f.Int("concurrency", 0, "companies scored in parallel (overrides config)")
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "score"))

	cohortPath, _ := cmd.Flags().GetString("cohort")
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	groupFlag, _ := cmd.Flags().GetString("group")
	summaryFlag, _ := cmd.Flags().GetString("summary")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")

	switch format {
	case formatTable, formatCSV, formatJSON, formatXLSX:
	default:
		return eris.Errorf("score: --format must be table, csv, json or xlsx (got %q)", format)
	}

	grouping, err := model.ParseGrouping(groupFlag)
	if err != nil {
		return eris.Wrap(err, "score: --group")
	}
	var summaryBy model.Grouping
	if summaryFlag != "" {
		if summaryBy, err = model.ParseGrouping(summaryFlag); err != nil {
			return eris.Wrap(err, "score: --summary")
		}
	}

	scoringCfg := applyScoringOverrides(cmd, cfg.Scoring)
	if err := scorer.ValidateConfig(scoringCfg); err != nil {
		return err
	}
	concurrency := cfg.Batch.MaxConcurrentCompanies
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		concurrency = v
	}

	c, err := loader.LoadCohort(ctx, cohortPath)
	if err != nil {
		return err
	}

	asOf, err := resolveAsOf(asOfFlag, c.AsOf, time.Now())
	if err != nil {
		return err
	}

	log.Info("scoring cohort",
		zap.String("cohort", cohortPath),
		zap.Int("companies", len(c.Profiles)+len(c.Failures)),
		zap.Time("as_of", asOf),
		zap.String("grouping", string(grouping)),
		zap.String("utilization_policy", scoringCfg.Utilization.Policy),
		zap.Int64("seed", scoringCfg.Simulation.Seed),
	)

	run, err := pipeline.New(scorer.New(scoringCfg), concurrency).Run(ctx, c, pipeline.Options{
		AsOf:     asOf,
		Grouping: grouping,
	})
	if err != nil {
		return err
	}

	rep := scoreReport{Run: run}
	if summaryBy != "" {
		rep.SummaryBy = summaryBy
		rep.Summaries = cohort.Summarize(run.Results, cohort.SummaryKey(summaryBy, run.Succeeded()))
	}

	if err := writeReport(rep, format, outputPath); err != nil {
		return err
	}

	if save {
		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "score: open store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.SaveRun(ctx, run); err != nil {
			return eris.Wrap(err, "score: save")
		}
		fmt.Fprintf(os.Stderr, "Saved run %s (%d companies, %d failed)\n", run.ID, run.Companies, run.Failed)
	}

	return nil
}

// applyScoringOverrides returns a copy of the base config with CLI flag overrides applied.
func applyScoringOverrides(cmd *cobra.Command, base config.ScoringConfig) config.ScoringConfig {
	c := base

	if cmd.Flags().Changed("seed") {
		c.Simulation.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if v, _ := cmd.Flags().GetInt("trials"); v > 0 {
		c.Simulation.Trials = v
	}
	if v, _ := cmd.Flags().GetString("utilization-policy"); v != "" {
		c.Utilization.Policy = strings.ToLower(strings.TrimSpace(v))
	}
	if v, _ := cmd.Flags().GetFloat64("penalty-slope"); v > 0 {
		c.Utilization.PenaltySlope = v
	}

	return c
}

// resolveAsOf picks the evaluation date: the flag, then the manifest date,
// then today's date in UTC.
func resolveAsOf(flag string, manifest, now time.Time) (time.Time, error) {
	if flag != "" {
		t, err := loader.ParseDate(flag)
		if err != nil {
			return time.Time{}, eris.Wrap(err, "score: --as-of")
		}
		return t, nil
	}
	if !manifest.IsZero() {
		return manifest, nil
	}
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
}
