// Package pipeline scores a cohort concurrently and normalizes the raw
// scores across the cohort or its partitions.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/occr-cli/internal/cohort"
	"github.com/sells-group/occr-cli/internal/model"
)

// Scorer computes the sub-scores and raw OCCR for one company.
type Scorer interface {
	Score(p model.CompanyProfile, asOf time.Time) (model.ScoreVector, float64, error)
}

// Options configures a single run.
type Options struct {
	// AsOf overrides the cohort's evaluation date when non-zero.
	AsOf     time.Time
	Grouping model.Grouping
}

// Pipeline scores every profile of a cohort with bounded concurrency.
type Pipeline struct {
	scorer      Scorer
	concurrency int
}

// New creates a Pipeline. Concurrency below 1 is treated as 1.
func New(s Scorer, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{scorer: s, concurrency: concurrency}
}

// Run scores the cohort and normalizes the raw scores. A company that fails
// validation is recorded with its error and does not stop the run; it is
// excluded from normalization. Results keep the cohort order, followed by
// companies that failed to load.
func (p *Pipeline) Run(ctx context.Context, c *model.Cohort, opts Options) (*model.ScoreRun, error) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = c.AsOf
	}
	if asOf.IsZero() {
		return nil, eris.New("pipeline: evaluation date is required")
	}
	grouping := opts.Grouping
	if grouping == "" {
		grouping = model.GroupingNone
	}

	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.Time("as_of", asOf),
		zap.String("grouping", string(grouping)),
	)
	start := time.Now()

	results := make([]model.CompanyResult, len(c.Profiles))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, profile := range c.Profiles {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			scores, raw, err := p.scorer.Score(profile, asOf)
			if err != nil {
				log.Warn("company scoring failed",
					zap.String("ticker", profile.Ticker),
					zap.Error(err),
				)
				results[i] = model.FailedResult(profile, err)
				return nil
			}

			results[i] = model.CompanyResult{
				Ticker:          profile.Ticker,
				Name:            profile.Name,
				Sector:          profile.Sector,
				EnterpriseValue: profile.EnterpriseValue,
				Scores:          scores,
				RawScore:        raw,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: scoring cancelled")
	}

	partitions := normalize(results, grouping, log)

	results = append(results, c.Failures...)
	run := &model.ScoreRun{
		ID:         uuid.New().String(),
		AsOf:       asOf,
		Grouping:   grouping,
		Companies:  len(results),
		Results:    results,
		Partitions: partitions,
		CreatedAt:  time.Now().UTC(),
	}
	run.Failed = len(run.Failures())

	log.Info("scoring run complete",
		zap.String("run_id", run.ID),
		zap.Int("companies", run.Companies),
		zap.Int("failed", run.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return run, nil
}

// normalize fills Group and NormalizedScore on the successful results in place.
func normalize(results []model.CompanyResult, grouping model.Grouping, log *zap.Logger) []model.PartitionStats {
	var ok []model.CompanyResult
	var entries []cohort.Entry
	for _, r := range results {
		if !r.Failed() {
			ok = append(ok, r)
			entries = append(entries, cohort.Entry{ID: r.Ticker, Raw: r.RawScore})
		}
	}
	if len(entries) == 0 {
		return nil
	}

	n := cohort.Normalize(entries, cohort.KeyFor(grouping, ok))
	for _, d := range n.Degenerate {
		log.Warn("partition not normalized", zap.Error(d))
	}

	for i := range results {
		if results[i].Failed() {
			continue
		}
		results[i].Group = n.Groups[results[i].Ticker]
		if v, found := n.Values[results[i].Ticker]; found {
			results[i].NormalizedScore = &v
		}
	}
	return n.Partitions
}
