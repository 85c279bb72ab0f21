package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/occr-cli/internal/fetcher"
	"github.com/sells-group/occr-cli/internal/model"
)

// LoadCohort reads the manifest at path and builds a cohort. Manifest errors
// are returned; per-company table errors are recorded in Cohort.Failures.
func LoadCohort(ctx context.Context, path string) (*model.Cohort, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	return m.Cohort(ctx, filepath.Dir(path))
}

// Cohort resolves every company entry, reading referenced tables relative to
// baseDir.
func (m *Manifest) Cohort(ctx context.Context, baseDir string) (*model.Cohort, error) {
	log := zap.L().With(zap.String("component", "loader"))

	c := &model.Cohort{}
	if m.AsOf != nil {
		c.AsOf = m.AsOf.Time
	}

	for _, entry := range m.Companies {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "loader: context cancelled")
		}

		profile, err := entry.Profile(ctx, baseDir)
		if err != nil {
			log.Warn("company input failed to load",
				zap.String("ticker", entry.Ticker),
				zap.Error(err),
			)
			c.Failures = append(c.Failures, model.FailedResult(profile, err))
			continue
		}
		c.Profiles = append(c.Profiles, profile)
	}

	log.Info("cohort loaded",
		zap.Int("companies", len(m.Companies)),
		zap.Int("load_failures", len(c.Failures)),
	)
	return c, nil
}

// Profile builds a CompanyProfile from the entry. The returned profile always
// carries the identifying fields, even on error.
func (e CompanyEntry) Profile(ctx context.Context, baseDir string) (model.CompanyProfile, error) {
	p := model.CompanyProfile{
		Ticker:          e.Ticker,
		Name:            e.Name,
		Sector:          e.Sector,
		EnterpriseValue: e.EnterpriseValue.Float64(),
		TotalDebt:       e.TotalDebt.Float64(),
		EBITDA:          e.EBITDA.Float64(),
		MaxLeverage:     e.MaxLeverage,
		CashFlowWeights: e.CashFlowWeights,
	}
	for _, cf := range e.CashFlows {
		p.CashFlows = append(p.CashFlows, cf.Float64())
	}

	if e.DebtInstruments != "" {
		rows, err := fetcher.ReadTable(ctx, resolve(baseDir, e.DebtInstruments), fetcher.TableOptions{SheetName: e.Sheet})
		if err != nil {
			return p, eris.Wrapf(err, "loader: %s debt instruments", e.Ticker)
		}
		instruments, err := ParseDebtRows(rows)
		if err != nil {
			return p, eris.Wrapf(err, "loader: %s", e.DebtInstruments)
		}
		p.DebtInstruments = instruments
	}
	for i, r := range e.DebtInstrumentRows {
		field := fmt.Sprintf("debt_instrument_rows[%d]", i)
		switch {
		case !r.OutstandingAmount.IsSet():
			return p, model.NewValidationError(field+".outstanding_amount", "missing")
		case !r.DefaultProbability1Y.IsSet():
			return p, model.NewValidationError(field+".one_year_default_probability", "missing")
		case r.MaturityDate.IsZero():
			return p, model.NewValidationError(field+".maturity_date", "missing")
		}
		p.DebtInstruments = append(p.DebtInstruments, model.DebtInstrument{
			OutstandingAmount:    r.OutstandingAmount.Float64(),
			DefaultProbability1Y: r.DefaultProbability1Y.Float64(),
			MaturityDate:         r.MaturityDate.Time,
		})
	}
	if len(p.DebtInstruments) == 0 {
		return p, model.NewValidationError("debt_instruments", "no debt instruments for %s", e.Ticker)
	}

	if e.CreditEvents != "" {
		rows, err := fetcher.ReadTable(ctx, resolve(baseDir, e.CreditEvents), fetcher.TableOptions{SheetName: e.Sheet})
		if err != nil {
			return p, eris.Wrapf(err, "loader: %s credit events", e.Ticker)
		}
		events, err := ParseEventRows(rows)
		if err != nil {
			return p, eris.Wrapf(err, "loader: %s", e.CreditEvents)
		}
		p.CreditEvents = events
	}
	for i, r := range e.CreditEventRows {
		field := fmt.Sprintf("credit_event_rows[%d]", i)
		if r.IssueDate.IsZero() {
			return p, model.NewValidationError(field+".issue_date", "missing")
		}
		if !r.Amount.IsSet() {
			return p, model.NewValidationError(field+".amount", "missing")
		}
		p.CreditEvents = append(p.CreditEvents, model.CreditEvent{IssueDate: r.IssueDate.Time, Amount: r.Amount.Float64()})
	}

	for _, f := range []struct {
		name string
		v    Money
	}{
		{"enterprise_value", e.EnterpriseValue},
		{"total_debt", e.TotalDebt},
		{"ebitda", e.EBITDA},
	} {
		if !f.v.IsSet() {
			return p, model.NewValidationError(f.name, "missing for %s", e.Ticker)
		}
	}

	return p, nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
