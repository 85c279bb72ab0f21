package scorer

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/occr-cli/internal/config"
	"github.com/sells-group/occr-cli/internal/model"
)

// Aggregate combines the five sub-scores into the raw OCCR:
//
//	raw = wH*historical + wS*stressed + wU*utilization - wT*transaction + wC*clustering
//
// Strong cash inflows (positive transaction score) lower the raw score.
func Aggregate(v model.ScoreVector, w config.WeightsConfig) float64 {
	return w.Historical*v.Historical +
		w.StressedSolvency*v.StressedSolvency +
		w.Utilization*v.Utilization -
		w.Transaction*v.Transaction +
		w.Clustering*v.Clustering
}

// Scorer computes OCCR sub-scores for company profiles under one configuration.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	cfg config.ScoringConfig
}

// New creates a Scorer with the given config.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scoring config in use.
func (s *Scorer) Config() config.ScoringConfig {
	return s.cfg
}

// Score computes the sub-scores and raw OCCR for one company evaluated at asOf.
func (s *Scorer) Score(p model.CompanyProfile, asOf time.Time) (model.ScoreVector, float64, error) {
	var v model.ScoreVector
	var err error

	if v.Historical, err = HistoricalCredit(p.DebtInstruments, asOf); err != nil {
		return v, 0, eris.Wrap(err, "historical credit")
	}
	if v.StressedSolvency, err = StressedSolvency(p.EnterpriseValue, p.TotalDebt, s.cfg.Simulation); err != nil {
		return v, 0, eris.Wrap(err, "stressed solvency")
	}

	leverage := p.MaxLeverage
	if leverage == 0 {
		leverage = s.cfg.DefaultMaxLeverage
	}
	if v.Utilization, err = Utilization(p.EBITDA, p.TotalDebt, leverage, s.cfg.Utilization); err != nil {
		return v, 0, eris.Wrap(err, "utilization")
	}

	weights := p.CashFlowWeights
	if len(weights) == 0 {
		weights = RecencyWeights(len(p.CashFlows), s.cfg.CashFlowWeights.Oldest, s.cfg.CashFlowWeights.Newest)
	}
	if v.Transaction, err = TransactionBehavior(p.CashFlows, weights); err != nil {
		return v, 0, eris.Wrap(err, "transaction behavior")
	}

	v.Clustering = CreditEventClustering(p.CreditEvents)

	return v, Aggregate(v, s.cfg.Weights), nil
}
