package scorer

import (
	"fmt"
	"math"
	"time"

	"github.com/sells-group/occr-cli/internal/model"
)

const daysPerYear = 365

// HistoricalCredit returns the outstanding-weighted probability that each debt
// instrument defaults before it matures, evaluated at asOf:
//
//	score_i = 1 - (1 - pd1y_i)^(days_to_maturity_i / 365)
//	result  = sum(score_i * outstanding_i / sum(outstanding))
//
// Instruments that matured before asOf are rejected.
func HistoricalCredit(instruments []model.DebtInstrument, asOf time.Time) (float64, error) {
	if len(instruments) == 0 {
		return 0, model.NewValidationError("debt_instruments", "at least one instrument is required")
	}

	var total float64
	for i, inst := range instruments {
		field := fmt.Sprintf("debt_instruments[%d]", i)
		if inst.MaturityDate.IsZero() {
			return 0, model.NewValidationError(field+".maturity_date", "missing")
		}
		if inst.OutstandingAmount < 0 || math.IsNaN(inst.OutstandingAmount) {
			return 0, model.NewValidationError(field+".outstanding_amount", "must be >= 0, got %g", inst.OutstandingAmount)
		}
		if inst.DefaultProbability1Y < 0 || inst.DefaultProbability1Y > 1 || math.IsNaN(inst.DefaultProbability1Y) {
			return 0, model.NewValidationError(field+".one_year_default_probability",
				"must be between 0 and 1, got %g", inst.DefaultProbability1Y)
		}
		if daysBetween(asOf, inst.MaturityDate) < 0 {
			return 0, model.NewValidationError(field+".maturity_date",
				"matured on %s, before evaluation date %s",
				inst.MaturityDate.Format(time.DateOnly), asOf.Format(time.DateOnly))
		}
		total += inst.OutstandingAmount
	}
	if total == 0 {
		return 0, model.NewValidationError("outstanding_amount", "total outstanding amount is zero")
	}

	var score float64
	for _, inst := range instruments {
		years := float64(daysBetween(asOf, inst.MaturityDate)) / daysPerYear
		survival := math.Pow(1-inst.DefaultProbability1Y, years)
		score += (inst.OutstandingAmount / total) * (1 - survival)
	}
	return score, nil
}

// daysBetween returns the number of whole calendar days from a to b, ignoring
// the time of day and location offsets.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
