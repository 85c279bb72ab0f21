package scorer

import (
	"math"

	"github.com/sells-group/occr-cli/internal/config"
	"github.com/sells-group/occr-cli/internal/model"
)

// Utilization scores how much of a company's debt capacity (ebitda * maxLeverage)
// is drawn. With ratio = debt / capacity:
//
//	clamped:    clamp(1 - ratio, 0, 1)
//	asymmetric: 1 - ratio, minus PenaltySlope * (ratio - 1) once ratio exceeds 1 (unbounded below)
func Utilization(ebitda, debt, maxLeverage float64, cfg config.UtilizationConfig) (float64, error) {
	if ebitda <= 0 || math.IsNaN(ebitda) {
		return 0, model.NewValidationError("ebitda", "must be positive, got %g", ebitda)
	}
	if maxLeverage <= 0 || math.IsNaN(maxLeverage) {
		return 0, model.NewValidationError("max_leverage", "must be positive, got %g", maxLeverage)
	}
	if debt < 0 || math.IsNaN(debt) {
		return 0, model.NewValidationError("total_debt", "must be >= 0, got %g", debt)
	}

	ratio := debt / (ebitda * maxLeverage)

	switch cfg.Policy {
	case PolicyClamped:
		return clamp(1-ratio, 0, 1), nil
	case PolicyAsymmetric:
		if ratio <= 1 {
			return 1 - ratio, nil
		}
		return (1 - ratio) - cfg.PenaltySlope*(ratio-1), nil
	default:
		return 0, model.NewValidationError("utilization.policy", "unknown policy %q", cfg.Policy)
	}
}
