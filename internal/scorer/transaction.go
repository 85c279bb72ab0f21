package scorer

import (
	"fmt"
	"math"

	"github.com/sells-group/occr-cli/internal/model"
)

// Endpoints of the default recency weights.
const (
	DefaultOldestWeight = 0.2
	DefaultNewestWeight = 1.0
)

// RecencyWeights returns n weights spaced linearly from oldest to newest,
// inclusive. A single weight takes the oldest value.
func RecencyWeights(n int, oldest, newest float64) []float64 {
	if n <= 0 {
		return nil
	}
	w := make([]float64, n)
	if n == 1 {
		w[0] = oldest
		return w
	}
	step := (newest - oldest) / float64(n-1)
	for i := range w {
		w[i] = oldest + step*float64(i)
	}
	w[n-1] = newest
	return w
}

// TransactionBehavior returns sum(cf_i * w_i) / sum(|cf_i|) over a cash-flow
// series ordered oldest to newest. Nil weights use the default recency weights.
// Weights must lie in [0, 1], which keeps the score in [-1, 1]. An all-zero or
// empty series scores exactly 0.
func TransactionBehavior(cashFlows, weights []float64) (float64, error) {
	if weights == nil {
		weights = RecencyWeights(len(cashFlows), DefaultOldestWeight, DefaultNewestWeight)
	}
	if len(weights) != len(cashFlows) {
		return 0, model.NewValidationError("cash_flow_weights",
			"length %d does not match %d cash flows", len(weights), len(cashFlows))
	}

	for i, w := range weights {
		if w < 0 || w > 1 || math.IsNaN(w) {
			return 0, model.NewValidationError(fmt.Sprintf("cash_flow_weights[%d]", i),
				"must be between 0 and 1, got %g", w)
		}
	}

	var weighted, gross float64
	for i, cf := range cashFlows {
		weighted += cf * weights[i]
		gross += math.Abs(cf)
	}
	if gross == 0 {
		return 0, nil
	}
	return weighted / gross, nil
}
