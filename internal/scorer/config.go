// Package scorer implements the five OCCR sub-scores and their weighted aggregate.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/occr-cli/internal/config"
)

// Utilization policies.
const (
	PolicyClamped    = "clamped"
	PolicyAsymmetric = "asymmetric"
)

// DefaultConfig returns a config.ScoringConfig with the canonical OCCR parameters.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Simulation: config.SimulationConfig{
			Trials:       10000,
			Seed:         42,
			ShockMean:    -0.45,
			ShockStdev:   0.15,
			ShockFloor:   -0.80,
			ShockCeiling: -0.10,
		},
		Utilization: config.UtilizationConfig{
			Policy:       PolicyClamped,
			PenaltySlope: 0.5,
		},
		Weights: DefaultWeights(),
		CashFlowWeights: config.CashFlowWeights{
			Oldest: DefaultOldestWeight,
			Newest: DefaultNewestWeight,
		},
		DefaultMaxLeverage: 3.25,
	}
}

// DefaultWeights returns the fixed OCCR aggregation weights.
func DefaultWeights() config.WeightsConfig {
	return config.WeightsConfig{
		Historical:       0.35,
		StressedSolvency: 0.25,
		Utilization:      0.15,
		Transaction:      0.15,
		Clustering:       0.10,
	}
}

// WeightSum returns the sum of all aggregation weight magnitudes.
func WeightSum(w config.WeightsConfig) float64 {
	return w.Historical + w.StressedSolvency + w.Utilization + w.Transaction + w.Clustering
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := []struct {
		name string
		w    float64
	}{
		{"historical", c.Weights.Historical},
		{"stressed_solvency", c.Weights.StressedSolvency},
		{"utilization", c.Weights.Utilization},
		{"transaction", c.Weights.Transaction},
		{"clustering", c.Weights.Clustering},
	}
	for _, w := range weights {
		if w.w < 0 || math.IsNaN(w.w) {
			errs = append(errs, fmt.Sprintf("weights.%s must be >= 0", w.name))
		}
	}
	if WeightSum(c.Weights) <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	sim := c.Simulation
	if sim.Trials <= 0 {
		errs = append(errs, "simulation.trials must be > 0")
	}
	if sim.ShockStdev < 0 {
		errs = append(errs, "simulation.shock_stdev must be >= 0")
	}
	if sim.ShockFloor > sim.ShockCeiling {
		errs = append(errs, "simulation.shock_floor must be <= shock_ceiling")
	}

	switch c.Utilization.Policy {
	case PolicyClamped, PolicyAsymmetric:
	default:
		errs = append(errs, fmt.Sprintf("utilization.policy must be %s or %s, got %q",
			PolicyClamped, PolicyAsymmetric, c.Utilization.Policy))
	}
	if c.Utilization.PenaltySlope < 0 {
		errs = append(errs, "utilization.penalty_slope must be >= 0")
	}

	if c.CashFlowWeights.Oldest < 0 || c.CashFlowWeights.Newest < 0 {
		errs = append(errs, "cash_flow_weights must be >= 0")
	}
	if c.CashFlowWeights.Oldest > 1 || c.CashFlowWeights.Newest > 1 {
		errs = append(errs, "cash_flow_weights must be <= 1")
	}
	if c.DefaultMaxLeverage <= 0 {
		errs = append(errs, "default_max_leverage must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
