package scorer

import (
	"math"
	"math/rand"

	"github.com/sells-group/occr-cli/internal/config"
	"github.com/sells-group/occr-cli/internal/model"
)

// StressedSolvency estimates the probability that a negative shock to
// enterprise value leaves it below total debt. Each trial draws a shock from
// N(ShockMean, ShockStdev), clamps it into [ShockFloor, ShockCeiling] and
// counts a breach when ev*(1+shock) < debt.
//
// The RNG is seeded from sim.Seed on every call, so identical inputs give
// identical results.
func StressedSolvency(ev, debt float64, sim config.SimulationConfig) (float64, error) {
	if ev <= 0 || math.IsNaN(ev) {
		return 0, model.NewValidationError("enterprise_value", "must be positive, got %g", ev)
	}
	if sim.Trials <= 0 {
		return 0, model.NewValidationError("simulation.trials", "must be positive, got %d", sim.Trials)
	}
	if sim.ShockStdev < 0 {
		return 0, model.NewValidationError("simulation.shock_stdev", "must be >= 0, got %g", sim.ShockStdev)
	}
	if sim.ShockFloor > sim.ShockCeiling {
		return 0, model.NewValidationError("simulation.shock_floor",
			"floor %g is above ceiling %g", sim.ShockFloor, sim.ShockCeiling)
	}

	rng := rand.New(rand.NewSource(sim.Seed))

	var breaches int
	for i := 0; i < sim.Trials; i++ {
		shock := sim.ShockMean + sim.ShockStdev*rng.NormFloat64()
		shock = clamp(shock, sim.ShockFloor, sim.ShockCeiling)
		if ev*(1+shock) < debt {
			breaches++
		}
	}
	return float64(breaches) / float64(sim.Trials), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
