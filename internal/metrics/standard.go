package metrics

import "github.com/san-kum/softsim/internal/sim"

// StabilityBound is the per-axis position limit used by Standard.
const StabilityBound = 1e3

// Standard returns the metrics recorded with every stored run.
func Standard(dt float64) []sim.Metric {
	return []sim.Metric{
		NewConstraintError(),
		NewKineticEnergy(dt),
		NewStability(StabilityBound),
		NewMaxVelocity(dt),
	}
}
