package model

// Scores are the derived quality figures attached to a pool solution.
// All three lie in [0, 1], higher is better.
type Scores struct {
	VisibilityCompliance float64
	TemporalDistribution float64
	SignalQuality        float64
}

// Constraint names used as keys in PoolSolution.ConstraintsSatisfied.
const (
	ConstraintPoolSize             = "pool_size"
	ConstraintVisibilityCompliance = "visibility_compliance"
	ConstraintTemporalDistribution = "temporal_distribution"
	ConstraintSignalQuality        = "signal_quality"
)

// PoolSolution is the outcome of one optimization run: the selected
// candidate IDs, the scalar cost of that pool, and the derived scores.
// When the iteration budget runs out before all hard constraints clear,
// the best solution found is still returned here and the failed checks
// are readable from ConstraintsSatisfied; a shortfall is data, never an
// error.
type PoolSolution struct {
	Constellation Constellation
	Selected      []string
	Cost          float64
	Scores        Scores

	ConstraintsSatisfied map[string]bool
}

// Feasible reports whether every constraint check passed.
func (s PoolSolution) Feasible() bool {
	if len(s.ConstraintsSatisfied) == 0 {
		return false
	}
	for _, ok := range s.ConstraintsSatisfied {
		if !ok {
			return false
		}
	}
	return true
}

// OptimizerStats summarizes one annealing run for callers and metrics.
type OptimizerStats struct {
	Iterations       int
	AcceptedMoves    int
	BestIteration    int
	FinalTemperature float64
}
