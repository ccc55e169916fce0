package core

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/satpool/internal/logging"
	"github.com/signalsfoundry/satpool/model"
)

// State tracks where an annealing run is in its lifecycle.
type State int

const (
	StateInitial State = iota
	StateIterating
	StateTerminated
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateIterating:
		return "ITERATING"
	case StateTerminated:
		return "TERMINATED"
	case StateFinalized:
		return "FINALIZED"
	default:
		return "UNKNOWN"
	}
}

// Move labels for logging and metrics.
const (
	MoveSwap   = "swap"
	MoveAdd    = "add"
	MoveRemove = "remove"
)

// RunMetricsRecorder receives optimizer activity. The observability
// collector implements it; a nil recorder disables recording.
type RunMetricsRecorder interface {
	ObserveMove(constellation, move string, accepted bool)
	SetBestCost(constellation string, cost float64)
	SetPoolSize(constellation string, size int)
}

// Annealer runs one simulated-annealing search over a candidate table. All
// randomness comes from the injected seeded generator, so a fixed seed and
// fixed inputs reproduce the same best solution exactly. The iteration loop
// is strictly sequential; separate per-constellation runs share nothing and
// may execute concurrently.
type Annealer struct {
	cfg   model.RunConfig
	table *CandidateTable
	cost  *CostFunction

	log     logging.Logger
	metrics RunMetricsRecorder

	state State
}

// NewAnnealer validates the configuration and wires the cost function. A
// malformed config fails here, before the first iteration.
func NewAnnealer(cfg model.RunConfig, table *CandidateTable, log logging.Logger, metrics RunMetricsRecorder) (*Annealer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Noop()
	}
	eval := &Evaluator{Table: table, MinElevationDeg: cfg.MinElevationDeg}
	return &Annealer{
		cfg:     cfg,
		table:   table,
		cost:    &CostFunction{Cfg: cfg, Eval: eval},
		log:     log,
		metrics: metrics,
		state:   StateInitial,
	}, nil
}

// State returns the current lifecycle state.
func (a *Annealer) State() State { return a.state }

// Run executes the full search and returns the best solution found along
// with run statistics. Cancellation is observed once per iteration, at the
// top; the returned best is always a fully evaluated solution. A best that
// fails hard constraints is still returned, with the failing checks flagged
// in the solution's satisfaction map.
func (a *Annealer) Run(ctx context.Context) (model.PoolSolution, model.OptimizerStats, error) {
	tracer := otel.Tracer("github.com/signalsfoundry/satpool/core")
	ctx, span := tracer.Start(ctx, "annealer.run")
	defer span.End()
	span.SetAttributes(attribute.String("constellation", string(a.cfg.Constellation)))

	rng := rand.New(rand.NewSource(a.cfg.Seed))

	current := a.seedSolution()
	currentCost := a.cost.Cost(current)

	best := append([]int(nil), current...)
	bestCost := currentCost

	params := a.cfg.Annealing
	temperature := params.InitialTemperature

	a.state = StateIterating
	a.log.Info(ctx, "annealing started",
		logging.String("constellation", string(a.cfg.Constellation)),
		logging.Int("seed_pool", len(current)),
		logging.Float64("seed_cost", currentCost),
		logging.Float64("initial_temperature", temperature),
	)

	var stats model.OptimizerStats
	plateau := 0

	for temperature > params.MinTemperature && stats.Iterations < params.MaxIterations {
		if ctx.Err() != nil {
			a.log.Warn(ctx, "annealing cancelled",
				logging.Int("iteration", stats.Iterations))
			break
		}

		neighbor, move, ok := a.proposeNeighbor(current, rng)
		if !ok {
			break
		}
		neighborCost := a.cost.Cost(neighbor)

		accepted := a.accept(currentCost, neighborCost, temperature, rng)
		if accepted {
			current = neighbor
			currentCost = neighborCost
			stats.AcceptedMoves++
		}
		if a.metrics != nil {
			a.metrics.ObserveMove(string(a.cfg.Constellation), move, accepted)
		}

		// Best tracking is independent of acceptance: a rejected neighbor
		// that beats the best so far is still recorded, keeping best
		// monotone while current wanders out of local minima.
		if neighborCost < bestCost {
			best = append(best[:0:0], neighbor...)
			bestCost = neighborCost
			stats.BestIteration = stats.Iterations
			plateau = 0
			if a.metrics != nil {
				a.metrics.SetBestCost(string(a.cfg.Constellation), bestCost)
			}
			a.log.Debug(ctx, "new best solution",
				logging.Int("iteration", stats.Iterations),
				logging.Float64("cost", bestCost),
				logging.Float64("temperature", temperature),
			)
		} else {
			plateau++
		}

		temperature *= params.CoolingRate
		stats.Iterations++

		if params.PlateauTolerance > 0 && plateau > params.PlateauTolerance {
			a.log.Info(ctx, "plateau detected, stopping early",
				logging.Int("iteration", stats.Iterations))
			break
		}
	}
	a.state = StateTerminated
	stats.FinalTemperature = temperature

	solution := a.finalize(best, bestCost)
	a.state = StateFinalized

	if a.metrics != nil {
		a.metrics.SetPoolSize(string(a.cfg.Constellation), len(best))
	}
	span.SetAttributes(
		attribute.Float64("best_cost", bestCost),
		attribute.Int("iterations", stats.Iterations),
		attribute.Bool("feasible", solution.Feasible()),
	)
	a.log.Info(ctx, "annealing finished",
		logging.String("constellation", string(a.cfg.Constellation)),
		logging.Int("iterations", stats.Iterations),
		logging.Int("accepted", stats.AcceptedMoves),
		logging.Int("pool", len(best)),
		logging.Float64("best_cost", bestCost),
		logging.Any("constraints", solution.ConstraintsSatisfied),
	)
	return solution, stats, nil
}

// seedSolution builds the initial pool greedily: candidates ranked by
// coverage score (visible steps times visible ratio), top target-N taken.
// Ties resolve by table order, keeping the seed deterministic.
func (a *Annealer) seedSolution() []int {
	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, a.table.Len())
	gridLen := a.table.Grid.Count
	for i := 0; i < a.table.Len(); i++ {
		visible := 0
		for t := 0; t < gridLen; t++ {
			if a.table.At(i).VisibleAt(t, a.cfg.MinElevationDeg) {
				visible++
			}
		}
		ratio := float64(visible) / float64(gridLen)
		scores[i] = ranked{idx: i, score: float64(visible) * ratio}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	target := a.cfg.TargetPoolSize
	if target == 0 {
		target = (a.cfg.MinPool + a.cfg.MaxPool) / 2
	}
	if target > a.table.Len() {
		target = a.table.Len()
	}

	seed := make([]int, 0, target)
	for _, r := range scores[:target] {
		seed = append(seed, r.idx)
	}
	sort.Ints(seed)
	return seed
}

// proposeNeighbor applies one structural move. Moves that would push the
// pool size outside its bounds are never generated; at the lower bound only
// swap and add are eligible, at the upper bound only swap and remove.
func (a *Annealer) proposeNeighbor(current []int, rng *rand.Rand) ([]int, string, bool) {
	unselected := a.table.Len() - len(current)

	var eligible []string
	if len(current) > 0 && unselected > 0 {
		eligible = append(eligible, MoveSwap)
	}
	if len(current) < a.cfg.MaxPool && unselected > 0 {
		eligible = append(eligible, MoveAdd)
	}
	if len(current) > a.cfg.MinPool {
		eligible = append(eligible, MoveRemove)
	}
	if len(eligible) == 0 {
		return nil, "", false
	}

	move := eligible[rng.Intn(len(eligible))]
	neighbor := append([]int(nil), current...)

	switch move {
	case MoveSwap:
		out := rng.Intn(len(neighbor))
		in := a.pickUnselected(neighbor, rng)
		neighbor[out] = in
	case MoveAdd:
		neighbor = append(neighbor, a.pickUnselected(neighbor, rng))
	case MoveRemove:
		out := rng.Intn(len(neighbor))
		neighbor = append(neighbor[:out], neighbor[out+1:]...)
	}
	sort.Ints(neighbor)
	return neighbor, move, true
}

// pickUnselected draws a uniformly random table index not in the subset.
// The subset is sorted, so membership scanning stays deterministic.
func (a *Annealer) pickUnselected(subset []int, rng *rand.Rand) int {
	n := rng.Intn(a.table.Len() - len(subset))
	cursor := 0
	for i := 0; i < a.table.Len(); i++ {
		if cursor < len(subset) && subset[cursor] == i {
			cursor++
			continue
		}
		if n == 0 {
			return i
		}
		n--
	}
	// Unreachable while subset is a strict subset of the table.
	return a.table.Len() - 1
}

// accept applies the Metropolis rule.
func (a *Annealer) accept(currentCost, neighborCost, temperature float64, rng *rand.Rand) bool {
	if neighborCost < currentCost {
		return true
	}
	probability := math.Exp(-(neighborCost - currentCost) / temperature)
	return rng.Float64() < probability
}

// finalize evaluates the best subset once more and attaches the derived
// scores and the per-constraint satisfaction map.
func (a *Annealer) finalize(best []int, bestCost float64) model.PoolSolution {
	counts := a.cost.Eval.Evaluate(best)
	scores := a.cost.Scores(best, counts)

	return model.PoolSolution{
		Constellation: a.cfg.Constellation,
		Selected:      a.table.IDs(best),
		Cost:          bestCost,
		Scores:        scores,
		ConstraintsSatisfied: map[string]bool{
			model.ConstraintPoolSize:             len(best) >= a.cfg.MinPool && len(best) <= a.cfg.MaxPool,
			model.ConstraintVisibilityCompliance: scores.VisibilityCompliance >= a.cfg.MinVisibilityCompliance,
			model.ConstraintTemporalDistribution: scores.TemporalDistribution >= a.cfg.MinTemporalDistribution,
			model.ConstraintSignalQuality:        scores.SignalQuality >= a.cfg.MinSignalQuality,
		},
	}
}
