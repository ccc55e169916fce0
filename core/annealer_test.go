package core

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/signalsfoundry/satpool/model"
)

type fakeRecorder struct {
	mu       sync.Mutex
	moves    int
	accepted int
	bestCost float64
	poolSize int
}

func (r *fakeRecorder) ObserveMove(_, _ string, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves++
	if accepted {
		r.accepted++
	}
}

func (r *fakeRecorder) SetBestCost(_ string, cost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bestCost = cost
}

func (r *fakeRecorder) SetPoolSize(_ string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poolSize = size
}

func TestRunProducesSolutionWithinBounds(t *testing.T) {
	table := staggeredTable(t, 10, 20)
	cfg := smallRunConfig()

	a, err := NewAnnealer(cfg, table, nil, nil)
	if err != nil {
		t.Fatalf("NewAnnealer: %v", err)
	}
	solution, stats, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if a.State() != StateFinalized {
		t.Fatalf("state = %v, want FINALIZED", a.State())
	}
	if len(solution.Selected) < cfg.MinPool || len(solution.Selected) > cfg.MaxPool {
		t.Fatalf("pool size %d outside [%d, %d]", len(solution.Selected), cfg.MinPool, cfg.MaxPool)
	}
	seen := map[string]bool{}
	for _, id := range solution.Selected {
		if table.IndexOf(id) < 0 {
			t.Fatalf("selected unknown candidate %q", id)
		}
		if seen[id] {
			t.Fatalf("candidate %q selected twice", id)
		}
		seen[id] = true
	}
	if stats.Iterations == 0 {
		t.Fatal("no iterations recorded")
	}
	if stats.FinalTemperature >= cfg.Annealing.InitialTemperature {
		t.Fatalf("temperature did not cool: %v", stats.FinalTemperature)
	}
	if len(solution.ConstraintsSatisfied) != 4 {
		t.Fatalf("constraint map has %d entries, want 4", len(solution.ConstraintsSatisfied))
	}
}

func TestRunIsReproducibleForFixedSeed(t *testing.T) {
	cfg := smallRunConfig()
	cfg.Seed = 1234

	run := func() (model.PoolSolution, model.OptimizerStats) {
		table := staggeredTable(t, 10, 20)
		a, err := NewAnnealer(cfg, table, nil, nil)
		if err != nil {
			t.Fatalf("NewAnnealer: %v", err)
		}
		solution, stats, err := a.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return solution, stats
	}

	first, firstStats := run()
	second, secondStats := run()

	if !reflect.DeepEqual(first.Selected, second.Selected) {
		t.Fatalf("selections diverged: %v vs %v", first.Selected, second.Selected)
	}
	if first.Cost != second.Cost {
		t.Fatalf("costs diverged: %v vs %v", first.Cost, second.Cost)
	}
	if firstStats != secondStats {
		t.Fatalf("stats diverged: %+v vs %+v", firstStats, secondStats)
	}
}

func TestProposeNeighborRespectsPoolBounds(t *testing.T) {
	table := staggeredTable(t, 10, 20)
	cfg := smallRunConfig() // bounds [5, 8]
	a, err := NewAnnealer(cfg, table, nil, nil)
	if err != nil {
		t.Fatalf("NewAnnealer: %v", err)
	}
	rng := rand.New(rand.NewSource(7))

	atMin := []int{0, 1, 2, 3, 4}
	for i := 0; i < 200; i++ {
		neighbor, move, ok := a.proposeNeighbor(atMin, rng)
		if !ok {
			t.Fatal("no eligible move at lower bound")
		}
		if move == MoveRemove {
			t.Fatal("remove proposed at minimum pool size")
		}
		if len(neighbor) < cfg.MinPool {
			t.Fatalf("neighbor size %d below MinPool", len(neighbor))
		}
	}

	atMax := []int{0, 1, 2, 3, 4, 5, 6, 7}
	for i := 0; i < 200; i++ {
		neighbor, move, ok := a.proposeNeighbor(atMax, rng)
		if !ok {
			t.Fatal("no eligible move at upper bound")
		}
		if move == MoveAdd {
			t.Fatal("add proposed at maximum pool size")
		}
		if len(neighbor) > cfg.MaxPool {
			t.Fatalf("neighbor size %d above MaxPool", len(neighbor))
		}
	}
}

func TestProposeNeighborKeepsSubsetsValid(t *testing.T) {
	table := staggeredTable(t, 10, 20)
	a, err := NewAnnealer(smallRunConfig(), table, nil, nil)
	if err != nil {
		t.Fatalf("NewAnnealer: %v", err)
	}
	rng := rand.New(rand.NewSource(99))

	current := []int{1, 3, 5, 7, 9}
	for i := 0; i < 500; i++ {
		neighbor, _, ok := a.proposeNeighbor(current, rng)
		if !ok {
			t.Fatal("no eligible move")
		}
		for j := 1; j < len(neighbor); j++ {
			if neighbor[j] <= neighbor[j-1] {
				t.Fatalf("neighbor not strictly sorted: %v", neighbor)
			}
		}
		for _, idx := range neighbor {
			if idx < 0 || idx >= table.Len() {
				t.Fatalf("neighbor index %d out of table", idx)
			}
		}
		current = neighbor
	}
}

func TestNewAnnealerRejectsDegenerateCooling(t *testing.T) {
	table := staggeredTable(t, 10, 20)
	cfg := smallRunConfig()
	cfg.Annealing.CoolingRate = 1.0
	if _, err := NewAnnealer(cfg, table, nil, nil); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}

	cfg.Annealing.CoolingRate = 0
	if _, err := NewAnnealer(cfg, table, nil, nil); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestRunReturnsBestEvenWhenInfeasible(t *testing.T) {
	// Nine visible at most at any step; demanding nine everywhere cannot be
	// met by these staggered windows.
	table := staggeredTable(t, 10, 20)
	cfg := smallRunConfig()
	cfg.MinVisible = 9
	cfg.MaxVisible = 10
	cfg.MinPool = 5
	cfg.MaxPool = 10
	cfg.TargetPoolSize = 0

	a, err := NewAnnealer(cfg, table, nil, nil)
	if err != nil {
		t.Fatalf("NewAnnealer: %v", err)
	}
	solution, _, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if solution.Feasible() {
		t.Fatal("impossible requirement reported feasible")
	}
	if solution.ConstraintsSatisfied[model.ConstraintVisibilityCompliance] {
		t.Fatal("visibility compliance flagged satisfied")
	}
	if len(solution.Selected) == 0 {
		t.Fatal("best solution discarded instead of returned")
	}
}

func TestRunObservesCancellation(t *testing.T) {
	table := staggeredTable(t, 10, 20)
	a, err := NewAnnealer(smallRunConfig(), table, nil, nil)
	if err != nil {
		t.Fatalf("NewAnnealer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	solution, stats, err := a.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Iterations != 0 {
		t.Fatalf("iterations after pre-cancelled context = %d, want 0", stats.Iterations)
	}
	if len(solution.Selected) == 0 {
		t.Fatal("seed solution not finalized after cancellation")
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	table := staggeredTable(t, 10, 20)
	rec := &fakeRecorder{}
	a, err := NewAnnealer(smallRunConfig(), table, nil, rec)
	if err != nil {
		t.Fatalf("NewAnnealer: %v", err)
	}
	solution, stats, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.moves != stats.Iterations {
		t.Fatalf("recorded moves %d != iterations %d", rec.moves, stats.Iterations)
	}
	if rec.accepted != stats.AcceptedMoves {
		t.Fatalf("recorded accepted %d != stats %d", rec.accepted, stats.AcceptedMoves)
	}
	if rec.poolSize != len(solution.Selected) {
		t.Fatalf("recorded pool size %d != %d", rec.poolSize, len(solution.Selected))
	}
}

func TestPlateauStopsEarly(t *testing.T) {
	table := staggeredTable(t, 10, 20)
	cfg := smallRunConfig()
	cfg.Annealing.MaxIterations = 100000
	cfg.Annealing.MinTemperature = 1e-9
	cfg.Annealing.CoolingRate = 0.9999
	cfg.Annealing.PlateauTolerance = 50

	a, err := NewAnnealer(cfg, table, nil, nil)
	if err != nil {
		t.Fatalf("NewAnnealer: %v", err)
	}
	_, stats, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Iterations >= cfg.Annealing.MaxIterations {
		t.Fatalf("plateau stop never fired; ran %d iterations", stats.Iterations)
	}
}

func TestConcurrentRunsMatchSequentialRuns(t *testing.T) {
	configs := []model.RunConfig{smallRunConfig(), smallRunConfig()}
	configs[1].Seed = 777

	sequential := make([]model.PoolSolution, len(configs))
	for i, cfg := range configs {
		a, err := NewAnnealer(cfg, staggeredTable(t, 10, 20), nil, nil)
		if err != nil {
			t.Fatalf("NewAnnealer: %v", err)
		}
		sequential[i], _, err = a.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	concurrent := make([]model.PoolSolution, len(configs))
	var wg sync.WaitGroup
	for i, cfg := range configs {
		table := staggeredTable(t, 10, 20)
		a, err := NewAnnealer(cfg, table, nil, nil)
		if err != nil {
			t.Fatalf("NewAnnealer: %v", err)
		}
		wg.Add(1)
		go func(i int, a *Annealer) {
			defer wg.Done()
			concurrent[i], _, _ = a.Run(context.Background())
		}(i, a)
	}
	wg.Wait()

	for i := range configs {
		if !reflect.DeepEqual(sequential[i].Selected, concurrent[i].Selected) {
			t.Fatalf("run %d diverged under concurrency: %v vs %v",
				i, sequential[i].Selected, concurrent[i].Selected)
		}
		if sequential[i].Cost != concurrent[i].Cost {
			t.Fatalf("run %d cost diverged: %v vs %v", i, sequential[i].Cost, concurrent[i].Cost)
		}
	}
}
