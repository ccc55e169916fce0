package core

import (
	"reflect"
	"testing"

	"github.com/signalsfoundry/satpool/model"
)

func TestEvaluateCountsVisibleCandidates(t *testing.T) {
	grid := testGrid(t, 6)
	orbit := model.OrbitalElements{InclinationDeg: 53, AltitudeKm: 550}
	table := newTestTable(grid, []*model.Candidate{
		windowCandidate("A", model.ConstellationStarlink, 6, 0, 2, orbit),
		windowCandidate("B", model.ConstellationStarlink, 6, 1, 4, orbit),
		windowCandidate("C", model.ConstellationStarlink, 6, 4, 5, orbit),
	})
	eval := &Evaluator{Table: table, MinElevationDeg: 5}

	got := eval.Evaluate([]int{0, 1, 2})
	want := []int{1, 2, 2, 1, 2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Evaluate = %v, want %v", got, want)
	}
}

func TestEvaluateEmptySubset(t *testing.T) {
	table := staggeredTable(t, 4, 8)
	eval := &Evaluator{Table: table, MinElevationDeg: 5}
	got := eval.Evaluate(nil)
	if len(got) != 8 {
		t.Fatalf("len = %d, want grid length 8", len(got))
	}
	for i, n := range got {
		if n != 0 {
			t.Fatalf("count[%d] = %d, want 0", i, n)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	table := staggeredTable(t, 10, 20)
	eval := &Evaluator{Table: table, MinElevationDeg: 5}
	subset := []int{0, 2, 4, 6, 8}

	first := eval.Evaluate(subset)
	for i := 0; i < 50; i++ {
		if got := eval.Evaluate(subset); !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d diverged: %v vs %v", i, got, first)
		}
	}
}

func TestEvaluateParallelMatchesSequential(t *testing.T) {
	table := staggeredTable(t, 12, 97)
	subset := []int{0, 1, 3, 5, 7, 9, 11}

	seq := (&Evaluator{Table: table, MinElevationDeg: 5}).Evaluate(subset)
	for _, workers := range []int{2, 4, 8, 200} {
		par := (&Evaluator{Table: table, MinElevationDeg: 5, Workers: workers}).Evaluate(subset)
		if !reflect.DeepEqual(par, seq) {
			t.Fatalf("workers=%d result diverged from sequential", workers)
		}
	}
}

func TestEvaluateRespectsElevationThreshold(t *testing.T) {
	grid := testGrid(t, 3)
	orbit := model.OrbitalElements{InclinationDeg: 53, AltitudeKm: 550}
	cand := windowCandidate("A", model.ConstellationStarlink, 3, 0, 2, orbit)
	table := newTestTable(grid, []*model.Candidate{cand})

	// Window elevation is 45 degrees; a 50 degree threshold excludes it.
	strict := &Evaluator{Table: table, MinElevationDeg: 50}
	for i, n := range strict.Evaluate([]int{0}) {
		if n != 0 {
			t.Fatalf("count[%d] = %d with 50 degree threshold, want 0", i, n)
		}
	}
}
