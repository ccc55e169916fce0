package core

import "sync"

// Evaluator counts visible satellites per timestep for arbitrary candidate
// subsets. It is a pure function of its read-only inputs: identical calls
// return identical arrays, which the optimizer relies on across many
// thousands of invocations. No orbital mechanics are recomputed here.
type Evaluator struct {
	Table           *CandidateTable
	MinElevationDeg float64

	// Workers > 1 splits the per-timestep counting across goroutines. Each
	// timestep is independent of all others, so the only synchronization is
	// the final join; the output is identical to the sequential result.
	Workers int
}

// Evaluate returns the visible-satellite count at every grid point for the
// subset given as table indices.
func (e *Evaluator) Evaluate(subset []int) []int {
	counts := make([]int, e.Table.Grid.Count)
	if len(subset) == 0 {
		return counts
	}

	if e.Workers > 1 {
		e.evaluateParallel(subset, counts)
		return counts
	}
	e.evaluateRange(subset, counts, 0, len(counts))
	return counts
}

func (e *Evaluator) evaluateRange(subset []int, counts []int, lo, hi int) {
	for t := lo; t < hi; t++ {
		n := 0
		for _, idx := range subset {
			if e.Table.At(idx).VisibleAt(t, e.MinElevationDeg) {
				n++
			}
		}
		counts[t] = n
	}
}

func (e *Evaluator) evaluateParallel(subset []int, counts []int) {
	workers := e.Workers
	if workers > len(counts) {
		workers = len(counts)
	}
	chunk := (len(counts) + workers - 1) / workers

	var wg sync.WaitGroup
	for lo := 0; lo < len(counts); lo += chunk {
		hi := lo + chunk
		if hi > len(counts) {
			hi = len(counts)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			e.evaluateRange(subset, counts, lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
