package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/satpool/model"
)

// CostFunction folds coverage, pool shape, and quality objectives into one
// scalar. Hard terms carry weights large enough to dominate the search until
// violations are gone; soft terms then rank among feasible pools. The
// two-phase behaviour falls out of the weight asymmetry alone, with no
// explicit phase switch.
type CostFunction struct {
	Cfg  model.RunConfig
	Eval *Evaluator
}

// Cost evaluates the subset given as table indices.
func (f *CostFunction) Cost(subset []int) float64 {
	counts := f.Eval.Evaluate(subset)
	return f.CostWithCounts(subset, counts)
}

// CostWithCounts is Cost for callers that already hold the visible-count
// series of the subset.
func (f *CostFunction) CostWithCounts(subset []int, counts []int) float64 {
	w := f.Cfg.Weights
	total := w.VisibilityViolation * f.visibilityViolation(counts)
	total += w.PoolSizeViolation * f.poolSizeViolation(len(subset))
	total += w.TemporalClustering * f.temporalClustering(subset)
	total += w.SignalQuality * f.signalPenalty(subset)
	total += w.OrbitalDiversity * f.orbitalPenalty(subset)
	return total
}

// Scores derives the solution quality figures for a finalized subset.
func (f *CostFunction) Scores(subset []int, counts []int) model.Scores {
	compliant := 0
	for _, n := range counts {
		if n >= f.Cfg.MinVisible && n <= f.Cfg.MaxVisible {
			compliant++
		}
	}
	compliance := 0.0
	if len(counts) > 0 {
		compliance = float64(compliant) / float64(len(counts))
	}

	return model.Scores{
		VisibilityCompliance: compliance,
		TemporalDistribution: clamp01(1 - f.temporalClustering(subset)),
		SignalQuality:        clamp01(1 - f.signalPenalty(subset)),
	}
}

// visibilityViolation sums the per-timestep shortfall below MinVisible and
// excess above MaxVisible, normalized by grid length. Increasing any single
// timestep's shortfall can only increase the result.
func (f *CostFunction) visibilityViolation(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	violation := 0.0
	for _, n := range counts {
		switch {
		case n < f.Cfg.MinVisible:
			violation += float64(f.Cfg.MinVisible - n)
		case n > f.Cfg.MaxVisible:
			violation += float64(n - f.Cfg.MaxVisible)
		}
	}
	return violation / float64(len(counts))
}

// poolSizeViolation measures how far the subset size falls outside the
// configured pool bounds. Structural moves never leave the bounds, so this
// term only bites on degenerate seeds or configs, but it keeps the cost
// surface honest.
func (f *CostFunction) poolSizeViolation(size int) float64 {
	var outside int
	switch {
	case size < f.Cfg.MinPool:
		outside = f.Cfg.MinPool - size
	case size > f.Cfg.MaxPool:
		outside = size - f.Cfg.MaxPool
	default:
		return 0
	}
	ref := f.Cfg.TargetPoolSize
	if ref == 0 {
		ref = f.Cfg.MaxPool
	}
	return float64(outside) / float64(ref)
}

// temporalClustering penalizes visibility-window entry times that bunch
// together, which would make satellites appear and disappear in waves. Entry
// times closer than a grid-derived separation each contribute a scaled
// penalty; the sum is normalized by the number of entries.
func (f *CostFunction) temporalClustering(subset []int) float64 {
	entries := f.entryTimes(subset)
	if len(entries) < 2 {
		return 0
	}
	sort.Ints(entries)

	minSep := f.Eval.Table.Grid.Count / 12
	if minSep < 1 {
		minSep = 1
	}

	penalty := 0.0
	for i := 1; i < len(entries); i++ {
		gap := entries[i] - entries[i-1]
		if gap < minSep {
			penalty += float64(minSep-gap) / float64(minSep)
		}
	}
	return penalty / float64(len(entries))
}

// entryTimes returns the first visible grid index of each selected candidate.
// Candidates that never become visible contribute no entry.
func (f *CostFunction) entryTimes(subset []int) []int {
	entries := make([]int, 0, len(subset))
	for _, idx := range subset {
		cand := f.Eval.Table.At(idx)
		for t := 0; t < f.Eval.Table.Grid.Count; t++ {
			if cand.VisibleAt(t, f.Cfg.MinElevationDeg) {
				entries = append(entries, t)
				break
			}
		}
	}
	return entries
}

// signalPenalty maps the mean estimated RSRP of the subset onto [0, 1],
// 0 at -80 dBm or better, 1 at -120 dBm or worse.
func (f *CostFunction) signalPenalty(subset []int) float64 {
	if len(subset) == 0 {
		return 1
	}
	sum := 0.0
	for _, idx := range subset {
		sum += rsrpPenalty(f.Eval.Table.At(idx).Signal.RSRPDBm)
	}
	return sum / float64(len(subset))
}

func rsrpPenalty(rsrpDBm float64) float64 {
	const good, bad = -80.0, -120.0
	if rsrpDBm >= good {
		return 0
	}
	if rsrpDBm <= bad {
		return 1
	}
	return (good - rsrpDBm) / (good - bad)
}

// orbitalPenalty rewards spread across distinct orbital planes: inclination
// variance plus uniformity of RAAN across twelve 30-degree bins.
func (f *CostFunction) orbitalPenalty(subset []int) float64 {
	if len(subset) < 2 {
		return 1
	}

	incs := make([]float64, 0, len(subset))
	bins := make([]int, 12)
	for _, idx := range subset {
		orbit := f.Eval.Table.At(idx).Orbit
		incs = append(incs, orbit.InclinationDeg)
		raan := math.Mod(orbit.RAANDeg, 360)
		if raan < 0 {
			raan += 360
		}
		bins[int(raan/30)%12]++
	}

	incDiversity := math.Min(1, variance(incs)/100)

	expected := float64(len(subset)) / 12
	binVar := 0.0
	for _, n := range bins {
		d := float64(n) - expected
		binVar += d * d
	}
	binVar /= 12 * expected
	raanUniformity := 1 - math.Min(1, binVar/2)

	diversity := 0.5*incDiversity + 0.5*raanUniformity
	return clamp01(1 - diversity)
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
