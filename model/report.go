package model

import "time"

// Gap is a contiguous run of failing timesteps in a coverage timeline. The
// index range is inclusive and Duration is measured on the validation grid.
type Gap struct {
	StartIndex int
	EndIndex   int
	Duration   time.Duration
}

// CoverageStats summarizes the per-timestep visible-count distribution.
type CoverageStats struct {
	Min    int
	Max    int
	Mean   float64
	StdDev float64
}

// ConstellationCoverage is the validation outcome for a single constellation.
type ConstellationCoverage struct {
	Constellation Constellation
	VisibleCounts []int
	CoverageRatio float64
	Stats         CoverageStats

	// Gaps lists every contiguous failing interval; NonCompliantGaps counts
	// the ones whose duration exceeds the configured allowance.
	Gaps             []Gap
	NonCompliantGaps int

	Passed bool
}

// CoverageReport is the terminal, immutable output of the validation engine.
type CoverageReport struct {
	PerConstellation []ConstellationCoverage

	// CombinedRatio is the fraction of timesteps at which every
	// constellation satisfied its requirement simultaneously.
	CombinedRatio float64

	Passed bool
}

// Coverage returns the per-constellation result for the given tag, or nil.
func (r *CoverageReport) Coverage(c Constellation) *ConstellationCoverage {
	for i := range r.PerConstellation {
		if r.PerConstellation[i].Constellation == c {
			return &r.PerConstellation[i]
		}
	}
	return nil
}
