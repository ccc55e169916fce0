// Package timegrid provides the shared sampling grid all candidates of one
// constellation are normalized onto. A grid is strictly increasing and
// uniformly spaced; every engine component indexes geometry by grid position
// rather than by wall-clock time.
package timegrid

import (
	"fmt"
	"time"
)

// Grid is an ordered, uniformly spaced sequence of sample instants.
// It is a small value type and safe to copy.
type Grid struct {
	Start time.Time
	Step  time.Duration
	Count int
}

// New constructs a grid and validates its parameters.
func New(start time.Time, step time.Duration, count int) (Grid, error) {
	g := Grid{Start: start, Step: step, Count: count}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// ForPeriod builds a grid covering one orbital period at the given sampling
// interval. The final point lands on or just before the period boundary.
func ForPeriod(start time.Time, period, step time.Duration) (Grid, error) {
	if period <= 0 {
		return Grid{}, fmt.Errorf("orbital period %v must be positive", period)
	}
	if step <= 0 {
		return Grid{}, fmt.Errorf("step %v must be positive", step)
	}
	count := int(period/step) + 1
	return New(start, step, count)
}

// Validate checks the grid invariants.
func (g Grid) Validate() error {
	if g.Step <= 0 {
		return fmt.Errorf("grid step %v must be positive", g.Step)
	}
	if g.Count <= 0 {
		return fmt.Errorf("grid count %d must be positive", g.Count)
	}
	return nil
}

// At returns the instant of sample index i.
func (g Grid) At(i int) time.Time {
	return g.Start.Add(time.Duration(i) * g.Step)
}

// End returns the instant of the final sample.
func (g Grid) End() time.Time {
	return g.At(g.Count - 1)
}

// Span is the total time covered by the grid.
func (g Grid) Span() time.Duration {
	return time.Duration(g.Count-1) * g.Step
}

// Times materializes every sample instant.
func (g Grid) Times() []time.Time {
	out := make([]time.Time, g.Count)
	for i := range out {
		out[i] = g.At(i)
	}
	return out
}

// OffsetSeconds returns the offset of index i from the grid start, matching
// the time_offset_s field carried by geometry samples.
func (g Grid) OffsetSeconds(i int) float64 {
	return (time.Duration(i) * g.Step).Seconds()
}
