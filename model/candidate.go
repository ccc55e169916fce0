package model

import "fmt"

// Constellation identifies which constellation a candidate belongs to.
// The set is closed at construction time; unknown tags are rejected by
// ParseConstellation rather than discovered later at access time.
type Constellation string

const (
	ConstellationStarlink Constellation = "starlink"
	ConstellationOneWeb   Constellation = "oneweb"
	ConstellationKuiper   Constellation = "kuiper"
)

// ParseConstellation maps a raw tag onto a known Constellation.
func ParseConstellation(s string) (Constellation, error) {
	switch Constellation(s) {
	case ConstellationStarlink, ConstellationOneWeb, ConstellationKuiper:
		return Constellation(s), nil
	default:
		return "", fmt.Errorf("unknown constellation %q", s)
	}
}

// GeometrySample is one precomputed observation of a satellite from the
// reference site at a single point on the shared time grid.
type GeometrySample struct {
	TimeOffsetS  float64
	ElevationDeg float64
	AzimuthDeg   float64
	RangeKm      float64
	Visible      bool
}

// SignalEstimate carries the coarse precomputed link-quality figures for a
// candidate. These are estimates produced upstream, not live measurements.
type SignalEstimate struct {
	RSRPDBm float64
	RSRQDB  float64
	SINRDB  float64
}

// OrbitalElements describes the orbital plane of a candidate.
type OrbitalElements struct {
	InclinationDeg float64
	RAANDeg        float64
	MeanAnomalyDeg float64
	AltitudeKm     float64
}

// CandidateMetadata is the per-satellite record supplied by the external
// metadata feed, before it is joined with a geometry series.
type CandidateMetadata struct {
	ID            string
	Constellation Constellation
	Orbit         OrbitalElements
	Signal        SignalEstimate
}

// Candidate is a satellite eligible for pool selection. It is assembled once
// during ingestion and never mutated afterwards; the selection engine refers
// to candidates by stable table index, not by shared mutable handles.
type Candidate struct {
	ID            string
	Constellation Constellation
	Orbit         OrbitalElements
	Signal        SignalEstimate

	// Samples holds one geometry sample per time-grid point. Its length
	// always equals the grid length; candidates that do not satisfy this
	// are dropped during ingestion.
	Samples []GeometrySample
}

// VisibleAt reports whether the candidate clears the elevation threshold at
// sample index i.
func (c *Candidate) VisibleAt(i int, minElevationDeg float64) bool {
	if i < 0 || i >= len(c.Samples) {
		return false
	}
	s := c.Samples[i]
	return s.Visible && s.ElevationDeg >= minElevationDeg
}
