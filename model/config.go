package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks malformed or out-of-range run configuration. It is
// returned before any optimization iteration runs.
var ErrInvalidConfig = errors.New("invalid run configuration")

// Weights holds the named cost-term weights. Hard-constraint weights are
// large so violations dominate early search; soft-objective weights are small
// and only rank among otherwise-feasible solutions.
type Weights struct {
	VisibilityViolation float64
	PoolSizeViolation   float64
	TemporalClustering  float64
	SignalQuality       float64
	OrbitalDiversity    float64
}

// DefaultWeights returns the standard hard/soft weight split.
func DefaultWeights() Weights {
	return Weights{
		VisibilityViolation: 5000,
		PoolSizeViolation:   8000,
		TemporalClustering:  5000,
		SignalQuality:       100,
		OrbitalDiversity:    50,
	}
}

// AnnealingParams are the simulated-annealing hyperparameters.
type AnnealingParams struct {
	InitialTemperature float64
	CoolingRate        float64
	MinTemperature     float64
	MaxIterations      int

	// PlateauTolerance stops the search early after this many iterations
	// without a new best solution. Zero disables the plateau stop.
	PlateauTolerance int
}

// RunConfig is the immutable per-constellation configuration for one
// optimization run. It is constructed once from caller-supplied values and
// read-only thereafter; concurrent runs never share a RunConfig pointer that
// anything mutates.
type RunConfig struct {
	Constellation Constellation

	// Reference observation site. Only the latitude participates in the
	// visibility prefilter; the longitude is carried for feed adapters.
	ReferenceLatDeg float64
	ReferenceLonDeg float64

	MinElevationDeg float64
	MinVisible      int
	MaxVisible      int

	MinPool        int
	MaxPool        int
	TargetPoolSize int

	Annealing AnnealingParams
	Weights   Weights

	// Seed feeds the injected random generator. Identical seed and inputs
	// produce an identical best solution.
	Seed int64

	// Score floors used for the per-constraint satisfaction map reported
	// with the final solution.
	MinVisibilityCompliance float64
	MinTemporalDistribution float64
	MinSignalQuality        float64
}

// DefaultStarlinkConfig returns the Starlink run defaults: 96-minute orbital
// period, 5 degree threshold, 10-15 satellites visible at any time.
func DefaultStarlinkConfig() RunConfig {
	return RunConfig{
		Constellation:   ConstellationStarlink,
		MinElevationDeg: 5,
		MinVisible:      10,
		MaxVisible:      15,
		MinPool:         40,
		MaxPool:         60,
		TargetPoolSize:  50,
		Annealing: AnnealingParams{
			InitialTemperature: 1000,
			CoolingRate:        0.995,
			MinTemperature:     0.1,
			MaxIterations:      10000,
			PlateauTolerance:   0,
		},
		Weights:                 DefaultWeights(),
		MinVisibilityCompliance: 0.90,
		MinTemporalDistribution: 0.70,
		MinSignalQuality:        0.80,
	}
}

// DefaultOneWebConfig returns the OneWeb run defaults: 109-minute orbital
// period, 10 degree threshold, 3-6 satellites visible at any time.
func DefaultOneWebConfig() RunConfig {
	cfg := DefaultStarlinkConfig()
	cfg.Constellation = ConstellationOneWeb
	cfg.MinElevationDeg = 10
	cfg.MinVisible = 3
	cfg.MaxVisible = 6
	cfg.MinPool = 12
	cfg.MaxPool = 20
	cfg.TargetPoolSize = 16
	return cfg
}

// Validate checks the configuration before a run starts. Any failure wraps
// ErrInvalidConfig so callers can match the whole class.
func (c RunConfig) Validate() error {
	if c.Constellation == "" {
		return fmt.Errorf("%w: empty constellation", ErrInvalidConfig)
	}
	if c.ReferenceLatDeg < -90 || c.ReferenceLatDeg > 90 {
		return fmt.Errorf("%w: reference latitude %.4f out of [-90, 90]", ErrInvalidConfig, c.ReferenceLatDeg)
	}
	if c.MinElevationDeg < 0 || c.MinElevationDeg >= 90 {
		return fmt.Errorf("%w: min elevation %.2f out of [0, 90)", ErrInvalidConfig, c.MinElevationDeg)
	}
	if c.MinVisible < 0 || c.MaxVisible < c.MinVisible {
		return fmt.Errorf("%w: visible-count range [%d, %d]", ErrInvalidConfig, c.MinVisible, c.MaxVisible)
	}
	if c.MinPool <= 0 || c.MaxPool < c.MinPool {
		return fmt.Errorf("%w: pool bounds [%d, %d]", ErrInvalidConfig, c.MinPool, c.MaxPool)
	}
	if c.TargetPoolSize != 0 && (c.TargetPoolSize < c.MinPool || c.TargetPoolSize > c.MaxPool) {
		return fmt.Errorf("%w: target pool size %d outside [%d, %d]", ErrInvalidConfig, c.TargetPoolSize, c.MinPool, c.MaxPool)
	}
	if err := c.Annealing.validate(); err != nil {
		return err
	}
	if err := c.Weights.validate(); err != nil {
		return err
	}
	return nil
}

func (p AnnealingParams) validate() error {
	if p.InitialTemperature <= 0 {
		return fmt.Errorf("%w: initial temperature %.4f must be positive", ErrInvalidConfig, p.InitialTemperature)
	}
	if p.CoolingRate <= 0 || p.CoolingRate >= 1 {
		return fmt.Errorf("%w: cooling rate %.4f must be in (0, 1)", ErrInvalidConfig, p.CoolingRate)
	}
	if p.MinTemperature <= 0 || p.MinTemperature >= p.InitialTemperature {
		return fmt.Errorf("%w: min temperature %.4f must be in (0, initial)", ErrInvalidConfig, p.MinTemperature)
	}
	if p.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations %d must be positive", ErrInvalidConfig, p.MaxIterations)
	}
	if p.PlateauTolerance < 0 {
		return fmt.Errorf("%w: plateau tolerance %d must not be negative", ErrInvalidConfig, p.PlateauTolerance)
	}
	return nil
}

func (w Weights) validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"visibility_violation", w.VisibilityViolation},
		{"pool_size_violation", w.PoolSizeViolation},
		{"temporal_clustering", w.TemporalClustering},
		{"signal_quality", w.SignalQuality},
		{"orbital_diversity", w.OrbitalDiversity},
	} {
		if v.value < 0 {
			return fmt.Errorf("%w: weight %s must not be negative", ErrInvalidConfig, v.name)
		}
	}
	return nil
}
