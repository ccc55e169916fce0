package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/satpool/internal/logging"
	"github.com/signalsfoundry/satpool/model"
)

// ValidationConfig governs the acceptance thresholds of the validation pass.
type ValidationConfig struct {
	// ComplianceThreshold is the minimum per-constellation coverage ratio.
	ComplianceThreshold float64
	// MaxAllowedGap is the longest tolerated contiguous failing interval.
	MaxAllowedGap time.Duration
}

// DefaultValidationConfig returns the standard acceptance thresholds.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		ComplianceThreshold: 0.95,
		MaxAllowedGap:       2 * time.Minute,
	}
}

// CoverageMetricsRecorder receives validation outcomes; the observability
// collector implements it.
type CoverageMetricsRecorder interface {
	SetCoverageRatio(constellation string, ratio float64)
}

// Validator is the authoritative acceptance test for a finalized pool. It
// re-evaluates coverage on its own evaluator over a fixed-resolution grid
// and shares no mutable state with the optimizer that produced the pool.
type Validator struct {
	Cfg     ValidationConfig
	Log     logging.Logger
	Metrics CoverageMetricsRecorder
}

// NewValidator fills defaults for zero-valued thresholds.
func NewValidator(cfg ValidationConfig, log logging.Logger, metrics CoverageMetricsRecorder) *Validator {
	if cfg.ComplianceThreshold == 0 {
		cfg.ComplianceThreshold = DefaultValidationConfig().ComplianceThreshold
	}
	if cfg.MaxAllowedGap == 0 {
		cfg.MaxAllowedGap = DefaultValidationConfig().MaxAllowedGap
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Validator{Cfg: cfg, Log: log, Metrics: metrics}
}

// ValidateConstellation re-samples the selected pool over the table's grid
// and quantifies compliance. A timestep passes when at least MinVisible
// candidates clear MinElevationDeg; contiguous failing timesteps are grouped
// into gaps with durations measured on the grid.
func (v *Validator) ValidateConstellation(ctx context.Context, table *CandidateTable, selected []string, run model.RunConfig) (model.ConstellationCoverage, error) {
	tracer := otel.Tracer("github.com/signalsfoundry/satpool/core")
	ctx, span := tracer.Start(ctx, "validator.constellation")
	defer span.End()
	span.SetAttributes(attribute.String("constellation", string(run.Constellation)))

	subset := make([]int, 0, len(selected))
	for _, id := range selected {
		idx := table.IndexOf(id)
		if idx < 0 {
			return model.ConstellationCoverage{}, fmt.Errorf("selected candidate %q not in table", id)
		}
		subset = append(subset, idx)
	}

	// A fresh evaluator: the validation pass never reuses optimizer state.
	eval := &Evaluator{Table: table, MinElevationDeg: run.MinElevationDeg}
	counts := eval.Evaluate(subset)

	passed := 0
	for _, n := range counts {
		if n >= run.MinVisible {
			passed++
		}
	}
	ratio := float64(passed) / float64(len(counts))

	gaps := detectGaps(counts, run.MinVisible, table.Grid.Step)
	nonCompliant := 0
	for _, g := range gaps {
		if g.Duration > v.Cfg.MaxAllowedGap {
			nonCompliant++
		}
	}

	coverage := model.ConstellationCoverage{
		Constellation:    run.Constellation,
		VisibleCounts:    counts,
		CoverageRatio:    ratio,
		Stats:            coverageStats(counts),
		Gaps:             gaps,
		NonCompliantGaps: nonCompliant,
		Passed:           ratio >= v.Cfg.ComplianceThreshold && nonCompliant == 0,
	}

	if v.Metrics != nil {
		v.Metrics.SetCoverageRatio(string(run.Constellation), ratio)
	}
	v.Log.Info(ctx, "constellation validated",
		logging.String("constellation", string(run.Constellation)),
		logging.Float64("coverage_ratio", ratio),
		logging.Int("gaps", len(gaps)),
		logging.Int("non_compliant_gaps", nonCompliant),
		logging.Any("passed", coverage.Passed),
	)
	return coverage, nil
}

// Report merges per-constellation results into the final verdict. The
// combined ratio counts timesteps at which every constellation passed
// simultaneously; grids of different length are compared over their common
// prefix.
func (v *Validator) Report(ctx context.Context, perConstellation []model.ConstellationCoverage, minVisible map[model.Constellation]int) model.CoverageReport {
	report := model.CoverageReport{PerConstellation: perConstellation}
	if len(perConstellation) == 0 {
		return report
	}

	common := perConstellation[0].VisibleCounts
	for _, c := range perConstellation[1:] {
		if len(c.VisibleCounts) < len(common) {
			common = c.VisibleCounts
		}
	}

	combined := 0
	for t := 0; t < len(common); t++ {
		all := true
		for _, c := range perConstellation {
			if c.VisibleCounts[t] < minVisible[c.Constellation] {
				all = false
				break
			}
		}
		if all {
			combined++
		}
	}
	if len(common) > 0 {
		report.CombinedRatio = float64(combined) / float64(len(common))
	}

	report.Passed = true
	for _, c := range perConstellation {
		if !c.Passed {
			report.Passed = false
			break
		}
	}

	v.Log.Info(ctx, "coverage report assembled",
		logging.Int("constellations", len(perConstellation)),
		logging.Float64("combined_ratio", report.CombinedRatio),
		logging.Any("passed", report.Passed),
	)
	return report
}

// detectGaps groups contiguous failing timesteps into intervals. The index
// range is inclusive and the duration covers every failing sample.
func detectGaps(counts []int, minVisible int, step time.Duration) []model.Gap {
	var gaps []model.Gap
	start := -1
	for t, n := range counts {
		if n < minVisible {
			if start < 0 {
				start = t
			}
			continue
		}
		if start >= 0 {
			gaps = append(gaps, newGap(start, t-1, step))
			start = -1
		}
	}
	if start >= 0 {
		gaps = append(gaps, newGap(start, len(counts)-1, step))
	}
	return gaps
}

func newGap(start, end int, step time.Duration) model.Gap {
	return model.Gap{
		StartIndex: start,
		EndIndex:   end,
		Duration:   time.Duration(end-start+1) * step,
	}
}

func coverageStats(counts []int) model.CoverageStats {
	if len(counts) == 0 {
		return model.CoverageStats{}
	}
	stats := model.CoverageStats{Min: counts[0], Max: counts[0]}
	sum := 0
	for _, n := range counts {
		if n < stats.Min {
			stats.Min = n
		}
		if n > stats.Max {
			stats.Max = n
		}
		sum += n
	}
	stats.Mean = float64(sum) / float64(len(counts))

	v := 0.0
	for _, n := range counts {
		d := float64(n) - stats.Mean
		v += d * d
	}
	stats.StdDev = math.Sqrt(v / float64(len(counts)))
	return stats
}
