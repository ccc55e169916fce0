package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PoolCollector bundles Prometheus metrics for the selection engine. It
// implements the core package's recorder interfaces so the annealer and the
// validator can drive metric values directly.
type PoolCollector struct {
	gatherer prometheus.Gatherer

	Moves        *prometheus.CounterVec
	RunDurations *prometheus.HistogramVec

	BestCost       *prometheus.GaugeVec
	PoolSize       *prometheus.GaugeVec
	CoverageRatios *prometheus.GaugeVec
}

// NewPoolCollector registers engine metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewPoolCollector(reg prometheus.Registerer) (*PoolCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	moves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "satpool_optimizer_moves_total",
		Help: "Total structural moves proposed by the optimizer, labeled by constellation, move type, and acceptance.",
	}, []string{"constellation", "move", "accepted"})
	moves, err := registerCounterVec(reg, moves, "satpool_optimizer_moves_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "satpool_run_duration_seconds",
		Help:    "Wall-clock duration of one optimization run.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"constellation"})
	durations, err = registerHistogramVec(reg, durations, "satpool_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	bestCost, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "satpool_best_cost",
		Help: "Best solution cost tracked by the optimizer.",
	}, []string{"constellation"}), "satpool_best_cost")
	if err != nil {
		return nil, err
	}
	poolSize, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "satpool_pool_size",
		Help: "Size of the selected satellite pool.",
	}, []string{"constellation"}), "satpool_pool_size")
	if err != nil {
		return nil, err
	}
	ratios, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "satpool_coverage_ratio",
		Help: "Coverage ratio reported by the validation engine.",
	}, []string{"constellation"}), "satpool_coverage_ratio")
	if err != nil {
		return nil, err
	}

	return &PoolCollector{
		gatherer:       gatherer,
		Moves:          moves,
		RunDurations:   durations,
		BestCost:       bestCost,
		PoolSize:       poolSize,
		CoverageRatios: ratios,
	}, nil
}

// ObserveMove records one proposed move. Satisfies core.RunMetricsRecorder.
func (c *PoolCollector) ObserveMove(constellation, move string, accepted bool) {
	if c == nil || c.Moves == nil {
		return
	}
	label := "false"
	if accepted {
		label = "true"
	}
	c.Moves.WithLabelValues(constellation, move, label).Inc()
}

// SetBestCost records the optimizer's best cost so far.
func (c *PoolCollector) SetBestCost(constellation string, cost float64) {
	if c == nil || c.BestCost == nil {
		return
	}
	c.BestCost.WithLabelValues(constellation).Set(cost)
}

// SetPoolSize records the final pool size of a run.
func (c *PoolCollector) SetPoolSize(constellation string, size int) {
	if c == nil || c.PoolSize == nil {
		return
	}
	c.PoolSize.WithLabelValues(constellation).Set(float64(size))
}

// SetCoverageRatio records a validation outcome. Satisfies
// core.CoverageMetricsRecorder.
func (c *PoolCollector) SetCoverageRatio(constellation string, ratio float64) {
	if c == nil || c.CoverageRatios == nil {
		return
	}
	c.CoverageRatios.WithLabelValues(constellation).Set(ratio)
}

// ObserveRunDuration records the wall-clock duration of one run in seconds.
func (c *PoolCollector) ObserveRunDuration(constellation string, seconds float64) {
	if c == nil || c.RunDurations == nil {
		return
	}
	c.RunDurations.WithLabelValues(constellation).Observe(seconds)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PoolCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
