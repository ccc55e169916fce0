package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/satpool/catalog"
	"github.com/signalsfoundry/satpool/core"
	"github.com/signalsfoundry/satpool/feeds"
	"github.com/signalsfoundry/satpool/internal/logging"
	"github.com/signalsfoundry/satpool/internal/observability"
	"github.com/signalsfoundry/satpool/model"
	"github.com/signalsfoundry/satpool/timegrid"
)

// constellationRun pairs one run configuration with its input catalog file
// and sampling window.
type constellationRun struct {
	cfg     model.RunConfig
	tlePath string
	period  time.Duration
}

// runOutcome is the JSON-exported result of one constellation run.
type runOutcome struct {
	Constellation string                      `json:"constellation"`
	Solution      model.PoolSolution          `json:"solution"`
	Stats         model.OptimizerStats        `json:"optimizer_stats"`
	Coverage      model.ConstellationCoverage `json:"coverage"`
	DurationS     float64                     `json:"duration_seconds"`
	Err           string                      `json:"error,omitempty"`
}

type plannerOutput struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Site        feeds.Site           `json:"site"`
	Runs        []runOutcome         `json:"runs"`
	Report      model.CoverageReport `json:"report"`
}

func main() {
	envFile := flag.String("env", "", "optional .env file with logging/tracing settings")
	starlinkTLE := flag.String("starlink-tle", "", "path to the Starlink TLE catalog")
	onewebTLE := flag.String("oneweb-tle", "", "path to the OneWeb TLE catalog")
	lat := flag.Float64("lat", 24.944, "reference site latitude (degrees)")
	lon := flag.Float64("lon", 121.371, "reference site longitude (degrees)")
	alt := flag.Float64("alt", 50, "reference site altitude (metres)")
	step := flag.Duration("step", 30*time.Second, "sampling step")
	seed := flag.Int64("seed", 42, "optimizer random seed")
	outPath := flag.String("out", "", "write the run results as JSON to this path")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	} else {
		_ = godotenv.Load()
	}

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewPoolCollector(nil)
	if err != nil {
		log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error(ctx, "metrics listener failed", logging.String("error", err.Error()))
			}
		}()
		log.Info(ctx, "serving metrics", logging.String("addr", *metricsAddr))
	}

	var runs []constellationRun
	if *starlinkTLE != "" {
		cfg := model.DefaultStarlinkConfig()
		cfg.ReferenceLatDeg = *lat
		cfg.ReferenceLonDeg = *lon
		cfg.Seed = *seed
		runs = append(runs, constellationRun{cfg: cfg, tlePath: *starlinkTLE, period: 96 * time.Minute})
	}
	if *onewebTLE != "" {
		cfg := model.DefaultOneWebConfig()
		cfg.ReferenceLatDeg = *lat
		cfg.ReferenceLonDeg = *lon
		cfg.Seed = *seed
		runs = append(runs, constellationRun{cfg: cfg, tlePath: *onewebTLE, period: 109 * time.Minute})
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no TLE catalogs given; pass -starlink-tle and/or -oneweb-tle")
		flag.Usage()
		os.Exit(2)
	}

	site := feeds.Site{LatDeg: *lat, LonDeg: *lon, AltM: *alt}
	start := time.Now().UTC().Truncate(time.Second)

	// Constellation runs are independent; execute them concurrently.
	outcomes := make([]runOutcome, len(runs))
	var wg sync.WaitGroup
	for i, run := range runs {
		wg.Add(1)
		go func(i int, run constellationRun) {
			defer wg.Done()
			outcomes[i] = executeRun(ctx, run, site, start, *step, log, collector)
		}(i, run)
	}
	wg.Wait()

	validator := core.NewValidator(core.DefaultValidationConfig(), log, collector)
	var perConstellation []model.ConstellationCoverage
	minVisible := map[model.Constellation]int{}
	for _, o := range outcomes {
		if o.Err != "" {
			continue
		}
		perConstellation = append(perConstellation, o.Coverage)
	}
	for _, run := range runs {
		minVisible[run.cfg.Constellation] = run.cfg.MinVisible
	}
	report := validator.Report(ctx, perConstellation, minVisible)

	printSummary(outcomes, report)

	if *outPath != "" {
		output := plannerOutput{
			GeneratedAt: time.Now().UTC(),
			Site:        site,
			Runs:        outcomes,
			Report:      report,
		}
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			log.Error(ctx, "encode results failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			log.Error(ctx, "write results failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "results written", logging.String("path", *outPath))
	}

	if !report.Passed {
		os.Exit(1)
	}
}

// executeRun performs the full pipeline for one constellation: load TLEs,
// propagate geometry, screen candidates, optimize, and validate.
func executeRun(
	ctx context.Context,
	run constellationRun,
	site feeds.Site,
	start time.Time,
	step time.Duration,
	log logging.Logger,
	collector *observability.PoolCollector,
) runOutcome {
	tag := string(run.cfg.Constellation)
	outcome := runOutcome{Constellation: tag}
	began := time.Now()
	defer func() {
		outcome.DurationS = time.Since(began).Seconds()
		collector.ObserveRunDuration(tag, outcome.DurationS)
	}()

	ctx, runLog := logging.WithRunLogger(ctx, log.With(logging.String("constellation", tag)))

	grid, err := timegrid.ForPeriod(start, run.period, step)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}

	store, err := loadCatalog(ctx, run, site, grid, runLog)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}

	builder, err := core.NewPoolBuilder(run.cfg, runLog)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}
	table, err := builder.Build(ctx, store, grid)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}

	annealer, err := core.NewAnnealer(run.cfg, table, runLog, collector)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}
	solution, stats, err := annealer.Run(ctx)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}
	outcome.Solution = solution
	outcome.Stats = stats

	validator := core.NewValidator(core.DefaultValidationConfig(), runLog, collector)
	coverage, err := validator.ValidateConstellation(ctx, table, solution.Selected, run.cfg)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}
	outcome.Coverage = coverage
	return outcome
}

func loadCatalog(
	ctx context.Context,
	run constellationRun,
	site feeds.Site,
	grid timegrid.Grid,
	log logging.Logger,
) (*catalog.Catalog, error) {
	tles, err := feeds.LoadTLEFile(run.tlePath)
	if err != nil {
		return nil, err
	}

	feed := feeds.NewFeed(site, run.cfg.MinElevationDeg)
	if _, err := feed.AddAll(tles); err != nil {
		return nil, err
	}
	meta := feed.MetadataAll(run.cfg.Constellation)

	ingestor, err := core.NewIngestor(grid, log)
	if err != nil {
		return nil, err
	}
	store, dropped, err := ingestor.Ingest(ctx, meta, feed)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "catalog loaded",
		logging.String("path", run.tlePath),
		logging.Int("candidates", store.Len()),
		logging.Int("dropped", dropped),
	)
	return store, nil
}

func printSummary(outcomes []runOutcome, report model.CoverageReport) {
	for _, o := range outcomes {
		if o.Err != "" {
			fmt.Printf("%-10s FAILED: %s\n", o.Constellation, o.Err)
			continue
		}
		fmt.Printf("%-10s pool=%d cost=%.2f coverage=%.3f gaps=%d feasible=%v\n",
			o.Constellation,
			len(o.Solution.Selected),
			o.Solution.Cost,
			o.Coverage.CoverageRatio,
			len(o.Coverage.Gaps),
			o.Solution.Feasible(),
		)
		for _, gap := range o.Coverage.Gaps {
			fmt.Printf("  gap steps %d-%d (%s)\n", gap.StartIndex, gap.EndIndex, gap.Duration)
		}
	}
	fmt.Printf("combined ratio=%.3f verdict=%v\n", report.CombinedRatio, report.Passed)
}
