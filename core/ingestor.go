package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/satpool/catalog"
	"github.com/signalsfoundry/satpool/internal/logging"
	"github.com/signalsfoundry/satpool/model"
	"github.com/signalsfoundry/satpool/timegrid"
)

// GeometryFeed supplies externally computed per-satellite geometry series.
// The engine never propagates orbits itself; a feed implementation (or test
// fixture) is the only source of geometry.
type GeometryFeed interface {
	// Series returns the geometry samples of one candidate over the grid.
	Series(ctx context.Context, id string, grid timegrid.Grid) ([]model.GeometrySample, error)
}

// Ingestor normalizes externally computed geometry onto one shared time grid
// per constellation and joins it with candidate metadata.
type Ingestor struct {
	Grid timegrid.Grid
	Log  logging.Logger
}

// NewIngestor constructs an ingestor over a validated grid.
func NewIngestor(grid timegrid.Grid, log logging.Logger) (*Ingestor, error) {
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("ingestor grid: %w", err)
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Ingestor{Grid: grid, Log: log}, nil
}

// Ingest joins metadata with geometry series and fills the catalog. A
// candidate whose series length does not match the grid is dropped and
// counted, never fatal; the rest of the batch proceeds. The returned count is
// the number of dropped candidates.
func (ing *Ingestor) Ingest(ctx context.Context, meta []model.CandidateMetadata, feed GeometryFeed) (*catalog.Catalog, int, error) {
	if feed == nil {
		return nil, 0, fmt.Errorf("nil geometry feed")
	}

	store := catalog.New()
	dropped := 0

	for _, m := range meta {
		if m.ID == "" {
			dropped++
			ing.Log.Warn(ctx, "dropping candidate with empty ID")
			continue
		}

		samples, err := feed.Series(ctx, m.ID, ing.Grid)
		if err != nil {
			dropped++
			ing.Log.Warn(ctx, "dropping candidate: geometry feed failed",
				logging.String("candidate", m.ID),
				logging.String("error", err.Error()),
			)
			continue
		}
		if len(samples) != ing.Grid.Count {
			dropped++
			ing.Log.Warn(ctx, "dropping candidate: sample count does not match grid",
				logging.String("candidate", m.ID),
				logging.Int("samples", len(samples)),
				logging.Int("grid", ing.Grid.Count),
			)
			continue
		}

		cand := &model.Candidate{
			ID:            m.ID,
			Constellation: m.Constellation,
			Orbit:         m.Orbit,
			Signal:        m.Signal,
			Samples:       samples,
		}
		if err := store.Add(cand); err != nil {
			dropped++
			ing.Log.Warn(ctx, "dropping candidate: store rejected it",
				logging.String("candidate", m.ID),
				logging.String("error", err.Error()),
			)
		}
	}

	ing.Log.Info(ctx, "ingestion complete",
		logging.Int("candidates", store.Len()),
		logging.Int("dropped", dropped),
	)
	return store, dropped, nil
}

// MapFeed adapts a prebuilt map of geometry series to the GeometryFeed
// interface. Useful for tests and for callers that already hold all series
// in memory.
type MapFeed map[string][]model.GeometrySample

// Series implements GeometryFeed.
func (m MapFeed) Series(_ context.Context, id string, _ timegrid.Grid) ([]model.GeometrySample, error) {
	samples, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("no geometry series for %q", id)
	}
	return samples, nil
}
