package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/satpool/catalog"
	"github.com/signalsfoundry/satpool/internal/logging"
	"github.com/signalsfoundry/satpool/model"
	"github.com/signalsfoundry/satpool/timegrid"
)

// ErrInsufficientCandidates means the screened pool for a constellation is
// smaller than the configured minimum pool size, so no feasible solution can
// exist and the run aborts before any iteration.
var ErrInsufficientCandidates = errors.New("insufficient candidates after screening")

// CandidateTable is the screened, read-only candidate set a run operates on.
// Candidates are referenced by stable integer index for the whole run; the
// table is never mutated after Build returns it.
type CandidateTable struct {
	Constellation model.Constellation
	Grid          timegrid.Grid

	candidates []*model.Candidate
	index      map[string]int
}

// Len returns the number of screened candidates.
func (t *CandidateTable) Len() int { return len(t.candidates) }

// At returns the candidate at table index i.
func (t *CandidateTable) At(i int) *model.Candidate { return t.candidates[i] }

// IndexOf returns the table index of a candidate ID, or -1.
func (t *CandidateTable) IndexOf(id string) int {
	if i, ok := t.index[id]; ok {
		return i
	}
	return -1
}

// IDs maps a set of table indices back to candidate IDs, in index order.
func (t *CandidateTable) IDs(indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		out = append(out, t.candidates[i].ID)
	}
	return out
}

// PoolBuilder screens the ingested catalog through the visibility prefilter
// and assembles the per-constellation candidate table.
type PoolBuilder struct {
	Cfg model.RunConfig
	Log logging.Logger
}

// NewPoolBuilder validates the configuration up front; a malformed config
// fails here, before any screening work happens.
func NewPoolBuilder(cfg model.RunConfig, log logging.Logger) (*PoolBuilder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Noop()
	}
	return &PoolBuilder{Cfg: cfg, Log: log}, nil
}

// Build screens the catalog and returns the run table. Candidates whose
// orbit can never reach the reference latitude are excluded silently; that
// is a normal outcome. The build fails only when fewer than MinPool
// candidates survive.
func (b *PoolBuilder) Build(ctx context.Context, store *catalog.Catalog, grid timegrid.Grid) (*CandidateTable, error) {
	if store == nil {
		return nil, fmt.Errorf("nil catalog")
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	snapshot := store.Snapshot(b.Cfg.Constellation)

	table := &CandidateTable{
		Constellation: b.Cfg.Constellation,
		Grid:          grid,
		index:         make(map[string]int),
	}
	screened := 0
	for _, cand := range snapshot {
		if !CanReachLatitude(cand.Orbit.InclinationDeg, cand.Orbit.AltitudeKm, b.Cfg.ReferenceLatDeg) {
			screened++
			continue
		}
		table.index[cand.ID] = len(table.candidates)
		table.candidates = append(table.candidates, cand)
	}

	b.Log.Info(ctx, "candidate pool built",
		logging.String("constellation", string(b.Cfg.Constellation)),
		logging.Int("candidates", table.Len()),
		logging.Int("screened_out", screened),
	)

	if table.Len() < b.Cfg.MinPool {
		return nil, fmt.Errorf("%w: %s has %d candidates, min pool is %d",
			ErrInsufficientCandidates, b.Cfg.Constellation, table.Len(), b.Cfg.MinPool)
	}
	return table, nil
}
