package core

import (
	"testing"
	"time"

	"github.com/signalsfoundry/satpool/model"
	"github.com/signalsfoundry/satpool/timegrid"
)

func testGrid(t *testing.T, count int) timegrid.Grid {
	t.Helper()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	grid, err := timegrid.New(start, 30*time.Second, count)
	if err != nil {
		t.Fatalf("timegrid.New: %v", err)
	}
	return grid
}

// windowCandidate builds a candidate visible at 45 degrees inside [from, to]
// (inclusive grid indices) and below the horizon elsewhere.
func windowCandidate(id string, tag model.Constellation, gridLen, from, to int, orbit model.OrbitalElements) *model.Candidate {
	samples := make([]model.GeometrySample, gridLen)
	for i := range samples {
		visible := i >= from && i <= to
		elevation := -10.0
		if visible {
			elevation = 45.0
		}
		samples[i] = model.GeometrySample{
			TimeOffsetS:  float64(i) * 30,
			ElevationDeg: elevation,
			RangeKm:      800,
			Visible:      visible,
		}
	}
	return &model.Candidate{
		ID:            id,
		Constellation: tag,
		Orbit:         orbit,
		Signal:        model.SignalEstimate{RSRPDBm: -90},
		Samples:       samples,
	}
}

func newTestTable(grid timegrid.Grid, cands []*model.Candidate) *CandidateTable {
	table := &CandidateTable{
		Constellation: model.ConstellationStarlink,
		Grid:          grid,
		index:         make(map[string]int),
	}
	for _, c := range cands {
		table.index[c.ID] = len(table.candidates)
		table.candidates = append(table.candidates, c)
	}
	return table
}

// staggeredTable builds n candidates whose visibility windows are offset
// against each other so subset choice changes the count profile.
func staggeredTable(t *testing.T, n, gridLen int) *CandidateTable {
	t.Helper()
	grid := testGrid(t, gridLen)
	cands := make([]*model.Candidate, 0, n)
	for i := 0; i < n; i++ {
		from := i
		to := from + gridLen/2
		if to >= gridLen {
			to = gridLen - 1
		}
		orbit := model.OrbitalElements{
			InclinationDeg: 53 + float64(i%3),
			RAANDeg:        float64(i*37) - 10,
			AltitudeKm:     550,
		}
		cands = append(cands, windowCandidate(
			candidateID(i), model.ConstellationStarlink, gridLen, from, to, orbit))
	}
	return newTestTable(grid, cands)
}

func candidateID(i int) string {
	return "SAT-" + string(rune('A'+i%26)) + string(rune('0'+i/26))
}

// smallRunConfig is sized for the compact synthetic tables in these tests.
func smallRunConfig() model.RunConfig {
	return model.RunConfig{
		Constellation:           model.ConstellationStarlink,
		ReferenceLatDeg:         24.944,
		ReferenceLonDeg:         121.371,
		MinElevationDeg:         5,
		MinVisible:              3,
		MaxVisible:              6,
		MinPool:                 5,
		MaxPool:                 8,
		TargetPoolSize:          6,
		Annealing:               model.AnnealingParams{InitialTemperature: 100, CoolingRate: 0.97, MinTemperature: 0.5, MaxIterations: 300},
		Weights:                 model.DefaultWeights(),
		Seed:                    42,
		MinVisibilityCompliance: 0.90,
		MinTemporalDistribution: 0.70,
		MinSignalQuality:        0.80,
	}
}
