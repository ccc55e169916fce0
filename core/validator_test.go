package core

import (
	"context"
	"testing"
	"time"

	"github.com/signalsfoundry/satpool/model"
)

func TestValidateConstellationFullCoverage(t *testing.T) {
	gridLen := 20
	grid := testGrid(t, gridLen)
	orbit := model.OrbitalElements{InclinationDeg: 53, AltitudeKm: 550}

	// One candidate covers the whole window; nine never rise.
	cands := []*model.Candidate{
		windowCandidate("ALWAYS", model.ConstellationStarlink, gridLen, 0, gridLen-1, orbit),
	}
	for i := 1; i < 10; i++ {
		cands = append(cands, windowCandidate(candidateID(i), model.ConstellationStarlink, gridLen, -1, -1, orbit))
	}
	table := newTestTable(grid, cands)

	cfg := smallRunConfig()
	cfg.MinVisible = 1
	cfg.MaxVisible = 10

	v := NewValidator(DefaultValidationConfig(), nil, nil)
	selected := make([]string, 0, len(cands))
	for _, c := range cands {
		selected = append(selected, c.ID)
	}
	coverage, err := v.ValidateConstellation(context.Background(), table, selected, cfg)
	if err != nil {
		t.Fatalf("ValidateConstellation: %v", err)
	}

	if coverage.CoverageRatio != 1.0 {
		t.Fatalf("coverage ratio = %v, want 1.0", coverage.CoverageRatio)
	}
	if len(coverage.Gaps) != 0 {
		t.Fatalf("gaps = %v, want none", coverage.Gaps)
	}
	if !coverage.Passed {
		t.Fatal("full coverage did not pass")
	}
	if coverage.Stats.Min != 1 || coverage.Stats.Max != 1 {
		t.Fatalf("stats = %+v, want min=max=1", coverage.Stats)
	}
}

func TestValidateConstellationFlagsLongGap(t *testing.T) {
	gridLen := 20
	grid := testGrid(t, gridLen) // 30s step
	orbit := model.OrbitalElements{InclinationDeg: 53, AltitudeKm: 550}

	// Visible except for a 7-step hole: 3m30s, beyond the 2 minute allowance.
	a := windowCandidate("A", model.ConstellationStarlink, gridLen, 0, 4, orbit)
	b := windowCandidate("B", model.ConstellationStarlink, gridLen, 12, 19, orbit)
	table := newTestTable(grid, []*model.Candidate{a, b})

	cfg := smallRunConfig()
	cfg.MinVisible = 1
	cfg.MaxVisible = 10

	v := NewValidator(DefaultValidationConfig(), nil, nil)
	coverage, err := v.ValidateConstellation(context.Background(), table, []string{"A", "B"}, cfg)
	if err != nil {
		t.Fatalf("ValidateConstellation: %v", err)
	}

	if len(coverage.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(coverage.Gaps))
	}
	gap := coverage.Gaps[0]
	if gap.StartIndex != 5 || gap.EndIndex != 11 {
		t.Fatalf("gap indices = [%d, %d], want [5, 11]", gap.StartIndex, gap.EndIndex)
	}
	if gap.Duration != 210*time.Second {
		t.Fatalf("gap duration = %v, want 3m30s", gap.Duration)
	}
	if coverage.NonCompliantGaps != 1 {
		t.Fatalf("non-compliant gaps = %d, want 1", coverage.NonCompliantGaps)
	}
	if coverage.Passed {
		t.Fatal("long gap must fail validation")
	}
}

func TestValidateConstellationToleratesShortGap(t *testing.T) {
	gridLen := 40
	grid := testGrid(t, gridLen)
	orbit := model.OrbitalElements{InclinationDeg: 53, AltitudeKm: 550}

	// A 1-step hole at index 20: 30 seconds, within the allowance, and the
	// ratio stays above the 95 percent threshold.
	a := windowCandidate("A", model.ConstellationStarlink, gridLen, 0, 19, orbit)
	b := windowCandidate("B", model.ConstellationStarlink, gridLen, 21, 39, orbit)
	table := newTestTable(grid, []*model.Candidate{a, b})

	cfg := smallRunConfig()
	cfg.MinVisible = 1
	cfg.MaxVisible = 10

	v := NewValidator(DefaultValidationConfig(), nil, nil)
	coverage, err := v.ValidateConstellation(context.Background(), table, []string{"A", "B"}, cfg)
	if err != nil {
		t.Fatalf("ValidateConstellation: %v", err)
	}

	if coverage.NonCompliantGaps != 0 {
		t.Fatalf("non-compliant gaps = %d, want 0", coverage.NonCompliantGaps)
	}
	if want := 39.0 / 40.0; coverage.CoverageRatio != want {
		t.Fatalf("coverage ratio = %v, want %v", coverage.CoverageRatio, want)
	}
	if !coverage.Passed {
		t.Fatal("short tolerated gap must still pass")
	}
}

func TestValidateConstellationUnknownCandidate(t *testing.T) {
	table := staggeredTable(t, 4, 10)
	v := NewValidator(DefaultValidationConfig(), nil, nil)
	cfg := smallRunConfig()
	if _, err := v.ValidateConstellation(context.Background(), table, []string{"NOPE"}, cfg); err == nil {
		t.Fatal("expected error for unknown candidate")
	}
}

func TestDetectGaps(t *testing.T) {
	step := 30 * time.Second
	tests := []struct {
		name       string
		counts     []int
		minVisible int
		want       []model.Gap
	}{
		{
			name:       "no gaps",
			counts:     []int{2, 2, 2},
			minVisible: 1,
			want:       nil,
		},
		{
			name:       "interior gap",
			counts:     []int{1, 0, 0, 1},
			minVisible: 1,
			want:       []model.Gap{{StartIndex: 1, EndIndex: 2, Duration: time.Minute}},
		},
		{
			name:       "gap reaching the end",
			counts:     []int{1, 1, 0, 0, 0},
			minVisible: 1,
			want:       []model.Gap{{StartIndex: 2, EndIndex: 4, Duration: 90 * time.Second}},
		},
		{
			name:       "multiple gaps",
			counts:     []int{0, 1, 0, 1, 0},
			minVisible: 1,
			want: []model.Gap{
				{StartIndex: 0, EndIndex: 0, Duration: step},
				{StartIndex: 2, EndIndex: 2, Duration: step},
				{StartIndex: 4, EndIndex: 4, Duration: step},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := detectGaps(tc.counts, tc.minVisible, step)
			if len(got) != len(tc.want) {
				t.Fatalf("gaps = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("gap %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestReportCombinesConstellations(t *testing.T) {
	v := NewValidator(DefaultValidationConfig(), nil, nil)

	per := []model.ConstellationCoverage{
		{
			Constellation: model.ConstellationStarlink,
			VisibleCounts: []int{1, 1, 0, 1},
			Passed:        true,
		},
		{
			Constellation: model.ConstellationOneWeb,
			VisibleCounts: []int{1, 0, 1, 1},
			Passed:        true,
		},
	}
	minVisible := map[model.Constellation]int{
		model.ConstellationStarlink: 1,
		model.ConstellationOneWeb:   1,
	}

	report := v.Report(context.Background(), per, minVisible)
	if report.CombinedRatio != 0.5 {
		t.Fatalf("combined ratio = %v, want 0.5", report.CombinedRatio)
	}
	if !report.Passed {
		t.Fatal("both constellations passed; report must pass")
	}

	per[1].Passed = false
	report = v.Report(context.Background(), per, minVisible)
	if report.Passed {
		t.Fatal("one failing constellation must fail the report")
	}

	if got := report.Coverage(model.ConstellationOneWeb); got == nil || got.Constellation != model.ConstellationOneWeb {
		t.Fatalf("Coverage lookup = %v", got)
	}
	if got := report.Coverage(model.ConstellationKuiper); got != nil {
		t.Fatalf("Coverage for absent constellation = %v, want nil", got)
	}
}

func TestReportEmptyInput(t *testing.T) {
	v := NewValidator(DefaultValidationConfig(), nil, nil)
	report := v.Report(context.Background(), nil, nil)
	if report.Passed {
		t.Fatal("empty report must not pass")
	}
	if report.CombinedRatio != 0 {
		t.Fatalf("combined ratio = %v, want 0", report.CombinedRatio)
	}
}

func TestCoverageStats(t *testing.T) {
	stats := coverageStats([]int{2, 4, 6, 4})
	if stats.Min != 2 || stats.Max != 6 {
		t.Fatalf("min/max = %d/%d, want 2/6", stats.Min, stats.Max)
	}
	if stats.Mean != 4 {
		t.Fatalf("mean = %v, want 4", stats.Mean)
	}
	if stats.StdDev <= 0 {
		t.Fatalf("stddev = %v, want positive", stats.StdDev)
	}
}
