// Package feeds produces candidate geometry series from orbital element sets.
// It propagates two-line element sets with SGP4 and projects each satellite
// into look angles from a fixed ground site, yielding the per-timestep samples
// the selection engine consumes.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/satpool/model"
	"github.com/signalsfoundry/satpool/timegrid"
)

// ErrUnknownSatellite is returned when a series is requested for an
// identifier that was never added to the feed.
var ErrUnknownSatellite = errors.New("unknown satellite")

// ErrBadTLE is returned when a two-line element set cannot be parsed.
var ErrBadTLE = errors.New("malformed TLE")

// WGS-84 ellipsoid, kilometre units to match SGP4 output.
const (
	wgs84AKm = 6378.137
	wgs84F   = 1.0 / 298.257223563
	wgs84E2  = wgs84F * (2 - wgs84F)
)

const earthMuKm3S2 = 398600.4418

// Ku-band downlink budget used for the signal estimate.
const (
	downlinkFrequencyGHz = 12.0
	txPowerDBm           = 43.0
	antennaGainDBi       = 35.0
	atmosphericLossDB    = 2.0
)

// TLE is a named two-line element set.
type TLE struct {
	Name  string
	Line1 string
	Line2 string
}

// Site is a ground observer location.
type Site struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

type siteGeometry struct {
	latRad, lonRad      float64
	ecefX, ecefY, ecefZ float64 // km
}

func newSiteGeometry(s Site) siteGeometry {
	lat := s.LatDeg * math.Pi / 180.0
	lon := s.LonDeg * math.Pi / 180.0
	altKm := s.AltM / 1000.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	n := wgs84AKm / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return siteGeometry{
		latRad: lat,
		lonRad: lon,
		ecefX:  (n + altKm) * cosLat * math.Cos(lon),
		ecefY:  (n + altKm) * cosLat * math.Sin(lon),
		ecefZ:  (n*(1-wgs84E2) + altKm) * sinLat,
	}
}

type satEntry struct {
	sat      satellite.Satellite
	elements model.OrbitalElements
}

// Feed propagates registered TLEs over a time grid and reports look angles
// from a single ground site. It satisfies the geometry feed contract of the
// ingestion layer. Safe for concurrent Series calls once loading is done.
type Feed struct {
	site            siteGeometry
	minElevationDeg float64

	mu   sync.RWMutex
	sats map[string]satEntry
}

// NewFeed creates a feed for the given ground site. Samples are marked
// visible when elevation meets minElevationDeg.
func NewFeed(site Site, minElevationDeg float64) *Feed {
	return &Feed{
		site:            newSiteGeometry(site),
		minElevationDeg: minElevationDeg,
		sats:            map[string]satEntry{},
	}
}

// Add registers a satellite under the given identifier.
func (f *Feed) Add(id string, tle TLE) error {
	if id == "" {
		return fmt.Errorf("%w: empty identifier", ErrBadTLE)
	}
	elements, err := parseLine2(tle.Line2)
	if err != nil {
		return fmt.Errorf("satellite %s: %w", id, err)
	}
	if len(tle.Line1) < 69 {
		return fmt.Errorf("satellite %s: %w: line 1 too short", id, ErrBadTLE)
	}
	sat := satellite.TLEToSat(tle.Line1, tle.Line2, satellite.GravityWGS72)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sats[id] = satEntry{sat: sat, elements: elements}
	return nil
}

// Len reports how many satellites are registered.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sats)
}

// Metadata builds the candidate descriptor for a registered satellite. The
// signal figure is the nominal zenith estimate at the orbit altitude.
func (f *Feed) Metadata(id string, constellation model.Constellation) (model.CandidateMetadata, error) {
	f.mu.RLock()
	entry, ok := f.sats[id]
	f.mu.RUnlock()
	if !ok {
		return model.CandidateMetadata{}, fmt.Errorf("%w: %s", ErrUnknownSatellite, id)
	}
	return model.CandidateMetadata{
		ID:            id,
		Constellation: constellation,
		Orbit:         entry.elements,
		Signal: EstimateSignal(model.GeometrySample{
			ElevationDeg: 90,
			RangeKm:      entry.elements.AltitudeKm,
		}),
	}, nil
}

// MetadataAll returns descriptors for every registered satellite, sorted by
// identifier.
func (f *Feed) MetadataAll(constellation model.Constellation) []model.CandidateMetadata {
	f.mu.RLock()
	ids := make([]string, 0, len(f.sats))
	for id := range f.sats {
		ids = append(ids, id)
	}
	f.mu.RUnlock()
	sort.Strings(ids)

	out := make([]model.CandidateMetadata, 0, len(ids))
	for _, id := range ids {
		m, err := f.Metadata(id, constellation)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Series propagates the satellite across every grid timestep and returns one
// geometry sample per step.
func (f *Feed) Series(ctx context.Context, id string, grid timegrid.Grid) ([]model.GeometrySample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	entry, ok := f.sats[id]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSatellite, id)
	}

	samples := make([]model.GeometrySample, grid.Count)
	for i := 0; i < grid.Count; i++ {
		t := grid.At(i).UTC()
		year, month, day := t.Date()
		hour, min, sec := t.Clock()

		posECI, _ := satellite.Propagate(entry.sat, year, int(month), day, hour, min, sec)
		jd := satellite.JDay(year, int(month), day, hour, min, sec)
		gmst := satellite.ThetaG_JD(jd)
		posECEF := satellite.ECIToECEF(posECI, gmst)

		az, el, rangeKm := f.lookAngles(posECEF.X, posECEF.Y, posECEF.Z)
		samples[i] = model.GeometrySample{
			TimeOffsetS:  grid.OffsetSeconds(i),
			ElevationDeg: el,
			AzimuthDeg:   az,
			RangeKm:      rangeKm,
			Visible:      el >= f.minElevationDeg,
		}
	}
	return samples, nil
}

// lookAngles rotates the site-to-satellite vector into the SEZ topocentric
// frame. Azimuth is measured clockwise from north.
func (f *Feed) lookAngles(satX, satY, satZ float64) (azDeg, elDeg, rangeKm float64) {
	rx := satX - f.site.ecefX
	ry := satY - f.site.ecefY
	rz := satZ - f.site.ecefZ

	sinLat := math.Sin(f.site.latRad)
	cosLat := math.Cos(f.site.latRad)
	sinLon := math.Sin(f.site.lonRad)
	cosLon := math.Cos(f.site.lonRad)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rangeKm = math.Sqrt(south*south + east*east + zenith*zenith)
	if rangeKm == 0 {
		return 0, 90, 0
	}

	el := math.Asin(zenith / rangeKm)
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}
	return az * 180.0 / math.Pi, el * 180.0 / math.Pi, rangeKm
}

// EstimateSignal computes the expected downlink quality for one geometry
// sample using a Ku-band free-space link budget.
func EstimateSignal(s model.GeometrySample) model.SignalEstimate {
	if s.RangeKm <= 0 {
		return model.SignalEstimate{RSRPDBm: -140, RSRQDB: -19.5, SINRDB: -5}
	}

	fspl := 32.44 + 20*math.Log10(downlinkFrequencyGHz) + 20*math.Log10(s.RangeKm)
	elevationLoss := 50.0
	if s.ElevationDeg > 0 {
		elevationLoss = math.Max(0, (90-s.ElevationDeg)*0.1)
	}
	rsrp := txPowerDBm + antennaGainDBi - fspl - elevationLoss - atmosphericLossDB

	frac := (rsrp + 120) / 40
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return model.SignalEstimate{
		RSRPDBm: rsrp,
		RSRQDB:  -19.5 + frac*16.5,
		SINRDB:  -5 + frac*30,
	}
}

// parseLine2 extracts the orbital elements carried on line 2 of a TLE. The
// altitude is derived from the mean motion assuming a circular orbit.
func parseLine2(line2 string) (model.OrbitalElements, error) {
	if len(line2) < 63 {
		return model.OrbitalElements{}, fmt.Errorf("%w: line 2 too short", ErrBadTLE)
	}

	incl, err := tleField(line2, 8, 16, "inclination")
	if err != nil {
		return model.OrbitalElements{}, err
	}
	raan, err := tleField(line2, 17, 25, "raan")
	if err != nil {
		return model.OrbitalElements{}, err
	}
	meanAnomaly, err := tleField(line2, 43, 51, "mean anomaly")
	if err != nil {
		return model.OrbitalElements{}, err
	}
	meanMotion, err := tleField(line2, 52, 63, "mean motion")
	if err != nil {
		return model.OrbitalElements{}, err
	}
	if meanMotion <= 0 {
		return model.OrbitalElements{}, fmt.Errorf("%w: non-positive mean motion", ErrBadTLE)
	}

	periodS := 86400.0 / meanMotion
	semiMajorKm := math.Cbrt(earthMuKm3S2 * math.Pow(periodS/(2*math.Pi), 2))

	return model.OrbitalElements{
		InclinationDeg: incl,
		RAANDeg:        raan,
		MeanAnomalyDeg: meanAnomaly,
		AltitudeKm:     semiMajorKm - 6371.0,
	}, nil
}

func tleField(line string, start, end int, name string) (float64, error) {
	raw := strings.TrimSpace(line[start:end])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s field %q", ErrBadTLE, name, raw)
	}
	return v, nil
}
