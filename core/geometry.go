package core

import "math"

// EarthRadiusKm is the mean Earth radius used for all simple geometry
// calculations in the selection engine (kilometres).
const EarthRadiusKm = 6371.0

// NearPolarInclinationDeg is the inclination above which an orbit is treated
// as globally reachable by the prefilter, regardless of altitude.
const NearPolarInclinationDeg = 80.0

// MaxGroundTrackLatitudeDeg returns the highest latitude from which a
// satellite on the given orbit can still appear above the geometric horizon:
// the orbital inclination widened by the horizon half-angle acos(Re/(Re+h)).
// The result is clamped to [0, 90].
func MaxGroundTrackLatitudeDeg(inclinationDeg, altitudeKm float64) float64 {
	if altitudeKm < 0 {
		altitudeKm = 0
	}
	horizonDeg := math.Acos(EarthRadiusKm/(EarthRadiusKm+altitudeKm)) * 180.0 / math.Pi

	maxLat := math.Abs(inclinationDeg) + horizonDeg
	if maxLat > 90 {
		maxLat = 90
	}
	return maxLat
}

// CanReachLatitude reports whether an orbit with the given inclination and
// altitude can ever place the satellite within view of an observer at the
// given latitude. Near-polar orbits reach every latitude. Exclusion here is a
// normal outcome, not a failure.
func CanReachLatitude(inclinationDeg, altitudeKm, observerLatDeg float64) bool {
	if math.Abs(inclinationDeg) >= NearPolarInclinationDeg {
		return true
	}
	maxLat := MaxGroundTrackLatitudeDeg(inclinationDeg, altitudeKm)
	return observerLatDeg >= -maxLat && observerLatDeg <= maxLat
}
