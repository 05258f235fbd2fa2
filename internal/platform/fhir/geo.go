package fhir

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/jftuga/geodist"
)

// Kilometers per unit for the supported distance units.
const (
	kmPerMile = 1.60934
	kmPerFoot = 0.0003048

	// degreesPerKm approximates a degree of latitude/longitude as 111 km,
	// good enough for the coarse index-friendly prefilter.
	kmPerDegree = 111.0
)

var nearPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\|(-?\d+(?:\.\d+)?)\|(-?\d+(?:\.\d+)?)(?:\|(km|mi|ft))?$`)

// NearFilter is a parsed geographic proximity filter.
type NearFilter struct {
	Lat        float64
	Lon        float64
	DistanceKm float64
}

// ParseNear parses a "lat|lon|distance|unit" query value. The unit is
// optional, one of km, mi or ft, defaulting to km. Malformed values return an
// error; callers fail closed and return zero results, since geographic
// filtering is an explicit user intent and silent pass-through would return
// unbounded data.
func ParseNear(raw string) (*NearFilter, error) {
	m := nearPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("malformed near value %q, expected lat|lon|distance|unit", raw)
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed latitude %q: %w", m[1], err)
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed longitude %q: %w", m[2], err)
	}
	dist, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed distance %q: %w", m[3], err)
	}

	switch m[4] {
	case "", "km":
	case "mi":
		dist *= kmPerMile
	case "ft":
		dist *= kmPerFoot
	default:
		return nil, fmt.Errorf("unsupported distance unit %q", m[4])
	}

	return &NearFilter{Lat: lat, Lon: lon, DistanceKm: dist}, nil
}

// BoundingBox returns the latitude/longitude ranges for the coarse prefilter.
// The box over-selects; survivors are checked precisely with Contains.
func (f *NearFilter) BoundingBox() (minLat, maxLat, minLon, maxLon float64) {
	delta := f.DistanceKm / kmPerDegree
	return f.Lat - delta, f.Lat + delta, f.Lon - delta, f.Lon + delta
}

// Contains reports whether the point lies within the exact requested radius,
// using Vincenty's ellipsoidal distance with a haversine fallback when the
// iteration fails to converge (antipodal points).
func (f *NearFilter) Contains(lat, lon float64) bool {
	origin := geodist.Coord{Lat: f.Lat, Lon: f.Lon}
	point := geodist.Coord{Lat: lat, Lon: lon}

	_, km, err := geodist.VincentyDistance(origin, point)
	if err != nil {
		_, km = geodist.HaversineDistance(origin, point)
	}
	return km <= f.DistanceKm
}
