// Package geo holds the pure distance and shape helpers used by the
// proximity engine and the route sequencer.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

const (
	EarthRadiusMeters = 6371000

	// DefaultCircleVertices is the vertex count used for rendered geofences.
	DefaultCircleVertices = 64

	metersPerDegreeLat      = 110540.0
	metersPerDegreeLngEquat = 111320.0
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// HaversineMeters returns the great-circle distance between two points.
// Arguments are put in a canonical order first so that swapping them yields
// the identical float.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	if lat2 < lat1 || (lat2 == lat1 && lng2 < lng1) {
		lat1, lng1, lat2, lng2 = lat2, lng2, lat1, lng1
	}
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Distance validates both points before measuring between them.
func Distance(a, b domain.Point) (float64, error) {
	if err := validatePoint(a); err != nil {
		return 0, err
	}
	if err := validatePoint(b); err != nil {
		return 0, err
	}
	return HaversineMeters(a.Lat, a.Lng, b.Lat, b.Lng), nil
}

// CirclePolygon approximates a circle with DefaultCircleVertices vertices.
func CirclePolygon(center domain.Point, radiusMeters float64) ([]domain.Point, error) {
	return ApproximateCirclePolygon(center, radiusMeters, DefaultCircleVertices)
}

// ApproximateCirclePolygon returns a closed ring of vertexCount+1 points,
// the last repeating the first. Longitude spacing is widened by 1/cos(lat).
func ApproximateCirclePolygon(center domain.Point, radiusMeters float64, vertexCount int) ([]domain.Point, error) {
	if err := validatePoint(center); err != nil {
		return nil, err
	}
	if !(radiusMeters > 0) || math.IsInf(radiusMeters, 1) {
		return nil, fmt.Errorf("radius %v: must be a positive finite number", radiusMeters)
	}
	if vertexCount < 3 {
		return nil, fmt.Errorf("vertex count %d: need at least 3", vertexCount)
	}

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat < 1e-9 {
		return nil, fmt.Errorf("%w: latitude %v is too close to a pole", ErrInvalidCoordinate, center.Lat)
	}

	degLat := radiusMeters / metersPerDegreeLat
	degLng := radiusMeters / (metersPerDegreeLngEquat * cosLat)

	ring := make([]domain.Point, 0, vertexCount+1)
	for i := 0; i < vertexCount; i++ {
		theta := 2 * math.Pi * float64(i) / float64(vertexCount)
		ring = append(ring, domain.Point{
			Lat: center.Lat + degLat*math.Sin(theta),
			Lng: center.Lng + degLng*math.Cos(theta),
		})
	}
	return append(ring, ring[0]), nil
}

func validatePoint(p domain.Point) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fmt.Errorf("%w: NaN in (%v, %v)", ErrInvalidCoordinate, p.Lat, p.Lng)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, p.Lng)
	}
	return nil
}
