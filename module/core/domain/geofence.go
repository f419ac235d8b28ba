package domain

import "time"

// DefaultRadiusMeters is applied when a geofence is created without a radius.
const DefaultRadiusMeters = 100

type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

type GeofenceRegion struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Center       Point     `json:"center"`
	RadiusMeters float64   `json:"radius_meters"`
	CreatedAt    time.Time `json:"created_at"`
	IsSelected   bool      `json:"is_selected"`
	IsVisited    bool      `json:"is_visited"`
}

// Validate checks the fields a store needs before persisting a region.
func (g *GeofenceRegion) Validate() error {
	if g.Name == "" {
		return invalidGeofence("name: required")
	}
	if !ValidPoint(g.Center) {
		return invalidGeofence("center: latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	if !(g.RadiusMeters > 0) {
		return invalidGeofence("radius_meters: must be positive")
	}
	return nil
}

// ValidPoint reports whether p holds finite, in-range degrees.
func ValidPoint(p Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// LocationSample is one fix delivered by a location provider.
type LocationSample struct {
	Point     Point     `json:"point"`
	Timestamp time.Time `json:"timestamp"`
}
