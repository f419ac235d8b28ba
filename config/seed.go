package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

type seedFile struct {
	Geofences []seedGeofence `yaml:"geofences"`
}

type seedGeofence struct {
	Name         string  `yaml:"name"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters"`
}

// LoadSeedGeofences reads the initial geofences from a YAML file:
//
//	geofences:
//	  - name: Monas
//	    latitude: -6.1754
//	    longitude: 106.8272
//	    radius_meters: 150
//
// An empty path yields no geofences.
func LoadSeedGeofences(path string) ([]domain.GeofenceRegion, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeedGeofences(data)
}

func parseSeedGeofences(data []byte) ([]domain.GeofenceRegion, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	regions := make([]domain.GeofenceRegion, 0, len(file.Geofences))
	for i, g := range file.Geofences {
		radius := g.RadiusMeters
		if radius == 0 {
			radius = domain.DefaultRadiusMeters
		}
		region := domain.GeofenceRegion{
			Name:         g.Name,
			Center:       domain.Point{Lat: g.Latitude, Lng: g.Longitude},
			RadiusMeters: radius,
		}
		if err := region.Validate(); err != nil {
			return nil, fmt.Errorf("seed geofence %d: %w", i, err)
		}
		regions = append(regions, region)
	}
	return regions, nil
}
