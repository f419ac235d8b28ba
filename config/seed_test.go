package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

func TestParseSeedGeofences(t *testing.T) {
	data := []byte(`
geofences:
  - name: Monas
    latitude: -6.1754
    longitude: 106.8272
    radius_meters: 150
  - name: Kota Tua
    latitude: -6.1352
    longitude: 106.8133
`)

	regions, err := parseSeedGeofences(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}
	if regions[0].Name != "Monas" || regions[0].Center.Lat != -6.1754 || regions[0].RadiusMeters != 150 {
		t.Errorf("unexpected first region %+v", regions[0])
	}
	if regions[1].RadiusMeters != domain.DefaultRadiusMeters {
		t.Errorf("expected default radius, got %v", regions[1].RadiusMeters)
	}
}

func TestParseSeedGeofences_Invalid(t *testing.T) {
	data := []byte(`
geofences:
  - name: Nowhere
    latitude: 95
    longitude: 10
`)
	if _, err := parseSeedGeofences(data); !errors.Is(err, domain.ErrInvalidGeofence) {
		t.Fatalf("expected ErrInvalidGeofence, got %v", err)
	}
}

func TestLoadSeedGeofences(t *testing.T) {
	if regions, err := LoadSeedGeofences(""); err != nil || regions != nil {
		t.Fatalf("expected nothing for an empty path, got %v, %v", regions, err)
	}

	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte("geofences:\n  - name: Home\n    latitude: 1\n    longitude: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	regions, err := LoadSeedGeofences(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 1 || regions[0].Name != "Home" {
		t.Fatalf("unexpected regions %+v", regions)
	}

	if _, err := LoadSeedGeofences(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
