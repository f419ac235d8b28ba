package service

import (
	"errors"
	"math"
	"testing"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/geo"
)

// point roughly meters north of the equator origin
func north(meters float64) domain.Point {
	return domain.Point{Lat: meters / 111194.93, Lng: 0}
}

func region(id int64, name string, center domain.Point, radius float64) domain.GeofenceRegion {
	return domain.GeofenceRegion{ID: id, Name: name, Center: center, RadiusMeters: radius}
}

func eventTypes(events []domain.TransitionEvent) []domain.EventType {
	out := make([]domain.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestOnLocationSample_EnterOnce(t *testing.T) {
	engine := NewProximityEngine()
	fences := []domain.GeofenceRegion{region(1, "Home", north(0), 100)}

	events, err := engine.OnLocationSample(north(10), fences)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Type != domain.EventEntered || events[0].Region.ID != 1 {
		t.Fatalf("expected one Entered event, got %+v", events)
	}

	for i := 0; i < 3; i++ {
		events, err = engine.OnLocationSample(north(10), fences)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("expected no events on repeated inside sample, got %+v", events)
		}
	}
}

func TestOnLocationSample_EnterExitPairing(t *testing.T) {
	engine := NewProximityEngine()
	fences := []domain.GeofenceRegion{region(1, "Home", north(0), 100)}

	var all []domain.EventType
	for _, meters := range []float64{500, 50, 60, 300, 20, 400, 800} {
		events, err := engine.OnLocationSample(north(meters), fences)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		all = append(all, eventTypes(events)...)
	}

	expected := []domain.EventType{domain.EventEntered, domain.EventExited, domain.EventEntered, domain.EventExited}
	if len(all) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, all)
	}
	for i := range expected {
		if all[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, all)
		}
	}
}

func TestOnLocationSample_BoundaryCountsAsInside(t *testing.T) {
	engine := NewProximityEngine()
	center := domain.Point{Lat: 0, Lng: 0}
	sample := domain.Point{Lat: 0, Lng: 0.001}
	radius := geo.HaversineMeters(center.Lat, center.Lng, sample.Lat, sample.Lng)

	events, err := engine.OnLocationSample(sample, []domain.GeofenceRegion{region(1, "Edge", center, radius)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected boundary sample to count as inside, got %+v", events)
	}
}

func TestOnLocationSample_OrderFollowsInput(t *testing.T) {
	engine := NewProximityEngine()
	fences := []domain.GeofenceRegion{
		region(9, "Outer", north(0), 1000),
		region(2, "Inner", north(0), 100),
		region(5, "Far", domain.Point{Lat: 10, Lng: 10}, 100),
	}

	events, err := engine.OnLocationSample(north(0), fences)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].Region.ID != 9 || events[1].Region.ID != 2 {
		t.Fatalf("expected Entered for 9 then 2, got %+v", events)
	}
}

func TestOnLocationSample_InvalidSample(t *testing.T) {
	engine := NewProximityEngine()
	fences := []domain.GeofenceRegion{region(1, "Home", north(0), 100)}

	for _, p := range []domain.Point{
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
		{Lat: 91, Lng: 0},
		{Lat: 0, Lng: -180.5},
	} {
		_, err := engine.OnLocationSample(p, fences)
		if !errors.Is(err, domain.ErrInvalidSample) {
			t.Fatalf("expected ErrInvalidSample for %v, got %v", p, err)
		}
	}
	if engine.Inside(1) {
		t.Fatal("invalid samples must not change containment")
	}
}

func TestOnLocationSample_DeletedWhileInside(t *testing.T) {
	engine := NewProximityEngine()
	home := region(1, "Home", north(0), 100)

	if _, err := engine.OnLocationSample(north(0), []domain.GeofenceRegion{home}); err != nil {
		t.Fatal(err)
	}
	if !engine.Inside(1) {
		t.Fatal("expected to be inside")
	}

	// geofence deleted: no exit event, containment forgotten
	events, err := engine.OnLocationSample(north(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events for a deleted geofence, got %+v", events)
	}
	if engine.Inside(1) {
		t.Fatal("expected stale id to be pruned")
	}

	// recreated with the same id while still inside: a fresh enter
	events, err = engine.OnLocationSample(north(0), []domain.GeofenceRegion{home})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != domain.EventEntered {
		t.Fatalf("expected Entered after re-adding, got %+v", events)
	}
}

func TestOnLocationSample_DeletedWhileOutside(t *testing.T) {
	engine := NewProximityEngine()
	home := region(1, "Home", north(0), 100)
	work := region(2, "Work", north(5000), 100)

	if _, err := engine.OnLocationSample(north(5000), []domain.GeofenceRegion{home, work}); err != nil {
		t.Fatal(err)
	}

	events, err := engine.OnLocationSample(north(5000), []domain.GeofenceRegion{work})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
	if !engine.Inside(2) || engine.Inside(1) {
		t.Fatal("unexpected containment after deleting an outside geofence")
	}
}

func TestReset_ProducesFreshEnter(t *testing.T) {
	engine := NewProximityEngine()
	fences := []domain.GeofenceRegion{region(1, "Home", north(0), 100)}

	if _, err := engine.OnLocationSample(north(0), fences); err != nil {
		t.Fatal(err)
	}
	engine.Reset()

	events, err := engine.OnLocationSample(north(0), fences)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != domain.EventEntered {
		t.Fatalf("expected a synthetic Entered after reset, got %+v", events)
	}
}
