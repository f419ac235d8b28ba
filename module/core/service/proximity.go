package service

import (
	"fmt"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/geo"
)

// ProximityEngine turns location samples into enter and exit edges. It keeps
// the set of geofences the user is inside and is not safe for concurrent
// use: one goroutine must feed it samples in arrival order.
type ProximityEngine struct {
	inside map[int64]struct{}
}

func NewProximityEngine() *ProximityEngine {
	return &ProximityEngine{inside: make(map[int64]struct{})}
}

// OnLocationSample compares p against current and returns the transitions in
// the order of current. Geofences no longer in current are forgotten without
// an exit event.
func (e *ProximityEngine) OnLocationSample(p domain.Point, current []domain.GeofenceRegion) ([]domain.TransitionEvent, error) {
	if !domain.ValidPoint(p) {
		return nil, fmt.Errorf("%w: (%v, %v)", domain.ErrInvalidSample, p.Lat, p.Lng)
	}

	e.prune(current)

	var events []domain.TransitionEvent
	for _, region := range current {
		distance := geo.HaversineMeters(p.Lat, p.Lng, region.Center.Lat, region.Center.Lng)
		isInside := distance <= region.RadiusMeters
		_, wasInside := e.inside[region.ID]

		switch {
		case isInside && !wasInside:
			e.inside[region.ID] = struct{}{}
			events = append(events, domain.TransitionEvent{Type: domain.EventEntered, Region: region})
		case !isInside && wasInside:
			delete(e.inside, region.ID)
			events = append(events, domain.TransitionEvent{Type: domain.EventExited, Region: region})
		}
	}
	return events, nil
}

// Inside reports whether the engine currently considers the user inside id.
func (e *ProximityEngine) Inside(id int64) bool {
	_, ok := e.inside[id]
	return ok
}

// Reset forgets all containment, as after a restart.
func (e *ProximityEngine) Reset() {
	clear(e.inside)
}

func (e *ProximityEngine) prune(current []domain.GeofenceRegion) {
	if len(e.inside) == 0 {
		return
	}
	present := make(map[int64]struct{}, len(current))
	for _, region := range current {
		present[region.ID] = struct{}{}
	}
	for id := range e.inside {
		if _, ok := present[id]; !ok {
			delete(e.inside, id)
		}
	}
}
