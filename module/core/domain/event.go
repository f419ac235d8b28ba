package domain

import "time"

type EventType string

const (
	EventEntered          EventType = "geofence_entered"
	EventExited           EventType = "geofence_exited"
	EventRouteGuidance    EventType = "route_guidance"
	EventRouteCompleted   EventType = "route_completed"
	EventStoreUnavailable EventType = "store_unavailable"
)

// Event is what the dispatcher delivers to the host layer. Fields unused by
// a given Type are left zero.
type Event struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"type"`
	Region         *GeofenceRegion `json:"region,omitempty"`
	DistanceMeters float64         `json:"distance_meters,omitempty"`
	StopsRemaining int             `json:"stops_remaining,omitempty"`
	TotalStops     int             `json:"total_stops,omitempty"`
	Message        string          `json:"message,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// TransitionEvent is an enter or exit edge produced by the proximity engine.
type TransitionEvent struct {
	Type   EventType
	Region GeofenceRegion
}
