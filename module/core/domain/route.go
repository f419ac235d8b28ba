package domain

type RouteStatus string

const (
	RouteIdle      RouteStatus = "idle"
	RoutePlanning  RouteStatus = "planning"
	RouteEnRoute   RouteStatus = "en_route"
	RouteArrived   RouteStatus = "arrived"
	RouteCompleted RouteStatus = "completed"
)

// RouteLeg is the path from the current position to the current stop.
type RouteLeg struct {
	Polyline        []Point `json:"polyline"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	StraightLine    bool    `json:"straight_line"`
}

type RouteState struct {
	Status           RouteStatus      `json:"status"`
	OrderedStops     []GeofenceRegion `json:"ordered_stops"`
	CurrentStopIndex int              `json:"current_stop_index"`
	Leg              *RouteLeg        `json:"leg,omitempty"`
	DistanceToStop   float64          `json:"distance_to_stop_meters"`
}

// CurrentStop returns the stop being navigated to, if any.
func (s *RouteState) CurrentStop() (GeofenceRegion, bool) {
	if s.CurrentStopIndex < 0 || s.CurrentStopIndex >= len(s.OrderedStops) {
		return GeofenceRegion{}, false
	}
	return s.OrderedStops[s.CurrentStopIndex], true
}

// StopsRemaining counts stops not yet visited.
func (s *RouteState) StopsRemaining() int {
	n := 0
	for _, stop := range s.OrderedStops {
		if !stop.IsVisited {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *RouteState) Clone() RouteState {
	out := *s
	out.OrderedStops = append([]GeofenceRegion(nil), s.OrderedStops...)
	if s.Leg != nil {
		leg := *s.Leg
		leg.Polyline = append([]Point(nil), s.Leg.Polyline...)
		out.Leg = &leg
	}
	return out
}
