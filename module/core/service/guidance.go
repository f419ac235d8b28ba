package service

import (
	"fmt"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

// FormatDistance renders meters the way guidance messages show them.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(meters))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func guidanceMessage(stop domain.GeofenceRegion, distance float64, remaining int) string {
	noun := "stops"
	if remaining == 1 {
		noun = "stop"
	}
	return fmt.Sprintf("Next: %s, %s away (%d %s left)", stop.Name, FormatDistance(distance), remaining, noun)
}

func transitionMessage(t domain.EventType, region domain.GeofenceRegion) string {
	if t == domain.EventEntered {
		return "Entered " + region.Name
	}
	return "Left " + region.Name
}
