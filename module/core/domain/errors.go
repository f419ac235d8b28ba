package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSample      = errors.New("invalid location sample")
	ErrStoreUnavailable   = errors.New("geofence store unavailable")
	ErrRoutingUnavailable = errors.New("routing service unavailable")
	ErrPermissionDenied   = errors.New("location permission denied")
	ErrGeofenceNotFound   = errors.New("geofence not found")
	ErrInvalidGeofence    = errors.New("invalid geofence")
	ErrVisitNotOpen       = errors.New("visit is not open")
)

func invalidGeofence(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidGeofence, reason)
}
