package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/service"
)

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidGeofence):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGeofenceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "geofence not found"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	case errors.Is(err, service.ErrSequencerStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "route sequencer not running"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
