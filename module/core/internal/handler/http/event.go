package http

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

type recentEvents interface {
	Recent(ctx context.Context, limit int64) ([]domain.Event, error)
}

type eventSource interface {
	Subscribe(buffer int) (<-chan domain.Event, func())
}

const streamBuffer = 32

type EventHandler struct {
	recent recentEvents
	source eventSource
}

func NewEventHandler(recent recentEvents, source eventSource) *EventHandler {
	return &EventHandler{recent: recent, source: source}
}

func (h *EventHandler) Register(r *gin.RouterGroup) {
	r.GET("/events/recent", h.Recent)
	r.GET("/events/stream", h.Stream)
}

func (h *EventHandler) Recent(c *gin.Context) {
	var limit int64
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = n
	}

	events, err := h.recent.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recent events unavailable"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// Stream relays dispatched events as server-sent events.
func (h *EventHandler) Stream(c *gin.Context) {
	events, unsubscribe := h.source.Subscribe(streamBuffer)
	defer unsubscribe()
	ctx := c.Request.Context()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return true
		}
	})
}
