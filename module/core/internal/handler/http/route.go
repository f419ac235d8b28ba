package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twpayne/go-polyline"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

type routeService interface {
	Plan(ctx context.Context) error
	Reset(ctx context.Context) error
	Snapshot() domain.RouteState
}

type routeStopResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	Visited      bool    `json:"visited"`
}

type legResponse struct {
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	StraightLine    bool         `json:"straight_line"`
	Points          [][2]float64 `json:"points"`
	EncodedPolyline string       `json:"encoded_polyline"`
}

type routeResponse struct {
	Status           domain.RouteStatus  `json:"status"`
	Stops            []routeStopResponse `json:"stops"`
	CurrentStopIndex int                 `json:"current_stop_index"`
	StopsRemaining   int                 `json:"stops_remaining"`
	DistanceToStop   float64             `json:"distance_to_stop_meters"`
	Leg              *legResponse        `json:"leg,omitempty"`
}

type RouteHandler struct {
	routeSvc routeService
}

func NewRouteHandler(routeSvc routeService) *RouteHandler {
	return &RouteHandler{routeSvc: routeSvc}
}

func (h *RouteHandler) Register(r *gin.RouterGroup) {
	r.GET("/route", h.Get)
	r.POST("/route", h.Plan)
	r.DELETE("/route", h.Reset)
	r.GET("/export/route.kml", h.ExportKML)
}

func (h *RouteHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, toRouteResponse(h.routeSvc.Snapshot()))
}

func (h *RouteHandler) Plan(c *gin.Context) {
	if err := h.routeSvc.Plan(c.Request.Context()); err != nil {
		writeError(c, err, "failed to plan route")
		return
	}
	c.JSON(http.StatusOK, toRouteResponse(h.routeSvc.Snapshot()))
}

func (h *RouteHandler) Reset(c *gin.Context) {
	if err := h.routeSvc.Reset(c.Request.Context()); err != nil {
		writeError(c, err, "failed to reset route")
		return
	}
	c.Status(http.StatusNoContent)
}

func toRouteResponse(s domain.RouteState) routeResponse {
	resp := routeResponse{
		Status:           s.Status,
		Stops:            make([]routeStopResponse, len(s.OrderedStops)),
		CurrentStopIndex: s.CurrentStopIndex,
		StopsRemaining:   s.StopsRemaining(),
		DistanceToStop:   s.DistanceToStop,
	}
	for i, stop := range s.OrderedStops {
		resp.Stops[i] = routeStopResponse{
			ID:           stop.ID,
			Name:         stop.Name,
			Latitude:     stop.Center.Lat,
			Longitude:    stop.Center.Lng,
			RadiusMeters: stop.RadiusMeters,
			Visited:      stop.IsVisited,
		}
	}
	if s.Leg != nil {
		resp.Leg = toLegResponse(s.Leg)
	}
	return resp
}

func toLegResponse(leg *domain.RouteLeg) *legResponse {
	points := make([][2]float64, len(leg.Polyline))
	coords := make([][]float64, len(leg.Polyline))
	for i, p := range leg.Polyline {
		points[i] = [2]float64{p.Lat, p.Lng}
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return &legResponse{
		DistanceMeters:  leg.DistanceMeters,
		DurationSeconds: leg.DurationSeconds,
		StraightLine:    leg.StraightLine,
		Points:          points,
		EncodedPolyline: string(polyline.EncodeCoords(coords)),
	}
}
