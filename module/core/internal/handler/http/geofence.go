package http

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

type geofenceService interface {
	AddGeofence(ctx context.Context, name string, center domain.Point, radiusMeters float64) (*domain.GeofenceRegion, error)
	RemoveGeofence(ctx context.Context, id int64) error
	GetGeofence(ctx context.Context, id int64) (*domain.GeofenceRegion, error)
	GetAllGeofencesSnapshot(ctx context.Context) ([]domain.GeofenceRegion, error)
	UpdateSelection(ctx context.Context, id int64, selected bool) error
	ClearAllSelections(ctx context.Context) error
	GetAllVisits(ctx context.Context) ([]domain.VisitRecord, error)
	Watch(ctx context.Context) (<-chan []domain.GeofenceRegion, error)
}

type createGeofenceRequest struct {
	Name         string   `json:"name" binding:"required"`
	Latitude     *float64 `json:"latitude" binding:"required"`
	Longitude    *float64 `json:"longitude" binding:"required"`
	RadiusMeters float64  `json:"radius_meters"`
}

type selectionRequest struct {
	Selected *bool `json:"selected" binding:"required"`
}

type geofenceResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	CreatedAt    int64   `json:"created_at"`
	IsSelected   bool    `json:"is_selected"`
	IsVisited    bool    `json:"is_visited"`
}

type visitResponse struct {
	ID              int64  `json:"id"`
	GeofenceID      int64  `json:"geofence_id"`
	GeofenceName    string `json:"geofence_name"`
	EntryTime       int64  `json:"entry_time"`
	ExitTime        *int64 `json:"exit_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type GeofenceHandler struct {
	geofenceSvc geofenceService
}

func NewGeofenceHandler(geofenceSvc geofenceService) *GeofenceHandler {
	return &GeofenceHandler{geofenceSvc: geofenceSvc}
}

func (h *GeofenceHandler) Register(r *gin.RouterGroup) {
	r.GET("/geofences", h.List)
	r.POST("/geofences", h.Create)
	r.GET("/geofences/stream", h.Stream)
	r.DELETE("/geofences/selection", h.ClearSelection)
	r.GET("/geofences/:id", h.Get)
	r.DELETE("/geofences/:id", h.Delete)
	r.PUT("/geofences/:id/selection", h.UpdateSelection)
	r.GET("/visits", h.ListVisits)
	r.GET("/export/geofences.kml", h.ExportKML)
}

func (h *GeofenceHandler) List(c *gin.Context) {
	geofences, err := h.geofenceSvc.GetAllGeofencesSnapshot(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to fetch geofences")
		return
	}
	c.JSON(http.StatusOK, toGeofenceResponses(geofences))
}

func (h *GeofenceHandler) Create(c *gin.Context) {
	var req createGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	center := domain.Point{Lat: *req.Latitude, Lng: *req.Longitude}
	g, err := h.geofenceSvc.AddGeofence(c.Request.Context(), req.Name, center, req.RadiusMeters)
	if err != nil {
		writeError(c, err, "failed to create geofence")
		return
	}
	c.JSON(http.StatusCreated, toGeofenceResponse(g))
}

func (h *GeofenceHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	g, err := h.geofenceSvc.GetGeofence(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to fetch geofence")
		return
	}
	c.JSON(http.StatusOK, toGeofenceResponse(g))
}

func (h *GeofenceHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.geofenceSvc.RemoveGeofence(c.Request.Context(), id); err != nil {
		writeError(c, err, "failed to delete geofence")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GeofenceHandler) UpdateSelection(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.geofenceSvc.UpdateSelection(c.Request.Context(), id, *req.Selected); err != nil {
		writeError(c, err, "failed to update selection")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GeofenceHandler) ClearSelection(c *gin.Context) {
	if err := h.geofenceSvc.ClearAllSelections(c.Request.Context()); err != nil {
		writeError(c, err, "failed to clear selection")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GeofenceHandler) ListVisits(c *gin.Context) {
	visits, err := h.geofenceSvc.GetAllVisits(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to fetch visits")
		return
	}

	results := make([]visitResponse, len(visits))
	for i, v := range visits {
		results[i] = visitResponse{
			ID:              v.ID,
			GeofenceID:      v.GeofenceID,
			GeofenceName:    v.GeofenceName,
			EntryTime:       v.EntryTime.Unix(),
			DurationMinutes: v.DurationMinutes,
		}
		if v.ExitTime != nil {
			exit := v.ExitTime.Unix()
			results[i].ExitTime = &exit
		}
	}
	c.JSON(http.StatusOK, results)
}

// Stream pushes the geofence list as server-sent events whenever it changes.
func (h *GeofenceHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	updates, err := h.geofenceSvc.Watch(ctx)
	if err != nil {
		writeError(c, err, "failed to watch geofences")
		return
	}

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case list, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("geofences", toGeofenceResponses(list))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence id"})
		return 0, false
	}
	return id, true
}

func toGeofenceResponse(g *domain.GeofenceRegion) geofenceResponse {
	return geofenceResponse{
		ID:           g.ID,
		Name:         g.Name,
		Latitude:     g.Center.Lat,
		Longitude:    g.Center.Lng,
		RadiusMeters: g.RadiusMeters,
		CreatedAt:    g.CreatedAt.Unix(),
		IsSelected:   g.IsSelected,
		IsVisited:    g.IsVisited,
	}
}

func toGeofenceResponses(list []domain.GeofenceRegion) []geofenceResponse {
	results := make([]geofenceResponse, len(list))
	for i := range list {
		results[i] = toGeofenceResponse(&list[i])
	}
	return results
}
