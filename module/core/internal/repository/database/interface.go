package database

import (
	"context"
	"time"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

type GeofenceRepository interface {
	Create(ctx context.Context, g *domain.GeofenceRegion) (int64, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.GeofenceRegion, error)
	List(ctx context.Context) ([]domain.GeofenceRegion, error)
	ListSelected(ctx context.Context) ([]domain.GeofenceRegion, error)
	UpdateSelection(ctx context.Context, id int64, selected bool) error
	ClearSelections(ctx context.Context) error
	UpdateVisited(ctx context.Context, id int64, visited bool) error
	ClearVisited(ctx context.Context) error
}

type VisitRepository interface {
	Add(ctx context.Context, v *domain.VisitRecord) (int64, error)
	// GetActive returns nil without error when the geofence has no open visit.
	GetActive(ctx context.Context, geofenceID int64) (*domain.VisitRecord, error)
	UpdateExitTime(ctx context.Context, visitID int64, exitTime time.Time, durationMinutes int) error
	List(ctx context.Context) ([]domain.VisitRecord, error)
}
