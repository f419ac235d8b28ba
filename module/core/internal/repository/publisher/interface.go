package publisher

import (
	"context"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, e *domain.Event) error
}

type RecentEvents interface {
	Recent(ctx context.Context, limit int64) ([]domain.Event, error)
}
