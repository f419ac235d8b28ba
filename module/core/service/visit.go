package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

type visitStore interface {
	AddVisit(ctx context.Context, v *domain.VisitRecord) (int64, error)
	GetActiveVisit(ctx context.Context, geofenceID int64) (*domain.VisitRecord, error)
	UpdateExitTime(ctx context.Context, visitID int64, exitTime time.Time, durationMinutes int) error
	UpdateVisited(ctx context.Context, id int64, visited bool) error
}

const (
	defaultVisitAttempts = 3
	defaultVisitBackoff  = 200 * time.Millisecond
)

// VisitRecorder opens and closes visit records as transitions arrive. An
// exit that could not be persisted is remembered per geofence and applied
// before the next visit to that geofence is opened.
type VisitRecorder struct {
	store    visitStore
	attempts int
	backoff  time.Duration

	mu           sync.Mutex
	pendingExits map[int64]time.Time
}

func NewVisitRecorder(store visitStore) *VisitRecorder {
	return &VisitRecorder{
		store:        store,
		attempts:     defaultVisitAttempts,
		backoff:      defaultVisitBackoff,
		pendingExits: make(map[int64]time.Time),
	}
}

// OnEntered opens a visit unless one is already open for the region, and
// marks selected regions visited. A visit left open by an exit that never
// reached the store is closed at that exit time before the new one opens.
func (r *VisitRecorder) OnEntered(ctx context.Context, region domain.GeofenceRegion, now time.Time) error {
	err := r.retry(ctx, func(ctx context.Context) error {
		active, err := r.store.GetActiveVisit(ctx, region.ID)
		if err != nil {
			return err
		}
		if active != nil {
			exitAt, ok := r.pendingExit(region.ID)
			if !ok || !active.EntryTime.Before(exitAt) {
				return nil
			}
			if err := r.close(ctx, active, exitAt); err != nil {
				return err
			}
			log.Printf("[VisitRecorder] closed visit %d with deferred exit at %s", active.ID, exitAt.Format(time.RFC3339))
		}
		r.clearPendingExit(region.ID)
		_, err = r.store.AddVisit(ctx, &domain.VisitRecord{
			GeofenceID:   region.ID,
			GeofenceName: region.Name,
			EntryTime:    now,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("open visit for geofence %d: %w", region.ID, err)
	}

	if !region.IsSelected {
		return nil
	}
	err = r.retry(ctx, func(ctx context.Context) error {
		return r.store.UpdateVisited(ctx, region.ID, true)
	})
	if err != nil {
		return fmt.Errorf("mark geofence %d visited: %w", region.ID, err)
	}
	return nil
}

// OnExited closes the open visit for the region. Without an open visit it
// does nothing, so a repeated exit is harmless.
func (r *VisitRecorder) OnExited(ctx context.Context, region domain.GeofenceRegion, now time.Time) error {
	err := r.retry(ctx, func(ctx context.Context) error {
		active, err := r.store.GetActiveVisit(ctx, region.ID)
		if err != nil {
			return err
		}
		if active == nil {
			return nil
		}
		return r.close(ctx, active, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			r.setPendingExit(region.ID, now)
		}
		return fmt.Errorf("close visit for geofence %d: %w", region.ID, err)
	}
	r.clearPendingExit(region.ID)
	return nil
}

func (r *VisitRecorder) close(ctx context.Context, active *domain.VisitRecord, exitAt time.Time) error {
	minutes := domain.VisitDurationMinutes(active.EntryTime, exitAt)
	err := r.store.UpdateExitTime(ctx, active.ID, exitAt, minutes)
	if errors.Is(err, domain.ErrVisitNotOpen) {
		return nil
	}
	return err
}

func (r *VisitRecorder) pendingExit(geofenceID int64) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.pendingExits[geofenceID]
	return t, ok
}

func (r *VisitRecorder) setPendingExit(geofenceID int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingExits[geofenceID] = at
}

func (r *VisitRecorder) clearPendingExit(geofenceID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pendingExits, geofenceID)
}

// retry repeats fn while it fails with ErrStoreUnavailable.
func (r *VisitRecorder) retry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
		if attempt == r.attempts {
			break
		}
		log.Printf("[VisitRecorder] attempt %d/%d failed: %v", attempt, r.attempts, err)
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return err
}
