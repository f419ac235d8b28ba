package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/database"
)

const notifyTimeout = 5 * time.Second

// GeofenceService is the geofence store seen by the rest of the core. Every
// successful mutation pushes the fresh geofence list to active watchers.
type GeofenceService struct {
	geofences database.GeofenceRepository
	visits    database.VisitRepository
	now       func() time.Time

	mu       sync.Mutex
	watchers map[int]chan []domain.GeofenceRegion
	nextID   int
}

func NewGeofenceService(geofences database.GeofenceRepository, visits database.VisitRepository) *GeofenceService {
	return &GeofenceService{
		geofences: geofences,
		visits:    visits,
		now:       time.Now,
		watchers:  make(map[int]chan []domain.GeofenceRegion),
	}
}

func (s *GeofenceService) AddGeofence(ctx context.Context, name string, center domain.Point, radiusMeters float64) (*domain.GeofenceRegion, error) {
	if radiusMeters == 0 {
		radiusMeters = domain.DefaultRadiusMeters
	}
	g := &domain.GeofenceRegion{
		Name:         strings.TrimSpace(name),
		Center:       center,
		RadiusMeters: radiusMeters,
		CreatedAt:    s.now().UTC(),
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	id, err := s.geofences.Create(ctx, g)
	if err != nil {
		return nil, err
	}
	g.ID = id
	s.notify(ctx)
	return g, nil
}

func (s *GeofenceService) RemoveGeofence(ctx context.Context, id int64) error {
	if err := s.geofences.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *GeofenceService) GetGeofence(ctx context.Context, id int64) (*domain.GeofenceRegion, error) {
	return s.geofences.Get(ctx, id)
}

func (s *GeofenceService) GetAllGeofencesSnapshot(ctx context.Context) ([]domain.GeofenceRegion, error) {
	return s.geofences.List(ctx)
}

func (s *GeofenceService) GetSelectedGeofences(ctx context.Context) ([]domain.GeofenceRegion, error) {
	return s.geofences.ListSelected(ctx)
}

func (s *GeofenceService) UpdateSelection(ctx context.Context, id int64, selected bool) error {
	if err := s.geofences.UpdateSelection(ctx, id, selected); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *GeofenceService) ClearAllSelections(ctx context.Context) error {
	if err := s.geofences.ClearSelections(ctx); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *GeofenceService) UpdateVisited(ctx context.Context, id int64, visited bool) error {
	if err := s.geofences.UpdateVisited(ctx, id, visited); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *GeofenceService) ClearAllVisited(ctx context.Context) error {
	if err := s.geofences.ClearVisited(ctx); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *GeofenceService) AddVisit(ctx context.Context, v *domain.VisitRecord) (int64, error) {
	return s.visits.Add(ctx, v)
}

func (s *GeofenceService) GetActiveVisit(ctx context.Context, geofenceID int64) (*domain.VisitRecord, error) {
	return s.visits.GetActive(ctx, geofenceID)
}

func (s *GeofenceService) UpdateExitTime(ctx context.Context, visitID int64, exitTime time.Time, durationMinutes int) error {
	return s.visits.UpdateExitTime(ctx, visitID, exitTime, durationMinutes)
}

func (s *GeofenceService) GetAllVisits(ctx context.Context) ([]domain.VisitRecord, error) {
	return s.visits.List(ctx)
}

// Watch streams the full geofence list, starting with the current one. A
// slow reader only ever misses intermediate lists, never the latest. The
// channel is closed once ctx is done.
func (s *GeofenceService) Watch(ctx context.Context) (<-chan []domain.GeofenceRegion, error) {
	initial, err := s.geofences.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch geofences: %w", err)
	}

	ch := make(chan []domain.GeofenceRegion, 1)
	ch <- initial

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// notify refreshes watchers after a committed mutation. The refresh outlives
// the caller's context so a dropped request does not hide the change.
func (s *GeofenceService) notify(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.watchers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	list, err := s.geofences.List(ctx)
	if err != nil {
		log.Printf("[GeofenceStore] refresh watchers: %v", err)
		return
	}
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- list
	}
}
