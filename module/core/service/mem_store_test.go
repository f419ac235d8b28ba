package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

// memStore is an in-memory geofence store shared by the service tests.
type memStore struct {
	mu        sync.Mutex
	geofences map[int64]*domain.GeofenceRegion
	visits    []*domain.VisitRecord
	nextVisit int64

	failNext int
}

func newMemStore(regions ...domain.GeofenceRegion) *memStore {
	s := &memStore{geofences: make(map[int64]*domain.GeofenceRegion)}
	for i := range regions {
		g := regions[i]
		s.geofences[g.ID] = &g
	}
	return s
}

func (s *memStore) fail() error {
	if s.failNext > 0 {
		s.failNext--
		return domain.ErrStoreUnavailable
	}
	return nil
}

func (s *memStore) sorted(filter func(*domain.GeofenceRegion) bool) []domain.GeofenceRegion {
	out := []domain.GeofenceRegion{}
	for _, g := range s.geofences {
		if filter(g) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) GetAllGeofencesSnapshot(_ context.Context) ([]domain.GeofenceRegion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	return s.sorted(func(*domain.GeofenceRegion) bool { return true }), nil
}

func (s *memStore) GetSelectedGeofences(_ context.Context) ([]domain.GeofenceRegion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	return s.sorted(func(g *domain.GeofenceRegion) bool { return g.IsSelected }), nil
}

func (s *memStore) UpdateVisited(_ context.Context, id int64, visited bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	g, ok := s.geofences[id]
	if !ok {
		return domain.ErrGeofenceNotFound
	}
	g.IsVisited = visited
	return nil
}

func (s *memStore) UpdateSelection(_ context.Context, id int64, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.geofences[id]
	if !ok {
		return domain.ErrGeofenceNotFound
	}
	g.IsSelected = selected
	return nil
}

func (s *memStore) ClearAllSelections(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	for _, g := range s.geofences {
		g.IsSelected = false
	}
	return nil
}

func (s *memStore) ClearAllVisited(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	for _, g := range s.geofences {
		g.IsVisited = false
	}
	return nil
}

func (s *memStore) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.geofences, id)
}

func (s *memStore) get(id int64) domain.GeofenceRegion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.geofences[id]
}

func (s *memStore) AddVisit(_ context.Context, v *domain.VisitRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return 0, err
	}
	s.nextVisit++
	rec := *v
	rec.ID = s.nextVisit
	s.visits = append(s.visits, &rec)
	return rec.ID, nil
}

func (s *memStore) GetActiveVisit(_ context.Context, geofenceID int64) (*domain.VisitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	for _, v := range s.visits {
		if v.GeofenceID == geofenceID && v.ExitTime == nil {
			rec := *v
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateExitTime(_ context.Context, visitID int64, exitTime time.Time, durationMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	for _, v := range s.visits {
		if v.ID == visitID {
			if v.ExitTime != nil {
				return domain.ErrVisitNotOpen
			}
			exit := exitTime
			v.ExitTime = &exit
			v.DurationMinutes = durationMinutes
			return nil
		}
	}
	return domain.ErrVisitNotOpen
}

func (s *memStore) allVisits() []domain.VisitRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.VisitRecord, len(s.visits))
	for i, v := range s.visits {
		out[i] = *v
	}
	return out
}

// recordingDispatcher collects dispatched events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (d *recordingDispatcher) Dispatch(e domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *recordingDispatcher) ofType(t domain.EventType) []domain.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
