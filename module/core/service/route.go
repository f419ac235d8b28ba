package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/geo"
)

// DefaultRoutePollInterval is how often the sequencer samples the position.
const DefaultRoutePollInterval = 5 * time.Second

var ErrSequencerStopped = errors.New("route sequencer is not running")

type routeStore interface {
	GetSelectedGeofences(ctx context.Context) ([]domain.GeofenceRegion, error)
	UpdateVisited(ctx context.Context, id int64, visited bool) error
	ClearAllSelections(ctx context.Context) error
	ClearAllVisited(ctx context.Context) error
}

type locator interface {
	LastKnownLocation() (domain.Point, bool)
}

// LegRouter fetches a road leg between two points.
type LegRouter interface {
	Route(ctx context.Context, from, to domain.Point) (*domain.RouteLeg, error)
}

type routeCommandKind int

const (
	planRoute routeCommandKind = iota
	resetRoute
)

type routeCommand struct {
	kind  routeCommandKind
	reply chan error
}

type legResult struct {
	generation uint64
	leg        *domain.RouteLeg
}

// RouteSequencer orders the selected geofences with a greedy nearest-neighbor
// heuristic and walks the user through them. All route state is owned by
// the Run goroutine; Plan and Reset are executed there.
type RouteSequencer struct {
	store      routeStore
	locator    locator
	router     LegRouter
	dispatcher EventDispatcher
	interval   time.Duration

	cmds     chan routeCommand
	legs     chan legResult
	snapshot atomic.Pointer[domain.RouteState]
	running  atomic.Bool

	state          domain.RouteState
	generation     uint64
	legInFlight    bool
	legCancel      context.CancelFunc
	completionSent bool
}

func NewRouteSequencer(store routeStore, loc locator, router LegRouter, dispatcher EventDispatcher, interval time.Duration) *RouteSequencer {
	if interval <= 0 {
		interval = DefaultRoutePollInterval
	}
	s := &RouteSequencer{
		store:      store,
		locator:    loc,
		router:     router,
		dispatcher: dispatcher,
		interval:   interval,
		cmds:       make(chan routeCommand),
		legs:       make(chan legResult, 4),
		state:      domain.RouteState{Status: domain.RouteIdle},
	}
	s.publish()
	return s
}

// Run drives the polling loop until ctx is done.
func (s *RouteSequencer) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)
	defer s.cancelLeg()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[Route] sequencer started, polling every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Route] sequencer stopped")
			return nil
		case cmd := <-s.cmds:
			cmd.reply <- s.handle(ctx, cmd.kind)
		case res := <-s.legs:
			s.applyLeg(res)
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				log.Printf("[Route] tick: %v", err)
			}
		}
	}
}

// Plan computes a new route over the selected geofences.
func (s *RouteSequencer) Plan(ctx context.Context) error {
	return s.send(ctx, planRoute)
}

// Reset clears selection and visited flags and drops the route.
func (s *RouteSequencer) Reset(ctx context.Context) error {
	return s.send(ctx, resetRoute)
}

// Snapshot returns a copy of the latest route state.
func (s *RouteSequencer) Snapshot() domain.RouteState {
	return s.snapshot.Load().Clone()
}

func (s *RouteSequencer) send(ctx context.Context, kind routeCommandKind) error {
	if !s.running.Load() {
		return ErrSequencerStopped
	}
	cmd := routeCommand{kind: kind, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RouteSequencer) handle(ctx context.Context, kind routeCommandKind) error {
	switch kind {
	case planRoute:
		return s.plan(ctx)
	case resetRoute:
		return s.reset(ctx)
	}
	return fmt.Errorf("unknown route command %d", kind)
}

func (s *RouteSequencer) plan(ctx context.Context) error {
	selected, err := s.store.GetSelectedGeofences(ctx)
	if err != nil {
		return fmt.Errorf("load selected geofences: %w", err)
	}

	s.newGeneration()
	s.completionSent = false
	if len(selected) == 0 {
		s.state = domain.RouteState{Status: domain.RouteIdle}
		s.publish()
		return nil
	}

	s.state = domain.RouteState{Status: domain.RoutePlanning}
	s.publish()

	ordered := selected
	loc, haveLoc := s.locator.LastKnownLocation()
	if haveLoc {
		ordered = SortNearestFirst(loc, selected)
	}

	s.state.OrderedStops = ordered
	next := firstUnvisited(ordered)
	if next < 0 {
		s.complete()
		return nil
	}
	s.state.Status = domain.RouteEnRoute
	s.state.CurrentStopIndex = next
	log.Printf("[Route] planned %d stops, heading to %q", len(ordered), ordered[next].Name)

	if haveLoc {
		s.state.DistanceToStop = geo.HaversineMeters(loc.Lat, loc.Lng, ordered[next].Center.Lat, ordered[next].Center.Lng)
		s.requestLeg(ctx, loc)
	}
	s.publish()
	return nil
}

func (s *RouteSequencer) reset(ctx context.Context) error {
	if err := s.store.ClearAllSelections(ctx); err != nil {
		return fmt.Errorf("clear selections: %w", err)
	}
	if err := s.store.ClearAllVisited(ctx); err != nil {
		return fmt.Errorf("clear visited: %w", err)
	}
	s.newGeneration()
	s.completionSent = false
	s.state = domain.RouteState{Status: domain.RouteIdle}
	s.publish()
	log.Printf("[Route] route reset")
	return nil
}

func (s *RouteSequencer) tick(ctx context.Context) error {
	if !s.active() {
		return nil
	}
	if err := s.resync(ctx); err != nil {
		return err
	}
	if !s.active() {
		return nil
	}
	s.state.Status = domain.RouteEnRoute

	loc, ok := s.locator.LastKnownLocation()
	if !ok {
		s.publish()
		return nil
	}

	stop, _ := s.state.CurrentStop()
	distance := geo.HaversineMeters(loc.Lat, loc.Lng, stop.Center.Lat, stop.Center.Lng)
	s.state.DistanceToStop = distance
	if distance <= stop.RadiusMeters {
		return s.arrive(ctx, loc)
	}

	if s.state.Leg == nil {
		s.requestLeg(ctx, loc)
	}
	s.guide(stop, distance)
	s.publish()
	return nil
}

// resync folds store changes made by other tasks into the cached route. A
// changed selection triggers a fresh plan; visited flags are taken from the
// store as-is.
func (s *RouteSequencer) resync(ctx context.Context) error {
	selected, err := s.store.GetSelectedGeofences(ctx)
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}
	if !sameStops(selected, s.state.OrderedStops) {
		log.Printf("[Route] selection changed, replanning")
		return s.plan(ctx)
	}

	visited := make(map[int64]bool, len(selected))
	for _, g := range selected {
		visited[g.ID] = g.IsVisited
	}
	for i := range s.state.OrderedStops {
		s.state.OrderedStops[i].IsVisited = visited[s.state.OrderedStops[i].ID]
	}

	next := firstUnvisited(s.state.OrderedStops)
	switch {
	case next < 0:
		s.complete()
	case next != s.state.CurrentStopIndex:
		s.newGeneration()
		s.state.CurrentStopIndex = next
	}
	return nil
}

func (s *RouteSequencer) arrive(ctx context.Context, loc domain.Point) error {
	idx := s.state.CurrentStopIndex
	stop := s.state.OrderedStops[idx]
	if err := s.store.UpdateVisited(ctx, stop.ID, true); err != nil {
		return fmt.Errorf("mark stop %d visited: %w", stop.ID, err)
	}
	s.state.OrderedStops[idx].IsVisited = true
	log.Printf("[Route] arrived at %q", stop.Name)

	s.newGeneration()
	next := firstUnvisited(s.state.OrderedStops)
	if next < 0 {
		s.complete()
		return nil
	}

	s.state.Status = domain.RouteArrived
	s.state.CurrentStopIndex = next
	target := s.state.OrderedStops[next]
	distance := geo.HaversineMeters(loc.Lat, loc.Lng, target.Center.Lat, target.Center.Lng)
	s.state.DistanceToStop = distance
	s.requestLeg(ctx, loc)
	s.guide(target, distance)
	s.publish()
	return nil
}

func (s *RouteSequencer) complete() {
	s.newGeneration()
	s.state.Status = domain.RouteCompleted
	s.state.DistanceToStop = 0
	total := len(s.state.OrderedStops)
	if !s.completionSent {
		s.completionSent = true
		log.Printf("[Route] all %d stops visited", total)
		s.dispatcher.Dispatch(domain.Event{
			Type:       domain.EventRouteCompleted,
			TotalStops: total,
			Message:    fmt.Sprintf("Route completed: %d stops visited", total),
			OccurredAt: time.Now(),
		})
	}
	s.publish()
}

func (s *RouteSequencer) guide(stop domain.GeofenceRegion, distance float64) {
	remaining := s.state.StopsRemaining()
	s.dispatcher.Dispatch(domain.Event{
		Type:           domain.EventRouteGuidance,
		Region:         &stop,
		DistanceMeters: distance,
		StopsRemaining: remaining,
		TotalStops:     len(s.state.OrderedStops),
		Message:        guidanceMessage(stop, distance, remaining),
		OccurredAt:     time.Now(),
	})
}

// requestLeg fetches the leg to the current stop in the background. The
// result is dropped if the target changes before it arrives.
func (s *RouteSequencer) requestLeg(ctx context.Context, from domain.Point) {
	stop, ok := s.state.CurrentStop()
	if !ok || s.legInFlight {
		return
	}
	legCtx, cancel := context.WithCancel(ctx)
	s.legCancel = cancel
	s.legInFlight = true
	gen := s.generation

	go func() {
		leg, err := s.router.Route(legCtx, from, stop.Center)
		if err != nil {
			log.Printf("[Route] leg to %q: %v, using straight line", stop.Name, err)
			leg = straightLeg(from, stop.Center)
		}
		select {
		case s.legs <- legResult{generation: gen, leg: leg}:
		case <-legCtx.Done():
		}
	}()
}

func (s *RouteSequencer) applyLeg(res legResult) {
	if res.generation != s.generation {
		return
	}
	s.legInFlight = false
	s.state.Leg = res.leg
	s.publish()
}

// newGeneration invalidates the current leg and any fetch still running.
func (s *RouteSequencer) newGeneration() {
	s.generation++
	s.cancelLeg()
	s.legInFlight = false
	s.state.Leg = nil
}

func (s *RouteSequencer) cancelLeg() {
	if s.legCancel != nil {
		s.legCancel()
		s.legCancel = nil
	}
}

func (s *RouteSequencer) active() bool {
	return s.state.Status != domain.RouteIdle && s.state.Status != domain.RouteCompleted
}

func (s *RouteSequencer) publish() {
	snap := s.state.Clone()
	s.snapshot.Store(&snap)
}

// SortNearestFirst orders stops by repeatedly taking the closest remaining
// one to the previous position, starting at start. Ties go to the stop that
// comes first in stops. It is a heuristic, not a shortest tour.
func SortNearestFirst(start domain.Point, stops []domain.GeofenceRegion) []domain.GeofenceRegion {
	remaining := append([]domain.GeofenceRegion(nil), stops...)
	ordered := make([]domain.GeofenceRegion, 0, len(stops))
	current := start

	for len(remaining) > 0 {
		best := 0
		bestDist := geo.HaversineMeters(current.Lat, current.Lng, remaining[0].Center.Lat, remaining[0].Center.Lng)
		for i := 1; i < len(remaining); i++ {
			d := geo.HaversineMeters(current.Lat, current.Lng, remaining[i].Center.Lat, remaining[i].Center.Lng)
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		next := remaining[best]
		ordered = append(ordered, next)
		remaining = append(remaining[:best], remaining[best+1:]...)
		current = next.Center
	}
	return ordered
}

func firstUnvisited(stops []domain.GeofenceRegion) int {
	for i, stop := range stops {
		if !stop.IsVisited {
			return i
		}
	}
	return -1
}

func sameStops(selected, ordered []domain.GeofenceRegion) bool {
	if len(selected) != len(ordered) {
		return false
	}
	ids := make(map[int64]struct{}, len(ordered))
	for _, stop := range ordered {
		ids[stop.ID] = struct{}{}
	}
	for _, g := range selected {
		if _, ok := ids[g.ID]; !ok {
			return false
		}
	}
	return true
}

func straightLeg(from, to domain.Point) *domain.RouteLeg {
	return &domain.RouteLeg{
		Polyline:       []domain.Point{from, to},
		DistanceMeters: geo.HaversineMeters(from.Lat, from.Lng, to.Lat, to.Lng),
		StraightLine:   true,
	}
}
