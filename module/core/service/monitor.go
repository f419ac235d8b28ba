package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

// LocationProvider delivers the device position.
type LocationProvider interface {
	LastKnownLocation() (domain.Point, bool)
	Subscribe(interval time.Duration, fn func(domain.LocationSample)) error
	Unsubscribe() error
}

// EventDispatcher hands events to the host layer without blocking.
type EventDispatcher interface {
	Dispatch(e domain.Event)
}

type snapshotStore interface {
	GetAllGeofencesSnapshot(ctx context.Context) ([]domain.GeofenceRegion, error)
}

type transitionRecorder interface {
	OnEntered(ctx context.Context, region domain.GeofenceRegion, now time.Time) error
	OnExited(ctx context.Context, region domain.GeofenceRegion, now time.Time) error
}

const (
	defaultSampleQueue = 16
	sampleTimeout      = 10 * time.Second
)

// Monitor is the always-on pipeline: location sample, proximity check,
// visit bookkeeping, dispatch. Samples are handled one at a time.
type Monitor struct {
	engine     *ProximityEngine
	store      snapshotStore
	recorder   transitionRecorder
	dispatcher EventDispatcher
	provider   LocationProvider
	interval   time.Duration
	queueSize  int
	now        func() time.Time

	storeDown bool
}

func NewMonitor(engine *ProximityEngine, store snapshotStore, recorder transitionRecorder, dispatcher EventDispatcher, provider LocationProvider, interval time.Duration) *Monitor {
	return &Monitor{
		engine:     engine,
		store:      store,
		recorder:   recorder,
		dispatcher: dispatcher,
		provider:   provider,
		interval:   interval,
		queueSize:  defaultSampleQueue,
		now:        time.Now,
	}
}

// Run subscribes to the provider and processes samples until ctx is done.
// On cancellation the subscription is dropped first and a sample already
// being processed runs to completion.
func (m *Monitor) Run(ctx context.Context) error {
	samples := make(chan domain.LocationSample, m.queueSize)
	err := m.provider.Subscribe(m.interval, func(s domain.LocationSample) {
		if dropped := offerDropOldest(samples, s); dropped {
			log.Printf("[Monitor] sample queue full, dropped oldest sample")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe location: %w", err)
	}
	log.Printf("[Monitor] started, interval %s", m.interval)

	for {
		select {
		case <-ctx.Done():
			if err := m.provider.Unsubscribe(); err != nil {
				log.Printf("[Monitor] unsubscribe: %v", err)
			}
			log.Printf("[Monitor] stopped")
			return nil
		case s := <-samples:
			_ = m.Process(context.WithoutCancel(ctx), s)
		}
	}
}

// Process runs one sample through the pipeline.
func (m *Monitor) Process(ctx context.Context, s domain.LocationSample) error {
	ctx, cancel := context.WithTimeout(ctx, sampleTimeout)
	defer cancel()

	geofences, err := m.store.GetAllGeofencesSnapshot(ctx)
	if err != nil {
		m.storeFailed(err)
		return err
	}

	transitions, err := m.engine.OnLocationSample(s.Point, geofences)
	if err != nil {
		log.Printf("[Monitor] skipping sample: %v", err)
		return err
	}

	now := m.now()
	var firstErr error
	for _, tr := range transitions {
		region := tr.Region
		if err := m.record(ctx, tr, now); err != nil {
			m.storeFailed(err)
			if firstErr == nil {
				firstErr = err
			}
		}
		m.dispatcher.Dispatch(domain.Event{
			Type:       tr.Type,
			Region:     &region,
			Message:    transitionMessage(tr.Type, region),
			OccurredAt: now,
		})
	}
	if firstErr == nil {
		m.storeDown = false
	}
	return firstErr
}

func (m *Monitor) record(ctx context.Context, tr domain.TransitionEvent, now time.Time) error {
	if tr.Type == domain.EventEntered {
		return m.recorder.OnEntered(ctx, tr.Region, now)
	}
	return m.recorder.OnExited(ctx, tr.Region, now)
}

// storeFailed logs every failure but notifies the host once per outage.
func (m *Monitor) storeFailed(err error) {
	log.Printf("[Monitor] store error: %v", err)
	if m.storeDown {
		return
	}
	m.storeDown = true
	m.dispatcher.Dispatch(domain.Event{
		Type:       domain.EventStoreUnavailable,
		Message:    "Visit history could not be saved",
		OccurredAt: m.now(),
	})
}

// offerDropOldest enqueues v, evicting the oldest entry when ch is full.
func offerDropOldest[T any](ch chan T, v T) (dropped bool) {
	for {
		select {
		case ch <- v:
			return dropped
		default:
		}
		select {
		case <-ch:
			dropped = true
		default:
		}
	}
}
