package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/internal/dispatch"
	handler "github.com/nandanugg/geofence-navigator/module/core/internal/handler/http"
	"github.com/nandanugg/geofence-navigator/module/core/internal/handler/subscriber"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/database/sqlstore"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/publisher/rediscache"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/routing/osrm"
	"github.com/nandanugg/geofence-navigator/module/core/service"
)

// Deps are the connections the core module runs on.
type Deps struct {
	DB          *sql.DB
	StoreDriver string
	AMQP        *amqp.Connection
	MQTT        mqtt.Client
	Redis       *redis.Client
}

type Options struct {
	DeviceID          string
	OSRMBaseURL       string
	OSRMTimeout       time.Duration
	OSRMRatePerSecond float64
	LocationInterval  time.Duration
	RoutePollInterval time.Duration
	EventQueueSize    int
	RecentEventsLimit int
}

type Module struct {
	GeofenceSvc *service.GeofenceService
	Sequencer   *service.RouteSequencer

	bus      *dispatch.Bus
	monitor  *service.Monitor
	handlers []registrar
}

type registrar interface {
	Register(r *gin.RouterGroup)
}

// Build migrates the store and wires every component of the core module.
func Build(ctx context.Context, deps Deps, opts Options) (*Module, error) {
	dialect, err := sqlstore.ParseDialect(deps.StoreDriver)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, deps.DB, dialect); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	geofenceRepo := sqlstore.NewGeofenceRepo(deps.DB, dialect)
	visitRepo := sqlstore.NewVisitRepo(deps.DB, dialect)
	geofenceSvc := service.NewGeofenceService(geofenceRepo, visitRepo)

	eventPub, err := rabbitmq.NewEventPublisher(deps.AMQP)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}
	recent := rediscache.NewRecentEventStore(deps.Redis, int64(opts.RecentEventsLimit))

	bus := dispatch.NewBus(opts.EventQueueSize)
	bus.AddSink("rabbitmq", eventPub)
	bus.AddSink("redis", recent)

	provider := subscriber.NewLocationProvider(deps.MQTT, opts.DeviceID)
	router := osrm.NewClient(opts.OSRMBaseURL, opts.OSRMTimeout, opts.OSRMRatePerSecond)

	monitor := service.NewMonitor(
		service.NewProximityEngine(),
		geofenceSvc,
		service.NewVisitRecorder(geofenceSvc),
		bus,
		provider,
		opts.LocationInterval,
	)
	sequencer := service.NewRouteSequencer(geofenceSvc, provider, router, bus, opts.RoutePollInterval)

	return &Module{
		GeofenceSvc: geofenceSvc,
		Sequencer:   sequencer,
		bus:         bus,
		monitor:     monitor,
		handlers: []registrar{
			handler.NewGeofenceHandler(geofenceSvc),
			handler.NewRouteHandler(sequencer),
			handler.NewEventHandler(recent, bus),
		},
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	for _, h := range m.handlers {
		h.Register(r)
	}
}

// SeedGeofences adds regions when the store holds none yet.
func (m *Module) SeedGeofences(ctx context.Context, seeds []domain.GeofenceRegion) (int, error) {
	existing, err := m.GeofenceSvc.GetAllGeofencesSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, g := range seeds {
		if _, err := m.GeofenceSvc.AddGeofence(ctx, g.Name, g.Center, g.RadiusMeters); err != nil {
			return i, fmt.Errorf("seed %q: %w", g.Name, err)
		}
	}
	return len(seeds), nil
}

// Run drives the event bus, the monitor and the route sequencer until ctx
// is done or one of them fails.
func (m *Module) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.bus.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return m.monitor.Run(ctx)
	})
	g.Go(func() error {
		return m.Sequencer.Run(ctx)
	})
	return g.Wait()
}
