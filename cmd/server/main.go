package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/geofence-navigator/config"
	"github.com/nandanugg/geofence-navigator/module/core"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer mqttClient.Disconnect(250)

	redisClient, err := config.NewRedis(cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer func() { _ = redisClient.Close() }()

	coreModule, err := core.Build(ctx, core.Deps{
		DB:          db,
		StoreDriver: cfg.StoreDriver,
		AMQP:        amqpConn,
		MQTT:        mqttClient,
		Redis:       redisClient,
	}, core.Options{
		DeviceID:          cfg.DeviceID,
		OSRMBaseURL:       cfg.OSRMBaseURL,
		OSRMTimeout:       cfg.OSRMTimeout,
		OSRMRatePerSecond: cfg.OSRMRatePerSecond,
		LocationInterval:  cfg.LocationInterval,
		RoutePollInterval: cfg.RoutePollInterval,
		EventQueueSize:    cfg.EventQueueSize,
		RecentEventsLimit: cfg.RecentEventsLimit,
	})
	if err != nil {
		log.Fatalf("core module: %v", err)
	}

	seeds, err := config.LoadSeedGeofences(cfg.GeofenceSeedFile)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if n, err := coreModule.SeedGeofences(ctx, seeds); err != nil {
		log.Fatalf("seed: %v", err)
	} else if n > 0 {
		log.Printf("seeded %d geofences from %s", n, cfg.GeofenceSeedFile)
	}

	r := gin.Default()

	health := config.NewHealthChecker(db, cfg.StoreDriver, amqpConn, mqttClient, redisClient)
	health.Register(r)

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r}
	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	if err := coreModule.Run(ctx); err != nil {
		log.Printf("core module: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	log.Println("shutting down")
}
