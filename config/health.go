package config

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type HealthChecker struct {
	db          *sql.DB
	storeDriver string
	amqpConn    *amqp.Connection
	mqtt        mqtt.Client
	redis       *redis.Client
}

func NewHealthChecker(db *sql.DB, storeDriver string, amqpConn *amqp.Connection, mqttClient mqtt.Client, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, storeDriver: storeDriver, amqpConn: amqpConn, mqtt: mqttClient, redis: redisClient}
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	ctx := c.Request.Context()
	deps := gin.H{}
	healthy := true

	check := func(name string, err error) {
		if err != nil {
			deps[name] = gin.H{"status": "down", "error": err.Error()}
			healthy = false
			return
		}
		deps[name] = gin.H{"status": "up"}
	}

	check(h.storeDriver, h.db.PingContext(ctx))
	check("rabbitmq", closedErr(h.amqpConn.IsClosed(), "connection closed"))
	check("mqtt", closedErr(!h.mqtt.IsConnected(), "not connected"))
	check("redis", h.pingRedis(ctx))

	status, overall := http.StatusOK, "healthy"
	if !healthy {
		status, overall = http.StatusServiceUnavailable, "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": deps,
	})
}

func (h *HealthChecker) pingRedis(ctx context.Context) error {
	return h.redis.Ping(ctx).Err()
}

func closedErr(down bool, reason string) error {
	if down {
		return errors.New(reason)
	}
	return nil
}
