package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/publisher"
)

var _ publisher.EventPublisher = (*EventPublisher)(nil)

const (
	ExchangeName = "geofence.events"
	QueueName    = "geofence_transitions"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type EventPublisher struct {
	ch channel
}

func NewEventPublisher(conn *amqp.Connection) (*EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &EventPublisher{ch: ch}, nil
}

type eventMessage struct {
	ID             string           `json:"id"`
	Event          domain.EventType `json:"event"`
	Geofence       *geofenceMessage `json:"geofence,omitempty"`
	DistanceMeters float64          `json:"distance_meters,omitempty"`
	StopsRemaining int              `json:"stops_remaining,omitempty"`
	TotalStops     int              `json:"total_stops,omitempty"`
	Message        string           `json:"message,omitempty"`
	Timestamp      int64            `json:"timestamp"`
}

type geofenceMessage struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

func toEventMessage(e *domain.Event) eventMessage {
	msg := eventMessage{
		ID:             e.ID,
		Event:          e.Type,
		DistanceMeters: e.DistanceMeters,
		StopsRemaining: e.StopsRemaining,
		TotalStops:     e.TotalStops,
		Message:        e.Message,
		Timestamp:      e.OccurredAt.Unix(),
	}
	if e.Region != nil {
		msg.Geofence = &geofenceMessage{
			ID:           e.Region.ID,
			Name:         e.Region.Name,
			Latitude:     e.Region.Center.Lat,
			Longitude:    e.Region.Center.Lng,
			RadiusMeters: e.Region.RadiusMeters,
		}
	}
	return msg
}

func (p *EventPublisher) Publish(ctx context.Context, e *domain.Event) error {
	body, err := json.Marshal(toEventMessage(e))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    e.OccurredAt,
		Body:         body,
	})
}
