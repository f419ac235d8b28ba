package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/publisher"
)

var (
	_ publisher.EventPublisher = (*RecentEventStore)(nil)
	_ publisher.RecentEvents   = (*RecentEventStore)(nil)
)

const recentEventsKey = "geofence:events:recent"

type listClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RecentEventStore keeps the newest events in a capped Redis list.
type RecentEventStore struct {
	client listClient
	limit  int64
}

func NewRecentEventStore(client listClient, limit int64) *RecentEventStore {
	if limit <= 0 {
		limit = 100
	}
	return &RecentEventStore{client: client, limit: limit}
}

func (s *RecentEventStore) Publish(ctx context.Context, e *domain.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.LPush(ctx, recentEventsKey, body).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	if err := s.client.LTrim(ctx, recentEventsKey, 0, s.limit-1).Err(); err != nil {
		return fmt.Errorf("redis ltrim: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *RecentEventStore) Recent(ctx context.Context, limit int64) ([]domain.Event, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	raw, err := s.client.LRange(ctx, recentEventsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	events := make([]domain.Event, 0, len(raw))
	for _, item := range raw {
		var e domain.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			log.Printf("[RecentEvents] skipping malformed entry: %v", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
