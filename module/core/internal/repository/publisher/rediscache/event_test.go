package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

type mockListClient struct {
	list    []string
	pushErr error
	trimmed [2]int64
}

func (m *mockListClient) LPush(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	if m.pushErr != nil {
		return redis.NewIntResult(0, m.pushErr)
	}
	for _, v := range values {
		m.list = append([]string{string(v.([]byte))}, m.list...)
	}
	return redis.NewIntResult(int64(len(m.list)), nil)
}

func (m *mockListClient) LTrim(_ context.Context, _ string, start, stop int64) *redis.StatusCmd {
	m.trimmed = [2]int64{start, stop}
	if stop+1 < int64(len(m.list)) {
		m.list = m.list[start : stop+1]
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *mockListClient) LRange(_ context.Context, _ string, start, stop int64) *redis.StringSliceCmd {
	end := stop + 1
	if end > int64(len(m.list)) {
		end = int64(len(m.list))
	}
	return redis.NewStringSliceResult(m.list[start:end], nil)
}

func TestPublish_CapsList(t *testing.T) {
	client := &mockListClient{}
	store := NewRecentEventStore(client, 2)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Publish(context.Background(), &domain.Event{ID: id, Type: domain.EventEntered, OccurredAt: time.Unix(1715003456, 0)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if client.trimmed != [2]int64{0, 1} {
		t.Errorf("expected trim to [0 1], got %v", client.trimmed)
	}
	if len(client.list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(client.list))
	}

	events, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].ID != "c" || events[1].ID != "b" {
		t.Fatalf("expected [c b], got %+v", events)
	}
}

func TestPublish_PushError(t *testing.T) {
	store := NewRecentEventStore(&mockListClient{pushErr: errors.New("connection refused")}, 10)
	if err := store.Publish(context.Background(), &domain.Event{ID: "a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecent_SkipsMalformed(t *testing.T) {
	good, _ := json.Marshal(domain.Event{ID: "ok", Type: domain.EventExited})
	client := &mockListClient{list: []string{"{not json", string(good)}}
	store := NewRecentEventStore(client, 10)

	events, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ok" {
		t.Fatalf("expected only the well-formed event, got %+v", events)
	}
}
