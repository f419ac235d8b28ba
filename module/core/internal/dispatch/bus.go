// Package dispatch delivers core events to the host layer: message brokers,
// caches and in-process stream subscribers.
package dispatch

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

const sinkTimeout = 5 * time.Second

type Sink interface {
	Publish(ctx context.Context, e *domain.Event) error
}

type namedSink struct {
	name string
	sink Sink
}

// Bus is a bounded event queue with a single delivery goroutine. When the
// queue is full the oldest pending event is dropped so producers never
// block. Delivery order matches Dispatch order.
type Bus struct {
	queue   chan domain.Event
	dropped atomic.Uint64

	mu     sync.Mutex
	sinks  []namedSink
	subs   map[int]chan domain.Event
	nextID int
}

func NewBus(size int) *Bus {
	if size <= 0 {
		size = 1
	}
	return &Bus{
		queue: make(chan domain.Event, size),
		subs:  make(map[int]chan domain.Event),
	}
}

func (b *Bus) AddSink(name string, s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, namedSink{name: name, sink: s})
}

// Dispatch stamps e with an id and time if missing and enqueues it.
func (b *Bus) Dispatch(e domain.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if offer(b.queue, e) {
		n := b.dropped.Add(1)
		log.Printf("[Dispatch] queue full, dropped oldest event (%d dropped so far)", n)
	}
}

// Dropped reports how many events were evicted from the queue.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribe registers an in-process observer. Slow observers lose their
// oldest events. The returned func unregisters and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan domain.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Run delivers queued events until ctx is done.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.queue:
			b.deliver(ctx, &e)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, e *domain.Event) {
	b.mu.Lock()
	sinks := append([]namedSink(nil), b.sinks...)
	for _, ch := range b.subs {
		offer(ch, *e)
	}
	b.mu.Unlock()

	for _, s := range sinks {
		sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := s.sink.Publish(sctx, e); err != nil {
			log.Printf("[Dispatch] sink %s: %s %s: %v", s.name, e.Type, e.ID, err)
		}
		cancel()
	}
}

func offer(ch chan domain.Event, e domain.Event) (dropped bool) {
	for {
		select {
		case ch <- e:
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
