// Package eventbus implements a single-process publish/subscribe bus:
// per-publisher FIFO delivery per subscriber, bounded per-subscriber
// queues, drop-on-overflow with a counter. It sits underneath the
// transactional outbox (internal/messaging), not in place of it:
// subscribers that want at-least-once delivery to Kafka still go
// through the outbox — the bus is pure in-process notification fan-out.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Event is the minimal envelope delivered to subscribers.
type Event struct {
	Type    string
	Payload interface{}
}

type subscriber struct {
	ch      chan Event
	dropped uint64
}

// Bus is a bounded, per-subscriber fan-out publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	queueDepth  int
	logger      zerolog.Logger
}

// New builds a bus whose per-subscriber queue holds queueDepth events
// before Publish starts dropping for that subscriber.
func New(queueDepth int, logger zerolog.Logger) *Bus {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &Bus{
		subscribers: make(map[string][]*subscriber),
		queueDepth:  queueDepth,
		logger:      logger.With().Str("component", "eventbus").Logger(),
	}
}

// Subscribe registers a new listener for eventType and returns a
// receive-only channel of events and an unsubscribe function.
func (b *Bus) Subscribe(eventType string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.queueDepth)}

	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s == sub {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}
	return sub.ch, unsubscribe
}

// Publish fans e out to every subscriber of e.Type. Delivery is FIFO
// per subscriber from this publisher's perspective; subscribers
// themselves run concurrently with each other. A subscriber whose
// queue is full has the event dropped for it, counted, and logged —
// the bus never blocks the publisher.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subscribers[e.Type]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped++
			b.logger.Warn().
				Str("event_type", e.Type).
				Uint64("dropped_total", sub.dropped).
				Msg("subscriber queue full, event dropped")
		}
	}
}
