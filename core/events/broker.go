package events

import (
	"context"
	"sync"

	"mailchain/core/types"
)

const defaultSubscriberBuffer = 64

// Broker distributes committed events to live subscribers such as websocket
// streams. Slow subscribers lose events rather than blocking the runtime.
type Broker struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]chan *types.Event
	dropped uint64
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]chan *types.Event)}
}

// Emit implements the Emitter interface.
func (b *Broker) Emit(evt Event) {
	payload := Payload(evt)
	if payload == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- payload.Clone():
		default:
			b.dropped++
		}
	}
}

// Subscribe registers a new listener. The returned channel is closed once ctx
// is cancelled.
func (b *Broker) Subscribe(ctx context.Context, buffer int) <-chan *types.Event {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan *types.Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

// Subscribers reports the number of active listeners.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (b *Broker) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
