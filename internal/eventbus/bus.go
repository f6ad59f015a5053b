package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/splix/schema"
)

// DefaultCapacity is the bus capacity used when none is configured.
const DefaultCapacity = schema.DefaultEventCapacity

// Bus is a bounded FIFO of engine events with a single consumer.
// The queue closes once the last registered producer releases it.
type Bus struct {
	ch  chan schema.Event
	log pslog.Logger

	mu        sync.Mutex
	producers int
	closed    bool
}

// New constructs a Bus holding at most capacity pending events.
func New(capacity int, logger pslog.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		ch:  make(chan schema.Event, capacity),
		log: logger,
	}
}

// Producer registers a new producer. Every producer must be closed; the
// event stream ends after the last one is.
func (b *Bus) Producer(name string) (*Producer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, schema.NewError(schema.ErrorChannel, "register producer", schema.ErrBusClosed)
	}
	b.producers++
	b.log.Trace("eventbus producer registered", "producer", name, "producers", b.producers)
	return &Producer{bus: b, name: name}, nil
}

// Events returns the consumer side of the bus.
func (b *Bus) Events() <-chan schema.Event {
	return b.ch
}

// Len reports the number of queued events.
func (b *Bus) Len() int { return len(b.ch) }

// Cap reports the bus capacity.
func (b *Bus) Cap() int { return cap(b.ch) }

// Closed reports whether the last producer has released the bus.
func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Bus) release(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.producers--
	b.log.Trace("eventbus producer released", "producer", name, "producers", b.producers)
	if b.producers == 0 && !b.closed {
		b.closed = true
		close(b.ch)
		b.log.Debug("eventbus closed")
	}
}

// Producer is one sending handle onto a Bus. A Producer must not be
// closed while one of its own Publish calls is in flight.
type Producer struct {
	bus    *Bus
	name   string
	closed atomic.Bool
	once   sync.Once
}

// Publish enqueues ev, blocking while the bus is full.
func (p *Producer) Publish(ctx context.Context, ev schema.Event) error {
	if p == nil || p.closed.Load() {
		return schema.NewError(schema.ErrorChannel, "publish", schema.ErrBusClosed)
	}
	select {
	case p.bus.ch <- ev:
		return nil
	default:
	}
	select {
	case p.bus.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sink exposes the raw send side for callers that must select on it
// together with other channels. It is nil once the producer is closed.
func (p *Producer) Sink() chan<- schema.Event {
	if p == nil || p.closed.Load() {
		return nil
	}
	return p.bus.ch
}

// Close releases the producer. It is safe to call more than once.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	p.once.Do(func() {
		p.closed.Store(true)
		p.bus.release(p.name)
	})
	return nil
}
