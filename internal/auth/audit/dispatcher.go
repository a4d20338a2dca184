package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher decouples event producers from the underlying sink with a
// bounded queue and a single worker. When the queue is full events are
// dropped rather than blocking the request path; drops are counted and
// logged.
type Dispatcher struct {
	sink Sink
	ch   chan Event

	mu      sync.Mutex
	dropped uint64
	closed  bool

	done chan struct{}
}

const defaultQueueSize = 256

func NewDispatcher(sink Sink, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		sink: sink,
		ch:   make(chan Event, queueSize),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.ch {
		// Detach from the request context; the request may be gone by the
		// time the event is written.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		d.sink.Record(ctx, ev)
		cancel()
	}
}

// Record enqueues the event, dropping it if the queue is full. The send
// happens under the mutex so Close cannot tear the channel down mid-send.
func (d *Dispatcher) Record(_ context.Context, ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	select {
	case d.ch <- ev:
	default:
		d.dropped++
		slog.Warn("audit queue full, event dropped",
			slog.String("event", ev.Type),
			slog.Uint64("dropped_total", d.dropped))
	}
}

// Dropped returns how many events have been discarded due to backpressure.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close drains the queue and stops the worker. Record calls after Close are
// no-ops.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.ch)
	<-d.done
}
