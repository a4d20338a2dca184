package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Record(_ context.Context, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureSink) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, 16)

	for _, typ := range []string{EventLogin, EventRefresh, EventLogout} {
		d.Record(context.Background(), Event{Type: typ, At: time.Now()})
	}
	d.Close()

	got := sink.all()
	require.Len(t, got, 3)
	require.Equal(t, EventLogin, got[0].Type)
	require.Equal(t, EventRefresh, got[1].Type)
	require.Equal(t, EventLogout, got[2].Type)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	d := NewDispatcher(sink, 1)

	// First event occupies the worker, second fills the queue, the rest drop.
	for range 5 {
		d.Record(context.Background(), Event{Type: EventLogin, At: time.Now()})
	}

	require.Eventually(t, func() bool { return d.Dropped() > 0 }, time.Second, 10*time.Millisecond)

	close(block)
	d.Close()
}

func TestDispatcher_RecordAfterClose(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, 4)
	d.Close()

	// Must not panic or deliver.
	d.Record(context.Background(), Event{Type: EventLogin, At: time.Now()})
	require.Empty(t, sink.all())
}

type blockingSink struct {
	release chan struct{}
}

func (b *blockingSink) Record(_ context.Context, _ Event) {
	<-b.release
}
