package network

import (
	"context"
	"sync"

	"github.com/chireiden/shanghai/event"
)

// eventQueue is the unbounded FIFO between a connection, the handlers
// that re-queue events, and the worker. Push never blocks and never
// drops, so the per-connection event order is preserved even under a
// burst and a close request can always be delivered.
type eventQueue struct {
	mu    sync.Mutex
	items []*event.Event
	ready chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

// Push appends an event. It never blocks.
func (q *eventQueue) Push(ev *event.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop returns the next event, blocking until one arrives or ctx is
// cancelled. The second return is false only on cancellation.
func (q *eventQueue) Pop(ctx context.Context) (*event.Event, bool) {
	for {
		if ev, ok := q.TryPop(); ok {
			return ev, true
		}
		select {
		case <-q.ready:
			// re-check; the wakeup may be stale
		case <-ctx.Done():
			return nil, false
		}
	}
}

// TryPop returns the next event without blocking.
func (q *eventQueue) TryPop() (*event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev, true
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
