package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// HandlerFunc processes one event. A nil ResultSet means "nothing to
// report"; a returned error is logged and isolated, never propagated to
// sibling handlers or later tiers.
type HandlerFunc func(ctx context.Context, ev *Event) (*ResultSet, error)

// Handler is one registration: a named callback bound to an event name at
// a priority. Async handlers within the same tier run concurrently with
// each other; the tier as a whole is still awaited before the next one.
type Handler struct {
	Name     string
	Event    string
	Priority int
	Async    bool
	Fn       HandlerFunc
}

// maxDispatchDepth bounds recursive insert-event dispatch so a handler
// that keeps inserting events cannot recurse unboundedly.
const maxDispatchDepth = 16

type tier struct {
	priority int
	handlers []Handler // insertion order
}

// Dispatcher routes events to registered handlers, tier by tier.
// Registration is expected at startup or from the worker goroutine that
// also dispatches; see the concurrency notes in the package docs.
type Dispatcher struct {
	log *zap.SugaredLogger

	mu    sync.Mutex
	tiers map[string][]*tier // event name -> tiers sorted descending
}

// NewDispatcher returns an empty dispatcher logging through log.
func NewDispatcher(log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		log:   log,
		tiers: make(map[string][]*tier),
	}
}

// Register adds a handler. Registering the same handler name twice for
// one event is an error.
func (d *Dispatcher) Register(h Handler) error {
	if h.Fn == nil {
		return fmt.Errorf("event: handler %q for %q has no function", h.Name, h.Event)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	tiers := d.tiers[h.Event]
	for _, t := range tiers {
		for _, existing := range t.handlers {
			if existing.Name == h.Name {
				return fmt.Errorf("event: handler %q already registered for %q", h.Name, h.Event)
			}
		}
	}

	idx := sort.Search(len(tiers), func(i int) bool {
		return tiers[i].priority <= h.Priority
	})
	if idx < len(tiers) && tiers[idx].priority == h.Priority {
		tiers[idx].handlers = append(tiers[idx].handlers, h)
	} else {
		tiers = append(tiers, nil)
		copy(tiers[idx+1:], tiers[idx:])
		tiers[idx] = &tier{priority: h.Priority, handlers: []Handler{h}}
		d.tiers[h.Event] = tiers
	}
	return nil
}

// Unregister removes a handler by event and name. It is an error if no
// such handler is registered.
func (d *Dispatcher) Unregister(eventName, handlerName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tiers := d.tiers[eventName]
	for ti, t := range tiers {
		for hi, h := range t.handlers {
			if h.Name != handlerName {
				continue
			}
			t.handlers = append(t.handlers[:hi], t.handlers[hi+1:]...)
			if len(t.handlers) == 0 {
				d.tiers[eventName] = append(tiers[:ti], tiers[ti+1:]...)
			}
			return nil
		}
	}
	return fmt.Errorf("event: no handler %q registered for %q", handlerName, eventName)
}

// snapshot copies the tier list so dispatch never races registry mutation.
func (d *Dispatcher) snapshot(eventName string) []*tier {
	d.mu.Lock()
	defer d.mu.Unlock()
	tiers := d.tiers[eventName]
	out := make([]*tier, len(tiers))
	for i, t := range tiers {
		handlers := make([]Handler, len(t.handlers))
		copy(handlers, t.handlers)
		out[i] = &tier{priority: t.priority, handlers: handlers}
	}
	return out
}

// Dispatch runs every tier for the event, highest priority first. The
// returned ResultSet has its InsertEvents cleared: those were already
// dispatched recursively and merged. AppendEvents and Schedule entries
// are the caller's responsibility.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) *ResultSet {
	return d.dispatch(ctx, ev, 0)
}

func (d *Dispatcher) dispatch(ctx context.Context, ev *Event, depth int) *ResultSet {
	result := &ResultSet{}
	if depth > maxDispatchDepth {
		d.log.Warnw("insert event recursion limit reached, dropping event",
			"event", ev.Name, "depth", depth)
		return result
	}

	for _, t := range d.snapshot(ev.Name) {
		tierResult := &ResultSet{}
		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, h := range t.handlers {
			if !h.Async {
				tierResult.Merge(d.invoke(ctx, h, ev))
				continue
			}
			wg.Add(1)
			go func(h Handler) {
				defer wg.Done()
				res := d.invoke(ctx, h, ev)
				mu.Lock()
				tierResult.Merge(res)
				mu.Unlock()
			}(h)
		}
		// Tier barrier: no lower tier observes state this tier has not
		// finished mutating.
		wg.Wait()

		result.Merge(tierResult)
		if tierResult.Eat {
			break
		}
	}

	inserts := result.InsertEvents
	result.InsertEvents = nil
	for _, inserted := range inserts {
		result.Merge(d.dispatch(ctx, inserted, depth+1))
	}
	return result
}

// invoke runs one handler with panic containment. A panicking or failing
// handler is logged with its identity and does not affect siblings.
func (d *Dispatcher) invoke(ctx context.Context, h Handler, ev *Event) (res *ResultSet) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			d.log.Errorw("handler panicked",
				"handler", h.Name,
				"event", ev.Name,
				"priority", h.Priority,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	res, err := h.Fn(ctx, ev)
	if err != nil {
		d.log.Errorw("handler failed",
			"handler", h.Name,
			"event", ev.Name,
			"priority", h.Priority,
			"error", err,
		)
	}
	return res
}
