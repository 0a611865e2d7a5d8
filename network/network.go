package network

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/chireiden/shanghai/config"
	"github.com/chireiden/shanghai/event"
	"github.com/chireiden/shanghai/irc"
)

const (
	backoffStep = 10 * time.Second
	backoffMax  = 5 * time.Minute

	crashWindow    = 10 * time.Second
	crashThreshold = 5

	pingInterval = 30 * time.Second
	pongTimeout  = 30 * time.Second
)

// Network supervises one IRC network: it rotates through the configured
// servers, pairs a Connection with a Worker per attempt, restarts crashed
// workers up to the crash loop threshold, and reconnects with a linear
// backoff after unplanned disconnects.
type Network struct {
	name    string
	cfg     *config.NetworkConfig
	log     *zap.SugaredLogger
	disp    *event.Dispatcher
	options *irc.Options
	clk     clock.Clock
	metrics *Metrics
	state   *tracker

	mu         sync.Mutex
	nickname   string
	connected  bool
	registered bool
	stopped    bool
	conn       *Connection
	connCancel context.CancelFunc
	queue      *eventQueue
	pongCh     chan string
	latency    time.Duration

	serverIdx int
	attempt   int
	failures  []time.Time

	stopOnce sync.Once
	stopCh   chan struct{}

	tasks sync.WaitGroup
}

// New builds an idle supervisor for one network. reg may be nil, which
// leaves the metrics unregistered.
func New(cfg *config.NetworkConfig, log *zap.SugaredLogger, reg prometheus.Registerer) *Network {
	n := &Network{
		name:    cfg.Name,
		cfg:     cfg,
		log:     log,
		clk:     clock.New(),
		metrics: NewMetrics(reg, cfg.Name),
		stopCh:  make(chan struct{}),
	}
	n.disp = event.NewDispatcher(log)
	n.options = irc.NewOptions(log.Warnf)
	n.state = newTracker(n)
	n.registerCoreHandlers()
	n.state.register(n.disp)
	return n
}

// Name returns the configured network name.
func (n *Network) Name() string { return n.name }

// Dispatcher exposes the network's event dispatcher for plugin handlers.
func (n *Network) Dispatcher() *event.Dispatcher { return n.disp }

// Options returns the live ISUPPORT option view.
func (n *Network) Options() *irc.Options { return n.options }

// Nickname returns the nickname currently in effect.
func (n *Network) Nickname() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nickname
}

// Latency returns the last keepalive round trip time, zero before the
// first measurement.
func (n *Network) Latency() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latency
}

// Registered reports whether registration with the server completed.
func (n *Network) Registered() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registered
}

// Context returns the capability handle handed to plugins.
func (n *Network) Context() *Context { return &Context{net: n} }

// Run drives the network until it is stopped or ctx is cancelled.
func (n *Network) Run(ctx context.Context) error {
	defer n.tasks.Wait()
	for {
		if n.isStopped() || ctx.Err() != nil {
			return nil
		}
		server := n.nextServer()
		n.prepareAttempt()

		connCtx, cancel := context.WithCancel(ctx)
		conn := NewConnection(server, n.cfg.Proxy, n.currentQueue(), n.log, n.metrics)
		n.mu.Lock()
		n.conn = conn
		n.connCancel = cancel
		queue := n.queue
		n.mu.Unlock()

		connDone := make(chan struct{})
		go func() {
			conn.Run(connCtx)
			close(connDone)
		}()

		n.runWorker(connCtx)

		cancel()
		n.drain(connCtx, queue, connDone)

		if n.isStopped() || ctx.Err() != nil {
			return nil
		}

		n.mu.Lock()
		n.attempt++
		attempt := n.attempt
		n.mu.Unlock()
		n.metrics.Reconnects.Inc()

		delay := time.Duration(attempt) * backoffStep
		if delay > backoffMax {
			delay = backoffMax
		}
		n.log.Infof("reconnecting in %s (attempt %d)", delay, attempt)
		select {
		case <-n.clk.After(delay):
		case <-n.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop asks the network to close down. With a live connection the close
// request travels through the queue so handlers may veto it; otherwise
// the network stops immediately.
func (n *Network) Stop(quitmsg string) {
	n.mu.Lock()
	queue := n.queue
	connected := n.connected
	n.mu.Unlock()
	if queue != nil && connected {
		n.enqueue(event.New(event.CloseRequest, "quitmsg", quitmsg))
		return
	}
	n.forceClose()
}

func (n *Network) isStopped() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopped
}

func (n *Network) markStopped() {
	n.mu.Lock()
	n.stopped = true
	n.mu.Unlock()
	n.stopOnce.Do(func() { close(n.stopCh) })
}

func (n *Network) forceClose() {
	n.markStopped()
	n.dropConnection()
}

// dropConnection cancels the current attempt; the connection closes its
// transport and emits its final disconnect on the way out.
func (n *Network) dropConnection() {
	n.mu.Lock()
	cancel := n.connCancel
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (n *Network) nextServer() config.Server {
	server := n.cfg.Servers[n.serverIdx%len(n.cfg.Servers)]
	n.serverIdx++
	return server
}

func (n *Network) prepareAttempt() {
	n.mu.Lock()
	n.connected = false
	n.registered = false
	n.nickname = n.cfg.Nick
	n.queue = newEventQueue()
	n.pongCh = make(chan string, 1)
	n.latency = 0
	n.mu.Unlock()
	n.state.clear()
}

func (n *Network) currentQueue() *eventQueue {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.queue
}

// runWorker processes the queue until the disconnect event or
// cancellation, restarting after crashes below the loop threshold.
func (n *Network) runWorker(ctx context.Context) {
	for {
		err := n.workerPass(ctx)
		if err == nil {
			return
		}
		n.log.Errorw("event worker crashed", "error", err)
		n.metrics.WorkerRestarts.Inc()
		if n.recordFailure() {
			n.metrics.CrashLoops.Inc()
			n.log.Errorw("event worker is crash looping, closing this network",
				"failures", crashThreshold, "window", crashWindow)
			n.forceClose()
			return
		}
		n.log.Warnw("restarting event worker")
	}
}

func (n *Network) workerPass(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v\n%s", r, debug.Stack())
		}
	}()
	queue := n.currentQueue()
	for {
		ev, ok := queue.Pop(ctx)
		if !ok {
			return nil
		}
		n.handleEvent(ctx, ev)
		if ev.Name == event.Disconnected {
			return nil
		}
	}
}

// recordFailure adds a crash timestamp and reports whether the rolling
// window now holds enough failures to call it a crash loop.
func (n *Network) recordFailure() bool {
	now := n.clk.Now()
	cutoff := now.Add(-crashWindow)
	kept := n.failures[:0]
	for _, t := range n.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	n.failures = append(kept, now)
	return len(n.failures) >= crashThreshold
}

// drain consumes whatever is still queued after the worker is gone, so
// that the connection's final disconnect is always processed.
func (n *Network) drain(ctx context.Context, queue *eventQueue, connDone <-chan struct{}) {
	// once the connection goroutine has exited, everything it will ever
	// emit is already queued
	<-connDone
	for {
		ev, ok := queue.TryPop()
		if !ok {
			return
		}
		n.handleEvent(ctx, ev)
	}
}

func (n *Network) handleEvent(ctx context.Context, ev *event.Event) {
	res := n.disp.Dispatch(ctx, ev)
	for _, task := range res.Schedule {
		n.startTask(ctx, task)
	}
	for _, appended := range res.AppendEvents {
		n.enqueue(appended)
	}
}

func (n *Network) startTask(ctx context.Context, task event.Task) {
	n.tasks.Add(1)
	go func() {
		defer n.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				n.log.Errorw("scheduled task panicked",
					"panic", r, "stack", string(debug.Stack()))
			}
		}()
		task(ctx)
	}()
}

// enqueue hands an event to the worker. The queue is unbounded, so
// re-queued message events and close requests are never lost.
func (n *Network) enqueue(ev *event.Event) {
	queue := n.currentQueue()
	if queue == nil {
		return
	}
	queue.Push(ev)
}

// SendLine encodes one protocol line and writes it to the connection.
func (n *Network) SendLine(line string) {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		n.log.Warnw("dropping line, not connected", "line", line)
		return
	}
	n.log.Debugf("> %s", line)
	if err := conn.WriteLine(n.cfg.EncodeLine(line)); err != nil {
		n.log.Warnw("write failed", "error", err)
		return
	}
	n.metrics.LinesSent.Inc()
}

// SendCmd serializes a command with its parameters and sends it.
func (n *Network) SendCmd(cmd string, params ...string) {
	msg := &irc.Message{Command: cmd, Params: params}
	n.SendLine(msg.Line())
}

// SendMsg sends a PRIVMSG to a channel or nick.
func (n *Network) SendMsg(target, text string) { n.SendCmd("PRIVMSG", target, text) }

// SendNotice sends a NOTICE to a channel or nick.
func (n *Network) SendNotice(target, text string) { n.SendCmd("NOTICE", target, text) }

func (n *Network) setLatency(d time.Duration) {
	n.mu.Lock()
	n.latency = d
	n.mu.Unlock()
	n.metrics.Latency.Set(d.Seconds())
}
