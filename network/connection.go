// Package network contains the per-network runtime: the connection owning
// one transport, the supervisor that keeps a network alive across
// reconnects, and the channel/membership tracker fed by dispatched
// protocol events.
package network

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
	"h12.io/socks"

	"github.com/chireiden/shanghai/config"
	"github.com/chireiden/shanghai/event"
)

const dialTimeout = 1 * time.Minute

// Connection owns one transport for one server endpoint. Run connects,
// emits exactly one "connected" event, then one "raw_line" event per
// received line until EOF, reset or cancellation; on every exit path it
// closes the transport and emits exactly one "disconnected" event.
// A fresh Connection is built for every reconnect attempt.
type Connection struct {
	server  config.Server
	proxy   *config.ProxyConfig
	queue   *eventQueue
	log     *zap.SugaredLogger
	metrics *Metrics

	mu   sync.Mutex
	conn net.Conn
}

// NewConnection builds a connection for a single Run call.
func NewConnection(server config.Server, proxyConf *config.ProxyConfig,
	queue *eventQueue, log *zap.SugaredLogger, metrics *Metrics) *Connection {
	return &Connection{
		server:  server,
		proxy:   proxyConf,
		queue:   queue,
		log:     log,
		metrics: metrics,
	}
}

type socks4Dialer struct {
	dialFunc func(string, string) (net.Conn, error)
}

func (d *socks4Dialer) Dial(network, addr string) (net.Conn, error) {
	return d.dialFunc(network, addr)
}

func (c *Connection) dialer() (proxy.Dialer, error) {
	if c.proxy == nil {
		return &net.Dialer{}, nil
	}
	switch c.proxy.Type {
	case "socks4":
		dial := socks.Dial(fmt.Sprintf("socks4://%s:%s@%s",
			c.proxy.Username, c.proxy.Password, c.proxy.Address))
		return &socks4Dialer{dialFunc: dial}, nil
	case "socks5":
		var auth *proxy.Auth
		if c.proxy.Username != "" || c.proxy.Password != "" {
			auth = &proxy.Auth{User: c.proxy.Username, Password: c.proxy.Password}
		}
		return proxy.SOCKS5("tcp", c.proxy.Address, auth, proxy.Direct)
	case "http":
		proxyURL, err := url.Parse(fmt.Sprintf("http://%s:%s@%s",
			c.proxy.Username, c.proxy.Password, c.proxy.Address))
		if err != nil {
			return nil, err
		}
		return proxy.FromURL(proxyURL, proxy.Direct)
	default:
		return nil, fmt.Errorf("network: unsupported proxy type %q", c.proxy.Type)
	}
}

// dial observes ctx even while the connection is still being set up, so
// a close request during the dial takes effect immediately.
func (c *Connection) dial(ctx context.Context) (net.Conn, error) {
	d, err := c.dialer()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	addr := c.server.Address()
	var conn net.Conn
	if cd, ok := d.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialInterruptible(ctx, d, addr)
	}
	if err != nil {
		return nil, err
	}
	if c.server.TLS {
		conn = tls.Client(conn, &tls.Config{ServerName: c.server.Host})
	}
	return conn, nil
}

// dialInterruptible runs a dialer without context support in its own
// goroutine so cancellation does not have to wait for the dial.
func dialInterruptible(ctx context.Context, d proxy.Dialer, addr string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := d.Dial("tcp", addr)
		ch <- result{conn, err}
	}()
	select {
	case res := <-ch:
		return res.conn, res.err
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Run drives the transport until EOF, reset or cancellation.
func (c *Connection) Run(ctx context.Context) {
	defer func() {
		c.Close()
		// Push never blocks: the supervisor drains whatever is left
		// after the worker is gone, this event included.
		c.queue.Push(event.New(event.Disconnected))
	}()

	c.log.Infof("connecting to %s...", c.server)
	conn, err := c.dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warnw("connect failed", "server", c.server.String(), "error", err)
		}
		return
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// Cancellation closes the socket, which unblocks the read below.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if ctx.Err() != nil {
		return
	}
	c.queue.Push(event.New(event.Connected))

	br := bufio.NewReaderSize(conn, 1024)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			// An unterminated partial trailing line is dropped on purpose.
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.Warnw("read failed", "error", err)
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		c.metrics.LinesReceived.Inc()
		c.queue.Push(event.New(event.RawLine, "line", []byte(line)))
	}
}

// WriteLine appends CRLF and writes, independently of the read loop.
func (c *Connection) WriteLine(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("network: not connected")
	}
	buf := make([]byte, 0, len(line)+2)
	buf = append(buf, line...)
	buf = append(buf, '\r', '\n')
	_, err := c.conn.Write(buf)
	return err
}

// Close closes the transport if it was opened.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
}
