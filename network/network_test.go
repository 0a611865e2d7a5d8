package network

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chireiden/shanghai/config"
	"github.com/chireiden/shanghai/event"
	"github.com/chireiden/shanghai/logging"
)

func testConfig(server config.Server) *config.NetworkConfig {
	return &config.NetworkConfig{
		Name:     "testnet",
		Nick:     "bot",
		User:     "shanghai",
		Realname: "real name",
		Servers:  []config.Server{server},
		Channels: []config.ChannelConfig{{Name: "#chan"}},
	}
}

// acceptScript accepts one client and exposes its lines on a channel.
func acceptScript(t *testing.T, ln net.Listener) (<-chan net.Conn, <-chan string) {
	t.Helper()
	connCh := make(chan net.Conn, 1)
	lines := make(chan string, 64)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(lines)
			return
		}
		connCh <- conn
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			lines <- strings.TrimRight(sc.Text(), "\r")
		}
		close(lines)
	}()
	return connCh, lines
}

func expectLine(t *testing.T, lines <-chan string, prefix string) string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("connection closed while waiting for %q", prefix)
			}
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", prefix)
		}
	}
}

func sendLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	_, err := fmt.Fprintf(conn, "%s\r\n", line)
	require.NoError(t, err)
}

func TestSupervisorEndToEnd(t *testing.T) {
	ln, server := listen(t)
	connCh, lines := acceptScript(t, ln)

	n := New(testConfig(server), logging.Nop(), nil)

	gotText := make(chan string, 1)
	require.NoError(t, n.Dispatcher().Register(event.Handler{
		Name:  "test/chanmsg",
		Event: event.ChannelMessage,
		Fn: func(_ context.Context, ev *event.Event) (*event.ResultSet, error) {
			gotText <- ev.String("channel") + " " + ev.String("text")
			return nil, nil
		},
	}))

	runDone := make(chan error, 1)
	go func() { runDone <- n.Run(context.Background()) }()

	var conn net.Conn
	select {
	case conn = <-connCh:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}

	expectLine(t, lines, "NICK bot")
	expectLine(t, lines, "USER shanghai")

	// two collisions walk the suffix: bot -> bot1 -> bot2
	sendLine(t, conn, ":srv 433 * bot :Nickname is already in use.")
	expectLine(t, lines, "NICK bot1")
	sendLine(t, conn, ":srv 433 * bot1 :Nickname is already in use.")
	expectLine(t, lines, "NICK bot2")

	sendLine(t, conn, ":srv 001 bot2 :Welcome to the test network")
	expectLine(t, lines, "JOIN #chan")
	assert.Eventually(t, func() bool { return n.Nickname() == "bot2" },
		time.Second, 5*time.Millisecond)

	sendLine(t, conn, ":srv 005 bot2 CHANTYPES=# CASEMAPPING=rfc1459 :are supported by this server")
	sendLine(t, conn, ":alice!a@host PRIVMSG #chan :hello there")
	select {
	case got := <-gotText:
		assert.Equal(t, "#chan hello there", got)
	case <-time.After(5 * time.Second):
		t.Fatal("no channel message event")
	}

	n.Stop("bye")
	expectLine(t, lines, "QUIT")

	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestSupervisorReconnects(t *testing.T) {
	ln, server := listen(t)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	n := New(testConfig(server), logging.Nop(), nil)
	runDone := make(chan error, 1)
	go func() { runDone <- n.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(n.metrics.Reconnects) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// stopping during backoff returns promptly
	n.Stop("")
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop during backoff")
	}
}

func TestMessageFloodIsLossless(t *testing.T) {
	ln, server := listen(t)
	connCh, lines := acceptScript(t, ln)

	n := New(testConfig(server), logging.Nop(), nil)
	var seen atomic.Int64
	require.NoError(t, n.Dispatcher().Register(event.Handler{
		Name:  "test/count",
		Event: event.ChannelMessage,
		Fn: func(_ context.Context, ev *event.Event) (*event.ResultSet, error) {
			seen.Add(1)
			return nil, nil
		},
	}))

	runDone := make(chan error, 1)
	go func() { runDone <- n.Run(context.Background()) }()

	var conn net.Conn
	select {
	case conn = <-connCh:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}
	expectLine(t, lines, "NICK bot")
	sendLine(t, conn, ":srv 001 bot :welcome")
	expectLine(t, lines, "JOIN #chan")

	// far more lines than any worker backlog; every one must dispatch
	const flood = 500
	var burst strings.Builder
	for i := 0; i < flood; i++ {
		fmt.Fprintf(&burst, ":alice!a@h PRIVMSG #chan :line %d\r\n", i)
	}
	_, err := conn.Write([]byte(burst.String()))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return seen.Load() == flood },
		10*time.Second, 10*time.Millisecond)

	// a close request still gets through after the burst
	n.Stop("done")
	expectLine(t, lines, "QUIT")
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestWorkerCrashLoopClosesNetworkOnce(t *testing.T) {
	n := New(testConfig(config.Server{Host: "h", Port: 6667}), logging.Nop(), nil)
	n.prepareAttempt()

	dropCtx, dropCancel := context.WithCancel(context.Background())
	n.mu.Lock()
	n.connCancel = dropCancel
	n.mu.Unlock()

	// a nil event blows up inside the worker itself, outside the
	// dispatcher's per-handler containment
	for i := 0; i < crashThreshold; i++ {
		n.queue.Push(nil)
	}

	done := make(chan struct{})
	go func() {
		n.runWorker(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker supervision did not give up")
	}

	assert.True(t, n.isStopped())
	assert.Equal(t, float64(1), testutil.ToFloat64(n.metrics.CrashLoops))
	assert.Equal(t, float64(crashThreshold), testutil.ToFloat64(n.metrics.WorkerRestarts))
	select {
	case <-dropCtx.Done():
	default:
		t.Fatal("crash loop did not cancel the connection")
	}

	// no further restart: another poisoned event stays queued
	n.queue.Push(nil)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, n.queue.Len())
}

func TestNextNick(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"bot", "bot1"},
		{"bot1", "bot2"},
		{"bot9", "bot10"},
		{"x2y", "x2y1"},
	} {
		assert.Equal(t, tc.want, nextNick(tc.in), tc.in)
	}
}

func TestRecordFailureWindow(t *testing.T) {
	n := New(testConfig(config.Server{Host: "h", Port: 6667}), logging.Nop(), nil)
	mock := clock.NewMock()
	n.clk = mock

	for i := 0; i < crashThreshold-1; i++ {
		assert.False(t, n.recordFailure())
		mock.Add(time.Second)
	}
	assert.True(t, n.recordFailure())
}

func TestRecordFailureExpiry(t *testing.T) {
	n := New(testConfig(config.Server{Host: "h", Port: 6667}), logging.Nop(), nil)
	mock := clock.NewMock()
	n.clk = mock

	for i := 0; i < crashThreshold-1; i++ {
		assert.False(t, n.recordFailure())
	}
	mock.Add(crashWindow + time.Second)
	// the old failures have aged out of the window
	assert.False(t, n.recordFailure())
}

func TestForceCloseIdempotent(t *testing.T) {
	n := New(testConfig(config.Server{Host: "h", Port: 6667}), logging.Nop(), nil)
	n.forceClose()
	n.forceClose() // closing twice must not panic
	assert.True(t, n.isStopped())
}

func TestKeepaliveMeasuresLatency(t *testing.T) {
	n := New(testConfig(config.Server{Host: "h", Port: 6667}), logging.Nop(), nil)
	mock := clock.NewMock()
	n.clk = mock
	n.prepareAttempt()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		n.keepalive(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond) // let the ticker arm
	mock.Add(pingInterval)

	// echo a nonce stamped 50ms in the mock past
	n.pongCh <- fmt.Sprintf("LAG_%d", mock.Now().Add(-50*time.Millisecond).UnixMilli())
	require.Eventually(t, func() bool { return n.Latency() == 50*time.Millisecond },
		time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestKeepaliveTimeoutDropsConnection(t *testing.T) {
	n := New(testConfig(config.Server{Host: "h", Port: 6667}), logging.Nop(), nil)
	mock := clock.NewMock()
	n.clk = mock
	n.prepareAttempt()

	dropCtx, dropCancel := context.WithCancel(context.Background())
	n.mu.Lock()
	n.connCancel = dropCancel
	n.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		n.keepalive(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	mock.Add(pingInterval) // ping goes out, answer never comes
	time.Sleep(10 * time.Millisecond)
	mock.Add(pongTimeout)

	select {
	case <-dropCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("missed pong did not reset the connection")
	}
	<-done
}
