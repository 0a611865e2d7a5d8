package shanghai

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chireiden/shanghai/config"
	"github.com/chireiden/shanghai/logging"
	"github.com/chireiden/shanghai/plugins/ctcp"
)

func testBotConfig(t *testing.T) (*config.Config, net.Listener) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port
	return &config.Config{
		Logging: logging.Config{Level: "error"},
		Networks: []*config.NetworkConfig{{
			Name:     "t",
			Nick:     "bot",
			User:     "u",
			Realname: "r",
			Servers:  []config.Server{{Host: "127.0.0.1", Port: port}},
		}},
	}, ln
}

func TestBotRunAndStop(t *testing.T) {
	cfg, ln := testBotConfig(t)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		fmt.Fprintf(conn, ":srv 001 bot :welcome\r\n")
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			// consume client traffic until it quits
		}
		conn.Close()
	}()

	bot, err := New(cfg, nil, ctcp.New())
	require.NoError(t, err)
	require.Len(t, bot.Networks(), 1)

	done := make(chan error, 1)
	go func() { done <- bot.Run(context.Background()) }()

	require.Eventually(t, func() bool { return bot.Networks()[0].Registered() },
		5*time.Second, 10*time.Millisecond)

	bot.Stop("bye")
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestNewRejectsDuplicatePlugins(t *testing.T) {
	cfg, _ := testBotConfig(t)
	_, err := New(cfg, nil, ctcp.New(), ctcp.New())
	assert.Error(t, err)
}
