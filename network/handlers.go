package network

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chireiden/shanghai/event"
	"github.com/chireiden/shanghai/irc"
)

func (n *Network) registerCoreHandlers() {
	core := []event.Handler{
		{Name: "core/raw", Event: event.RawLine, Priority: event.PriorityCore, Fn: n.onRawLine},
		{Name: "core/connected", Event: event.Connected, Priority: event.PriorityCore, Fn: n.onConnected},
		{Name: "core/welcome", Event: irc.RPL_WELCOME, Priority: event.PriorityCore, Fn: n.onWelcome},
		{Name: "core/isupport", Event: irc.RPL_ISUPPORT, Priority: event.PriorityCore, Fn: n.onISupport},
		{Name: "core/ping", Event: "PING", Priority: event.PriorityCore, Fn: n.onPing},
		{Name: "core/pong", Event: "PONG", Priority: event.PriorityCore, Fn: n.onPong},
		{Name: "core/close", Event: event.CloseRequest, Priority: event.PriorityPostCore, Fn: n.onCloseRequest},
		{Name: "core/disconnected", Event: event.Disconnected, Priority: event.PriorityCore, Fn: n.onDisconnected},
	}
	for _, h := range core {
		if err := n.disp.Register(h); err != nil {
			// registration against a fresh dispatcher cannot collide
			panic(err)
		}
	}
}

// onRawLine decodes a received line, parses it and appends the resulting
// protocol event. Unparsable lines and unknown numerics are protocol
// oddities: logged, never fatal.
func (n *Network) onRawLine(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	line := n.cfg.DecodeLine(ev.Bytes("line"))
	n.log.Debugf("< %s", line)
	msg, err := irc.ParseLine(line)
	if err != nil {
		n.log.Warnw("ignoring unparsable line", "line", line, "error", err)
		return nil, nil
	}
	if msg.IsUnknownNumeric() {
		n.log.Warnw("unknown numeric reply", "command", msg.Command, "line", line)
	}
	return event.Append(event.NewMessage(msg)), nil
}

func (n *Network) onConnected(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	n.mu.Lock()
	n.connected = true
	nick := n.nickname
	n.mu.Unlock()

	// One-shot for the registration phase; removed again on welcome.
	if err := n.disp.Register(event.Handler{
		Name:     "core/nick-collision",
		Event:    irc.ERR_NICKNAMEINUSE,
		Priority: event.PriorityCore,
		Fn:       n.onNickCollision,
	}); err != nil {
		n.log.Debugw("nick collision handler still registered", "error", err)
	}

	if n.cfg.ServerPass != "" {
		n.SendCmd("PASS", n.cfg.ServerPass)
	}
	n.SendCmd("NICK", nick)
	n.SendCmd("USER", n.cfg.User, "0", "*", n.cfg.Realname)
	return nil, nil
}

var trailingDigits = regexp.MustCompile(`\d*$`)

// nextNick increments the trailing numeric suffix, appending "1" when
// there is none: bot, bot1, bot2, ...
func nextNick(nick string) string {
	digits := trailingDigits.FindString(nick)
	base := strings.TrimSuffix(nick, digits)
	num := 0
	if digits != "" {
		num, _ = strconv.Atoi(digits)
	}
	return base + strconv.Itoa(num+1)
}

func (n *Network) onNickCollision(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	n.mu.Lock()
	if n.registered {
		n.mu.Unlock()
		return nil, nil
	}
	n.nickname = nextNick(n.nickname)
	nick := n.nickname
	n.mu.Unlock()
	n.log.Infof("nickname in use, trying %s", nick)
	n.SendCmd("NICK", nick)
	return nil, nil
}

func (n *Network) onWelcome(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	n.mu.Lock()
	n.registered = true
	if msg != nil && len(msg.Params) > 0 {
		// The server has the last word on our nickname.
		n.nickname = msg.Params[0]
	}
	n.attempt = 0
	nick := n.nickname
	n.mu.Unlock()

	if err := n.disp.Unregister(irc.ERR_NICKNAMEINUSE, "core/nick-collision"); err != nil {
		n.log.Debugw("nick collision handler already gone", "error", err)
	}

	n.log.Infow("registered", "nick", nick)
	for _, ch := range n.cfg.Channels {
		if ch.Key != "" {
			n.SendCmd("JOIN", ch.Name, ch.Key)
		} else {
			n.SendCmd("JOIN", ch.Name)
		}
	}
	return event.Schedule(n.keepalive), nil
}

func (n *Network) onISupport(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	if msg := ev.Message(); msg != nil {
		if err := n.options.ExtendFromMessage(msg); err != nil {
			n.log.Warnw("bad ISUPPORT message", "error", err)
		}
	}
	return nil, nil
}

func (n *Network) onPing(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	if msg := ev.Message(); msg != nil {
		n.SendCmd("PONG", msg.Params...)
	}
	return nil, nil
}

func (n *Network) onPong(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	if msg == nil {
		return nil, nil
	}
	nonce := msg.Trailing()
	if !strings.HasPrefix(nonce, "LAG_") {
		return nil, nil
	}
	n.mu.Lock()
	pongCh := n.pongCh
	n.mu.Unlock()
	select {
	case pongCh <- nonce:
	default:
	}
	return nil, nil
}

// keepalive pings the server with a timestamped nonce so the lag is
// computable from the echoed PONG alone. A missed PONG resets the
// connection; the supervisor reconnects.
func (n *Network) keepalive(ctx context.Context) {
	n.mu.Lock()
	pongCh := n.pongCh
	n.mu.Unlock()

	ticker := n.clk.Ticker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n.SendCmd("PING", fmt.Sprintf("LAG_%d", n.clk.Now().UnixMilli()))
		timer := n.clk.Timer(pongTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case nonce := <-pongCh:
			timer.Stop()
			if ms, err := strconv.ParseInt(strings.TrimPrefix(nonce, "LAG_"), 10, 64); err == nil {
				n.setLatency(n.clk.Now().Sub(time.UnixMilli(ms)))
			}
		case <-timer.C:
			n.log.Warnw("keepalive timed out, resetting connection", "timeout", pongTimeout)
			n.dropConnection()
			return
		}
	}
}

func (n *Network) onCloseRequest(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	n.markStopped()
	n.mu.Lock()
	connected := n.connected
	conn := n.conn
	n.mu.Unlock()

	if connected && conn != nil {
		if quitmsg := ev.String("quitmsg"); quitmsg != "" {
			n.SendCmd("QUIT", quitmsg)
		} else {
			n.SendCmd("QUIT")
		}
		conn.Close()
	} else {
		n.dropConnection()
	}
	return nil, nil
}

func (n *Network) onDisconnected(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	n.mu.Lock()
	n.connected = false
	n.registered = false
	n.latency = 0
	n.mu.Unlock()
	n.state.clear()
	n.log.Infow("disconnected")
	return nil, nil
}
