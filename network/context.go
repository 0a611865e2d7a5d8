package network

import (
	"time"

	"go.uber.org/zap"

	"github.com/chireiden/shanghai/event"
	"github.com/chireiden/shanghai/irc"
)

// Context is the capability handle plugins program against. It exposes
// what a handler may legitimately do with its network and nothing else.
type Context struct {
	net *Network
}

// NetworkName returns the configured network name.
func (c *Context) NetworkName() string { return c.net.Name() }

// Nickname returns the nickname currently in effect.
func (c *Context) Nickname() string { return c.net.Nickname() }

// Options returns the live ISUPPORT option view.
func (c *Context) Options() *irc.Options { return c.net.Options() }

// Logger returns the network's log sink.
func (c *Context) Logger() *zap.SugaredLogger { return c.net.log }

// Latency returns the last keepalive round trip time.
func (c *Context) Latency() time.Duration { return c.net.Latency() }

// SendLine sends one raw protocol line.
func (c *Context) SendLine(line string) { c.net.SendLine(line) }

// SendCmd serializes and sends a command.
func (c *Context) SendCmd(cmd string, params ...string) { c.net.SendCmd(cmd, params...) }

// SendMsg sends a PRIVMSG.
func (c *Context) SendMsg(target, text string) { c.net.SendMsg(target, text) }

// SendNotice sends a NOTICE.
func (c *Context) SendNotice(target, text string) { c.net.SendNotice(target, text) }

// SendCTCP sends a CTCP request inside a PRIVMSG.
func (c *Context) SendCTCP(target, command, args string) {
	c.net.SendMsg(target, ctcpQuote(command, args))
}

// SendCTCPReply sends a CTCP reply inside a NOTICE.
func (c *Context) SendCTCPReply(target, command, args string) {
	c.net.SendNotice(target, ctcpQuote(command, args))
}

func ctcpQuote(command, args string) string {
	if args == "" {
		return "\x01" + command + "\x01"
	}
	return "\x01" + command + " " + args + "\x01"
}

// Channels returns the channels the network is currently in.
func (c *Context) Channels() []string { return c.net.state.Channels() }

// InChannel reports whether the network is in the given channel.
func (c *Context) InChannel(channel string) bool { return c.net.state.InChannel(channel) }

// Members returns the known occupants of a channel.
func (c *Context) Members(channel string) []Member { return c.net.state.Members(channel) }

// Close asks the network to disconnect and stop.
func (c *Context) Close(quitmsg string) { c.net.Stop(quitmsg) }

// Register adds a handler to the network's dispatcher.
func (c *Context) Register(h event.Handler) error { return c.net.disp.Register(h) }

// Unregister removes a handler from the network's dispatcher.
func (c *Context) Unregister(eventName, handlerName string) error {
	return c.net.disp.Unregister(eventName, handlerName)
}
