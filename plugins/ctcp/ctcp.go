// Package ctcp answers client-to-client protocol requests (VERSION,
// PING, TIME, CLIENTINFO) arriving as private messages.
package ctcp

import (
	"context"
	"strings"
	"time"

	"github.com/chireiden/shanghai/event"
	"github.com/chireiden/shanghai/network"
)

const delimiter = "\x01"

// DefaultVersion is the VERSION reply when none is configured.
const DefaultVersion = "shanghai"

// Plugin answers CTCP requests. Version overrides the VERSION reply.
type Plugin struct {
	Version string

	// now is the clock for TIME replies; tests pin it.
	now func() time.Time
}

// New returns the plugin with default settings.
func New() *Plugin {
	return &Plugin{now: time.Now}
}

func (p *Plugin) Name() string      { return "ctcp" }
func (p *Plugin) Depends() []string { return nil }

// Handlers reacts to private messages carrying a CTCP request.
func (p *Plugin) Handlers(ctx *network.Context) []event.Handler {
	return []event.Handler{{
		Name:  "ctcp/request",
		Event: event.PrivateMessage,
		Fn: func(_ context.Context, ev *event.Event) (*event.ResultSet, error) {
			command, args, ok := Parse(ev.String("text"))
			if !ok {
				return nil, nil
			}
			nick := ev.String("nick")
			if reply, ok := p.response(command, args); ok {
				ctx.Logger().Infow("answering ctcp request",
					"command", command, "from", nick)
				ctx.SendCTCPReply(nick, command, reply)
			}
			return event.Eat(), nil
		},
	}}
}

// response builds the reply body for one request, reporting whether the
// request is answered at all.
func (p *Plugin) response(command, args string) (string, bool) {
	switch command {
	case "VERSION":
		if p.Version != "" {
			return p.Version, true
		}
		return DefaultVersion, true
	case "PING":
		return args, true
	case "TIME":
		now := p.now
		if now == nil {
			now = time.Now
		}
		return now().Format(time.RFC1123), true
	case "CLIENTINFO":
		return "CLIENTINFO PING TIME VERSION", true
	}
	return "", false
}

// Parse splits a CTCP-quoted message into its upper-cased command and
// arguments. The trailing delimiter is optional on the wire.
func Parse(text string) (command, args string, ok bool) {
	if !strings.HasPrefix(text, delimiter) {
		return "", "", false
	}
	text = strings.TrimPrefix(text, delimiter)
	text = strings.TrimSuffix(text, delimiter)
	if text == "" {
		return "", "", false
	}
	command, args, _ = strings.Cut(text, " ")
	return strings.ToUpper(command), args, true
}
