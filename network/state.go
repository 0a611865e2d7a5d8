package network

import (
	"context"
	"strings"
	"sync"

	"github.com/chireiden/shanghai/event"
	"github.com/chireiden/shanghai/irc"
)

// Member is one channel occupant as seen from outside the tracker.
type Member struct {
	Prefix irc.Prefix
	Modes  string
}

type joinKey struct {
	channel string // case-folded
	nick    string // case-folded
}

type channelState struct {
	name string // as first seen on the wire
	// collecting marks an in-flight NAMES burst; the first RPL_NAMREPLY
	// line replaces the previous membership instead of extending it.
	collecting bool
}

// tracker mirrors the server's view of our channels and their occupants.
// It is fed by protocol events at core priority, so by the time lower
// tiers run the state already reflects the triggering message. All name
// comparisons go through the network's ISUPPORT case mapping.
type tracker struct {
	net *Network

	mu       sync.Mutex
	channels map[string]*channelState // folded channel name -> state
	users    map[string]irc.Prefix    // folded nick -> last seen prefix
	joins    map[joinKey]string       // membership -> mode letters
}

func newTracker(net *Network) *tracker {
	t := &tracker{net: net}
	t.clear()
	return t
}

func (t *tracker) register(d *event.Dispatcher) {
	handlers := []struct {
		name, ev string
		fn       event.HandlerFunc
	}{
		{"track/join", "JOIN", t.onJoin},
		{"track/part", "PART", t.onPart},
		{"track/kick", "KICK", t.onKick},
		{"track/quit", "QUIT", t.onQuit},
		{"track/nick", "NICK", t.onNick},
		{"track/names", irc.RPL_NAMREPLY, t.onNamReply},
		{"track/names-end", irc.RPL_ENDOFNAMES, t.onEndOfNames},
		{"track/privmsg", "PRIVMSG", t.onPrivmsg},
		{"track/notice", "NOTICE", t.onNotice},
	}
	for _, h := range handlers {
		if err := d.Register(event.Handler{
			Name:     h.name,
			Event:    h.ev,
			Priority: event.PriorityCore,
			Fn:       h.fn,
		}); err != nil {
			panic(err)
		}
	}
}

// clear drops all channel, user and membership state.
func (t *tracker) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = make(map[string]*channelState)
	t.users = make(map[string]irc.Prefix)
	t.joins = make(map[joinKey]string)
}

// Channels returns the channels we are currently in.
func (t *tracker) Channels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.channels))
	for _, ch := range t.channels {
		out = append(out, ch.name)
	}
	return out
}

// InChannel reports whether we are in the given channel.
func (t *tracker) InChannel(channel string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.channels[t.net.options.ChanLower(channel)]
	return ok
}

// Members returns the known occupants of a channel.
func (t *tracker) Members(channel string) []Member {
	t.mu.Lock()
	defer t.mu.Unlock()
	chanKey := t.net.options.ChanLower(channel)
	var out []Member
	for key, modes := range t.joins {
		if key.channel != chanKey {
			continue
		}
		out = append(out, Member{Prefix: t.users[key.nick], Modes: modes})
	}
	return out
}

func (t *tracker) isSelf(nick string) bool {
	return t.net.options.NickEq(nick, t.net.Nickname())
}

// addJoin records a membership; caller holds t.mu.
func (t *tracker) addJoin(chanKey string, prefix irc.Prefix, modes string) {
	nickKey := t.net.options.NickLower(prefix.Name)
	if existing, ok := t.users[nickKey]; !ok || prefix.Host != "" || existing.Name != prefix.Name {
		t.users[nickKey] = prefix
	}
	t.joins[joinKey{chanKey, nickKey}] = modes
}

// removeJoin drops a membership and garbage-collects the user entry if
// no shared channel remains; caller holds t.mu.
func (t *tracker) removeJoin(chanKey, nick string) {
	nickKey := t.net.options.NickLower(nick)
	delete(t.joins, joinKey{chanKey, nickKey})
	if t.isSelf(nick) {
		return
	}
	for key := range t.joins {
		if key.nick == nickKey {
			return
		}
	}
	delete(t.users, nickKey)
}

// removeChannel drops a channel and every membership in it, garbage-
// collecting users no longer visible anywhere; caller holds t.mu.
func (t *tracker) removeChannel(chanKey string) {
	delete(t.channels, chanKey)
	var nicks []string
	for key := range t.joins {
		if key.channel == chanKey {
			nicks = append(nicks, key.nick)
			delete(t.joins, key)
		}
	}
	for _, nickKey := range nicks {
		visible := false
		for key := range t.joins {
			if key.nick == nickKey {
				visible = true
				break
			}
		}
		if !visible && !t.isSelf(nickKey) {
			delete(t.users, nickKey)
		}
	}
}

func (t *tracker) onJoin(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	if msg == nil || msg.Prefix == nil || len(msg.Params) < 1 {
		return nil, nil
	}
	channel := msg.Params[0]
	chanKey := t.net.options.ChanLower(channel)

	t.mu.Lock()
	if t.isSelf(msg.Prefix.Name) {
		t.channels[chanKey] = &channelState{name: channel}
	}
	_, tracked := t.channels[chanKey]
	if tracked {
		t.addJoin(chanKey, *msg.Prefix, "")
	}
	t.mu.Unlock()

	if !tracked {
		t.net.log.Warnw("join for a channel we are not in",
			"channel", channel, "nick", msg.Prefix.Name)
		return nil, nil
	}
	return event.Insert(event.New(event.Joined,
		"message", msg,
		"channel", channel,
		"nick", msg.Prefix.Name,
	)), nil
}

func (t *tracker) onPart(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	if msg == nil || msg.Prefix == nil || len(msg.Params) < 1 {
		return nil, nil
	}
	channel := msg.Params[0]
	chanKey := t.net.options.ChanLower(channel)

	t.mu.Lock()
	if t.isSelf(msg.Prefix.Name) {
		t.removeChannel(chanKey)
	} else {
		t.removeJoin(chanKey, msg.Prefix.Name)
	}
	t.mu.Unlock()

	reason := ""
	if len(msg.Params) > 1 {
		reason = msg.Trailing()
	}
	return event.Insert(event.New(event.Parted,
		"message", msg,
		"channel", channel,
		"nick", msg.Prefix.Name,
		"reason", reason,
	)), nil
}

func (t *tracker) onKick(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	if msg == nil || len(msg.Params) < 2 {
		return nil, nil
	}
	channel, victim := msg.Params[0], msg.Params[1]
	chanKey := t.net.options.ChanLower(channel)

	t.mu.Lock()
	if t.isSelf(victim) {
		t.removeChannel(chanKey)
	} else {
		t.removeJoin(chanKey, victim)
	}
	t.mu.Unlock()

	by := ""
	if msg.Prefix != nil {
		by = msg.Prefix.Name
	}
	reason := ""
	if len(msg.Params) > 2 {
		reason = msg.Trailing()
	}
	return event.Insert(event.New(event.Kicked,
		"message", msg,
		"channel", channel,
		"nick", victim,
		"by", by,
		"reason", reason,
	)), nil
}

func (t *tracker) onQuit(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	if msg == nil || msg.Prefix == nil {
		return nil, nil
	}
	nickKey := t.net.options.NickLower(msg.Prefix.Name)

	t.mu.Lock()
	for key := range t.joins {
		if key.nick == nickKey {
			delete(t.joins, key)
		}
	}
	delete(t.users, nickKey)
	t.mu.Unlock()
	return nil, nil
}

func (t *tracker) onNick(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	if msg == nil || msg.Prefix == nil || len(msg.Params) < 1 {
		return nil, nil
	}
	oldNick, newNick := msg.Prefix.Name, msg.Params[0]
	oldKey := t.net.options.NickLower(oldNick)
	newKey := t.net.options.NickLower(newNick)

	if t.isSelf(oldNick) {
		t.net.mu.Lock()
		t.net.nickname = newNick
		t.net.mu.Unlock()
	}

	t.mu.Lock()
	if prefix, ok := t.users[oldKey]; ok {
		delete(t.users, oldKey)
		prefix.Name = newNick
		t.users[newKey] = prefix
	}
	for key, modes := range t.joins {
		if key.nick == oldKey {
			delete(t.joins, key)
			t.joins[joinKey{key.channel, newKey}] = modes
		}
	}
	t.mu.Unlock()
	return nil, nil
}

// onNamReply handles one RPL_NAMREPLY line: "<nick> <symbol> <channel>
// :<prefixed nicks>". The first line of a burst replaces the channel's
// membership.
func (t *tracker) onNamReply(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	if msg == nil || len(msg.Params) < 4 {
		return nil, nil
	}
	channel := msg.Params[2]
	chanKey := t.net.options.ChanLower(channel)

	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.channels[chanKey]
	if !ok {
		return nil, nil
	}
	if !ch.collecting {
		ch.collecting = true
		for key := range t.joins {
			if key.channel == chanKey {
				delete(t.joins, key)
			}
		}
	}
	for _, token := range strings.Fields(msg.Trailing()) {
		prefixes, bare := t.net.options.SplitPrefixes(token)
		if bare == "" {
			continue
		}
		t.addJoin(chanKey, irc.Prefix{Name: bare}, t.net.options.PrefixesToModes(prefixes))
	}
	return nil, nil
}

func (t *tracker) onEndOfNames(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	msg := ev.Message()
	if msg == nil || len(msg.Params) < 2 {
		return nil, nil
	}
	chanKey := t.net.options.ChanLower(msg.Params[1])

	t.mu.Lock()
	if ch, ok := t.channels[chanKey]; ok {
		ch.collecting = false
	}
	t.mu.Unlock()
	return nil, nil
}

// isChannelTarget classifies a message target via the CHANTYPES token.
func (t *tracker) isChannelTarget(target string) bool {
	if target == "" {
		return false
	}
	chantypes := t.net.options.GetDefault("CHANTYPES", "#&+!")
	return strings.IndexByte(chantypes, target[0]) >= 0
}

func (t *tracker) synthesize(msg *irc.Message, channelEvent, privateEvent string) *event.ResultSet {
	if msg == nil || msg.Prefix == nil || len(msg.Params) < 2 {
		return nil
	}
	target, text := msg.Params[0], msg.Trailing()
	if t.isChannelTarget(target) {
		return event.Insert(event.New(channelEvent,
			"message", msg,
			"channel", target,
			"nick", msg.Prefix.Name,
			"text", text,
		))
	}
	return event.Insert(event.New(privateEvent,
		"message", msg,
		"nick", msg.Prefix.Name,
		"text", text,
	))
}

func (t *tracker) onPrivmsg(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	return t.synthesize(ev.Message(), event.ChannelMessage, event.PrivateMessage), nil
}

func (t *tracker) onNotice(ctx context.Context, ev *event.Event) (*event.ResultSet, error) {
	return t.synthesize(ev.Message(), event.ChannelNotice, event.PrivateNotice), nil
}
