// Package event implements the priority-ordered handler fan-out that every
// network drains its queue through. Handlers are registered per event name
// at a priority tier; tiers run strictly descending with a synchronization
// barrier between them, and a tier may eat an event to stop lower tiers.
package event

import (
	"context"

	"github.com/chireiden/shanghai/irc"
)

// Lifecycle and synthesized event names. Protocol events use the message
// command itself ("PRIVMSG", "RPL_WELCOME", ...) as their name.
const (
	Connected    = "connected"
	Disconnected = "disconnected"
	CloseRequest = "close_request"
	RawLine      = "raw_line"

	ChannelMessage = "channel_message"
	ChannelNotice  = "channel_notice"
	PrivateMessage = "private_message"
	PrivateNotice  = "private_notice"
	Joined         = "joined"
	Parted         = "parted"
	Kicked         = "kicked"
)

// Priority tiers. Only the relative ordering is contractual.
const (
	PriorityCore     = 100
	PriorityPostCore = 50
	PriorityDefault  = 0
)

// Event is a dispatchable occurrence: a name plus an argument bag.
type Event struct {
	Name string
	Args map[string]any
}

// New builds an event from key/value argument pairs.
func New(name string, kv ...any) *Event {
	ev := &Event{Name: name}
	if len(kv) > 0 {
		ev.Args = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			ev.Args[kv[i].(string)] = kv[i+1]
		}
	}
	return ev
}

// NewMessage builds a protocol event named after the message command.
func NewMessage(msg *irc.Message) *Event {
	return New(msg.Command, "message", msg)
}

// Message returns the irc message argument, or nil for lifecycle events.
func (e *Event) Message() *irc.Message {
	msg, _ := e.Args["message"].(*irc.Message)
	return msg
}

// String returns a string argument, or "" when absent.
func (e *Event) String(key string) string {
	s, _ := e.Args[key].(string)
	return s
}

// Bytes returns a []byte argument, or nil when absent.
func (e *Event) Bytes(key string) []byte {
	b, _ := e.Args[key].([]byte)
	return b
}

// Task is a deferred side effect a handler wants started. The dispatcher
// never runs tasks itself; the caller starts and supervises them.
type Task func(ctx context.Context)

// ResultSet aggregates what an event's handlers asked for.
type ResultSet struct {
	// Eat stops dispatch after the current tier.
	Eat bool
	// AppendEvents are handed back to the caller to be re-queued for
	// later, ordinary processing.
	AppendEvents []*Event
	// InsertEvents are dispatched recursively before Dispatch returns and
	// are cleared on the value the caller sees.
	InsertEvents []*Event
	// Schedule holds deferred tasks for the caller to start.
	Schedule []Task
}

// Merge folds other into r: Eat is OR'd, the event lists are concatenated
// and the schedule set is unioned.
func (r *ResultSet) Merge(other *ResultSet) {
	if other == nil {
		return
	}
	r.Eat = r.Eat || other.Eat
	r.AppendEvents = append(r.AppendEvents, other.AppendEvents...)
	r.InsertEvents = append(r.InsertEvents, other.InsertEvents...)
	r.Schedule = append(r.Schedule, other.Schedule...)
}

// Eat is shorthand for a ResultSet that stops lower tiers.
func Eat() *ResultSet { return &ResultSet{Eat: true} }

// Append is shorthand for a ResultSet that re-queues events.
func Append(events ...*Event) *ResultSet {
	return &ResultSet{AppendEvents: events}
}

// Insert is shorthand for a ResultSet that dispatches events immediately
// after the current one.
func Insert(events ...*Event) *ResultSet {
	return &ResultSet{InsertEvents: events}
}

// Schedule is shorthand for a ResultSet that defers tasks to the caller.
func Schedule(tasks ...Task) *ResultSet {
	return &ResultSet{Schedule: tasks}
}
