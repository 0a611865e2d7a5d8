// Package irc implements the IRC wire protocol: parsing and producing
// messages as described in RFC 1459/2812, plus IRCv3 message tags and the
// ISUPPORT (005) option layer.
//
// Details of the protocol can be found in the following documents:
// https://tools.ietf.org/html/rfc1459
// https://tools.ietf.org/html/rfc2812
// http://ircv3.net/specs/core/message-tags-3.2.html
package irc

import (
	"errors"
	"strings"
)

// ErrEmptyLine is returned by ParseLine for lines without a command.
var ErrEmptyLine = errors.New("irc: empty line")

// Prefix is the sender identity portion of a message: nick[!ident][@host].
// Ident and Host are empty when absent. Per RFC 2812 the host must be
// present for the ident to be recognized; ":nick!user CMD" keeps the
// name "nick!user".
type Prefix struct {
	Name  string
	Ident string
	Host  string
}

// String reassembles the prefix into its wire form (without the leading colon).
func (p Prefix) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Ident != "" {
		b.WriteByte('!')
		b.WriteString(p.Ident)
	}
	if p.Host != "" {
		b.WriteByte('@')
		b.WriteString(p.Host)
	}
	return b.String()
}

// TagValue is the value of a single IRCv3 message tag. A tag that appears
// without "=" is a boolean flag: Set is false and Value is empty.
type TagValue struct {
	Set   bool
	Value string
}

// Message is a single parsed IRC line. It is immutable once parsed.
type Message struct {
	// Command is the upper-cased command token. Three-digit numerics are
	// resolved to their reply name (e.g. "001" -> "RPL_WELCOME"); numerics
	// missing from the reply table stay as the literal digit string.
	Command string
	Prefix  *Prefix
	Params  []string
	Tags    map[string]TagValue
	Raw     string
}

// EscapeTag escapes the five reserved characters of a tag value.
func EscapeTag(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case ' ':
			b.WriteString(`\s`)
		case '\\':
			b.WriteString(`\\`)
		case ';':
			b.WriteString(`\:`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UnescapeTag reverses EscapeTag. An unknown escape sequence yields the
// escaped character itself; a trailing lone backslash is dropped.
func UnescapeTag(value string) string {
	var b strings.Builder
	escaped := false
	for _, r := range value {
		if escaped {
			switch r {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 's':
				b.WriteByte(' ')
			case '\\':
				b.WriteByte('\\')
			case ':':
				b.WriteByte(';')
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseTags(block string) map[string]TagValue {
	tags := make(map[string]TagValue)
	for _, tag := range strings.Split(block, ";") {
		if tag == "" {
			continue
		}
		if key, value, ok := strings.Cut(tag, "="); ok {
			tags[key] = TagValue{Set: true, Value: UnescapeTag(value)}
		} else {
			tags[tag] = TagValue{}
		}
	}
	return tags
}

func parsePrefix(token string) *Prefix {
	p := &Prefix{Name: token}
	if name, host, ok := strings.Cut(token, "@"); ok {
		p.Name, p.Host = name, host
		if name, ident, ok := strings.Cut(p.Name, "!"); ok {
			p.Name, p.Ident = name, ident
		}
	}
	return p
}

// ParseLine parses one IRC line (without its CR/LF terminator) into a
// Message. Unknown three-digit numerics are kept as the literal digit
// string; use IsUnknownNumeric on the result if you want to log those.
func ParseLine(line string) (*Message, error) {
	msg := &Message{Raw: line}
	rest := line

	if strings.HasPrefix(rest, "@") {
		block, remainder, ok := strings.Cut(rest, " ")
		if !ok {
			return nil, errors.New("irc: malformed line: tags without command")
		}
		msg.Tags = parseTags(block[1:])
		rest = strings.TrimLeft(remainder, " ")
	}

	if strings.HasPrefix(rest, ":") {
		token, remainder, ok := strings.Cut(rest, " ")
		if !ok {
			return nil, errors.New("irc: malformed line: prefix without command")
		}
		msg.Prefix = parsePrefix(token[1:])
		rest = strings.TrimLeft(remainder, " ")
	}

	if rest == "" {
		return nil, ErrEmptyLine
	}

	command, rest, _ := strings.Cut(rest, " ")
	rest = strings.TrimLeft(rest, " ")
	msg.Command = strings.ToUpper(command)
	if isDigits(msg.Command) {
		if name, ok := ReplyName(msg.Command); ok {
			msg.Command = name
		}
	}

	for rest != "" {
		if strings.HasPrefix(rest, ":") {
			msg.Params = append(msg.Params, rest[1:])
			break
		}
		param, remainder, _ := strings.Cut(rest, " ")
		msg.Params = append(msg.Params, param)
		rest = strings.TrimLeft(remainder, " ")
	}

	return msg, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsUnknownNumeric reports whether the message command is a numeric that
// was not found in the server reply table.
func (m *Message) IsUnknownNumeric() bool {
	return isDigits(m.Command)
}

// Trailing returns the last parameter, or the empty string if there is none.
func (m *Message) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// Line serializes the message for sending. The last parameter gets a
// leading colon when it contains a space, starts with a colon, or is empty.
// Tags and prefix are included when present.
func (m *Message) Line() string {
	var b strings.Builder
	if len(m.Tags) > 0 {
		b.WriteByte('@')
		first := true
		for key, value := range m.Tags {
			if !first {
				b.WriteByte(';')
			}
			first = false
			b.WriteString(key)
			if value.Set {
				b.WriteByte('=')
				b.WriteString(EscapeTag(value.Value))
			}
		}
		b.WriteByte(' ')
	}
	if m.Prefix != nil {
		b.WriteByte(':')
		b.WriteString(m.Prefix.String())
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for i, param := range m.Params {
		b.WriteByte(' ')
		if i == len(m.Params)-1 &&
			(param == "" || strings.HasPrefix(param, ":") || strings.Contains(param, " ")) {
			b.WriteByte(':')
		}
		b.WriteString(param)
	}
	return b.String()
}
