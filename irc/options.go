package irc

import (
	"fmt"
	"strings"
)

// Case mapping names advertised via the CASEMAPPING ISUPPORT token.
const (
	CaseMappingASCII         = "ascii"
	CaseMappingRFC1459       = "rfc1459"
	CaseMappingStrictRFC1459 = "strict-rfc1459"
)

// WarnFunc receives diagnostics about malformed ISUPPORT tokens.
type WarnFunc func(format string, args ...any)

// Options is a case-insensitive view of the server's RPL_ISUPPORT (005)
// tokens with the derived case-folding table and PREFIX translation
// strings. The fold functions here are the only sanctioned way to compare
// nicknames and channel names anywhere in the runtime.
type Options struct {
	values map[string]string
	flags  map[string]bool

	fold         [256]byte
	userModes    string
	userPrefixes string

	// MultiPrefix mirrors the multi-prefix capability: when active,
	// SplitPrefixes strips every leading prefix symbol instead of one.
	MultiPrefix bool

	warn WarnFunc
}

// NewOptions returns Options with the rfc1459 default case mapping and the
// conventional "(ov)@+" prefix set. warn may be nil.
func NewOptions(warn WarnFunc) *Options {
	o := &Options{
		values: make(map[string]string),
		flags:  make(map[string]bool),
		warn:   warn,
	}
	o.setCaseMapping(CaseMappingRFC1459)
	o.userModes, o.userPrefixes = "ov", "@+"
	return o
}

func (o *Options) warnf(format string, args ...any) {
	if o.warn != nil {
		o.warn(format, args...)
	}
}

// Get returns the value of a KEY=VALUE token. Flag tokens (no "=") report
// ok with an empty value; use Has for those.
func (o *Options) Get(key string) (string, bool) {
	key = strings.ToUpper(key)
	if value, ok := o.values[key]; ok {
		return value, true
	}
	return "", o.flags[key]
}

// Has reports whether the token was advertised at all.
func (o *Options) Has(key string) bool {
	key = strings.ToUpper(key)
	if _, ok := o.values[key]; ok {
		return true
	}
	return o.flags[key]
}

// GetDefault returns the token value, or def when it is absent or a flag.
func (o *Options) GetDefault(key, def string) string {
	if value, ok := o.values[strings.ToUpper(key)]; ok {
		return value
	}
	return def
}

// Set stores one ISUPPORT token and re-derives dependent state for the
// PREFIX and CASEMAPPING keys. Malformed values are logged and ignored.
func (o *Options) Set(key, value string) {
	key = strings.ToUpper(key)
	o.values[key] = value
	switch key {
	case "PREFIX":
		o.setPrefix(value)
	case "CASEMAPPING":
		o.setCaseMapping(strings.ToLower(value))
	}
}

// SetFlag stores a value-less token.
func (o *Options) SetFlag(key string) {
	o.flags[strings.ToUpper(key)] = true
}

// ExtendFromMessage merges an RPL_ISUPPORT reply into the option set. The
// first parameter (the echoed nick) and the last (the human-readable
// "are supported by this server" suffix) are skipped.
func (o *Options) ExtendFromMessage(msg *Message) error {
	if msg.Command != RPL_ISUPPORT {
		return fmt.Errorf("irc: expected %s message, got %s", RPL_ISUPPORT, msg.Command)
	}
	if len(msg.Params) < 2 {
		return nil
	}
	for _, token := range msg.Params[1 : len(msg.Params)-1] {
		if key, value, ok := strings.Cut(token, "="); ok {
			o.Set(key, value)
		} else {
			o.SetFlag(token)
		}
	}
	return nil
}

// setPrefix parses "(modes)symbols", e.g. "(ov)@+". Positional
// correspondence is required; a bad shape or length mismatch keeps the
// previous derivation.
func (o *Options) setPrefix(value string) {
	if !strings.HasPrefix(value, "(") {
		o.warnf("ignoring malformed PREFIX value %q", value)
		return
	}
	modes, symbols, ok := strings.Cut(value[1:], ")")
	if !ok {
		o.warnf("ignoring malformed PREFIX value %q", value)
		return
	}
	if len(modes) != len(symbols) {
		o.warnf("ignoring PREFIX value %q: %d modes vs %d symbols",
			value, len(modes), len(symbols))
		return
	}
	o.userModes, o.userPrefixes = modes, symbols
}

func (o *Options) setCaseMapping(name string) {
	for i := range o.fold {
		o.fold[i] = byte(i)
	}
	for c := byte('A'); c <= 'Z'; c++ {
		o.fold[c] = c + ('a' - 'A')
	}
	switch name {
	case CaseMappingASCII:
	case CaseMappingStrictRFC1459:
		o.fold['['], o.fold[']'], o.fold['\\'] = '{', '}', '|'
	case CaseMappingRFC1459:
		o.fold['['], o.fold[']'], o.fold['\\'], o.fold['^'] = '{', '}', '|', '~'
	default:
		o.warnf("unknown CASEMAPPING %q, falling back to rfc1459", name)
		o.fold['['], o.fold[']'], o.fold['\\'], o.fold['^'] = '{', '}', '|', '~'
	}
}

// UserModes returns the channel membership mode letters, e.g. "ov".
func (o *Options) UserModes() string { return o.userModes }

// UserPrefixes returns the prefix symbols positionally matching UserModes,
// e.g. "@+".
func (o *Options) UserPrefixes() string { return o.userPrefixes }

// SplitPrefixes splits a NAMES-style nick into its leading prefix symbols
// and the bare nick. Without multi-prefix at most one symbol is stripped.
func (o *Options) SplitPrefixes(nick string) (prefixes, bare string) {
	i := 0
	for i < len(nick) && strings.IndexByte(o.userPrefixes, nick[i]) >= 0 {
		i++
		if !o.MultiPrefix {
			break
		}
	}
	return nick[:i], nick[i:]
}

// PrefixesToModes translates prefix symbols to their mode letters,
// skipping unknown symbols.
func (o *Options) PrefixesToModes(prefixes string) string {
	var b strings.Builder
	for i := 0; i < len(prefixes); i++ {
		if j := strings.IndexByte(o.userPrefixes, prefixes[i]); j >= 0 {
			b.WriteByte(o.userModes[j])
		}
	}
	return b.String()
}

// ModesToPrefixes translates mode letters to their prefix symbols,
// skipping unknown letters.
func (o *Options) ModesToPrefixes(modes string) string {
	var b strings.Builder
	for i := 0; i < len(modes); i++ {
		if j := strings.IndexByte(o.userModes, modes[i]); j >= 0 {
			b.WriteByte(o.userPrefixes[j])
		}
	}
	return b.String()
}

func (o *Options) lower(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b[i] = o.fold[s[i]]
	}
	return string(b)
}

// NickLower folds a nickname with the active case mapping.
func (o *Options) NickLower(nick string) string { return o.lower(nick) }

// ChanLower folds a channel name with the active case mapping.
func (o *Options) ChanLower(channel string) string { return o.lower(channel) }

// NickEq reports whether two nicknames are equal under the active case
// mapping.
func (o *Options) NickEq(a, b string) bool { return o.lower(a) == o.lower(b) }

// ChanEq reports whether two channel names are equal under the active
// case mapping.
func (o *Options) ChanEq(a, b string) bool { return o.lower(a) == o.lower(b) }
