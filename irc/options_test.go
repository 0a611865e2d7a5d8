package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isupport(t *testing.T, tokens ...string) *Message {
	t.Helper()
	params := append([]string{"mynick"}, tokens...)
	params = append(params, "are supported by this server")
	return &Message{Command: RPL_ISUPPORT, Params: params}
}

func TestExtendFromMessage(t *testing.T) {
	o := NewOptions(nil)
	require.NoError(t, o.ExtendFromMessage(isupport(t, "CHANTYPES=#&", "EXCEPTS", "NETWORK=Example")))

	v, ok := o.Get("chantypes")
	assert.True(t, ok)
	assert.Equal(t, "#&", v)
	assert.True(t, o.Has("EXCEPTS"))
	assert.False(t, o.Has("MONITOR"))
	assert.Equal(t, "Example", o.GetDefault("NETWORK", "?"))

	err := o.ExtendFromMessage(&Message{Command: "PRIVMSG"})
	assert.Error(t, err)
}

func TestPrefixDerivation(t *testing.T) {
	o := NewOptions(nil)
	require.NoError(t, o.ExtendFromMessage(isupport(t, "PREFIX=(qaohv)~&@%+")))
	assert.Equal(t, "qaohv", o.UserModes())
	assert.Equal(t, "~&@%+", o.UserPrefixes())

	assert.Equal(t, "ov", o.PrefixesToModes("@+"))
	assert.Equal(t, "~@", o.ModesToPrefixes("qo"))
	assert.Equal(t, "", o.PrefixesToModes("!?"))
}

func TestPrefixMalformedIgnored(t *testing.T) {
	var warned bool
	o := NewOptions(func(string, ...any) { warned = true })
	o.Set("PREFIX", "(ov)@")
	assert.True(t, warned)
	assert.Equal(t, "ov", o.UserModes())
	assert.Equal(t, "@+", o.UserPrefixes())

	o.Set("PREFIX", "noparens")
	assert.Equal(t, "@+", o.UserPrefixes())
}

func TestSplitPrefixes(t *testing.T) {
	o := NewOptions(nil)

	prefixes, nick := o.SplitPrefixes("@+nick")
	assert.Equal(t, "@", prefixes)
	assert.Equal(t, "+nick", nick)

	o.MultiPrefix = true
	prefixes, nick = o.SplitPrefixes("@+nick")
	assert.Equal(t, "@+", prefixes)
	assert.Equal(t, "nick", nick)

	prefixes, nick = o.SplitPrefixes("nick")
	assert.Equal(t, "", prefixes)
	assert.Equal(t, "nick", nick)
}

func TestCaseMapping(t *testing.T) {
	o := NewOptions(nil)

	// rfc1459 is the default and folds []\^ to {}|~
	assert.True(t, o.ChanEq("Nick[1]", "nick{1}"))
	assert.True(t, o.NickEq("foo^", "FOO~"))
	assert.Equal(t, "#chan{}|~", o.ChanLower("#Chan[]\\^"))

	o.Set("CASEMAPPING", "strict-rfc1459")
	assert.True(t, o.NickEq("a[b]c\\", "A{B}C|"))
	assert.False(t, o.NickEq("foo^", "foo~"))

	o.Set("CASEMAPPING", "ascii")
	assert.True(t, o.NickEq("Foo", "foo"))
	assert.False(t, o.NickEq("nick[1]", "nick{1}"))
}

func TestUnknownCaseMappingFallsBack(t *testing.T) {
	var warned bool
	o := NewOptions(func(string, ...any) { warned = true })
	o.Set("CASEMAPPING", "klingon")
	assert.True(t, warned)
	assert.True(t, o.ChanEq("#a[", "#A{"))
}
