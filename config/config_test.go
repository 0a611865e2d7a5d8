package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
nick: TestBot
user: shanghai
realname: Sample Bot

logging:
  level: info

networks:
  sample:
    encoding: utf-8
    fallback_encoding: latin1
    servers:
      - host: irc.example.org
        tls: true
      - irc.example.org:6667
      - irc.example.org:+6697
    channels:
      foochannel:
      otherchannel:
        key: some_key
      '##foobar':

  second:
    nick: OtherBot
    servers:
      - irc.foobar.net
`

func TestLoadSample(t *testing.T) {
	cfg, err := Load([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Networks, 2)

	byName := map[string]*NetworkConfig{}
	for _, n := range cfg.Networks {
		byName[n.Name] = n
	}

	sample := byName["sample"]
	require.NotNil(t, sample)
	assert.Equal(t, "TestBot", sample.Nick)
	assert.Equal(t, "shanghai", sample.User)
	assert.Equal(t, "Sample Bot", sample.Realname)

	require.Len(t, sample.Servers, 3)
	assert.Equal(t, Server{Host: "irc.example.org", Port: 6697, TLS: true}, sample.Servers[0])
	assert.Equal(t, Server{Host: "irc.example.org", Port: 6667}, sample.Servers[1])
	assert.Equal(t, Server{Host: "irc.example.org", Port: 6697, TLS: true}, sample.Servers[2])

	names := map[string]string{}
	for _, c := range sample.Channels {
		names[c.Name] = c.Key
	}
	assert.Contains(t, names, "#foochannel")
	assert.Contains(t, names, "##foobar")
	assert.Equal(t, "some_key", names["#otherchannel"])

	second := byName["second"]
	require.NotNil(t, second)
	assert.Equal(t, "OtherBot", second.Nick)
	assert.Equal(t, "shanghai", second.User) // global fallback
}

func TestMissingRequiredKeys(t *testing.T) {
	_, err := Load([]byte(`
networks:
  broken:
    servers:
      - irc.example.org
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "nick")
	assert.Contains(t, err.Error(), "user")
	assert.Contains(t, err.Error(), "realname")
}

func TestNoServers(t *testing.T) {
	_, err := Load([]byte(`
nick: a
user: b
realname: c
networks:
  noservers: {}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no servers")
}

func TestNoNetworks(t *testing.T) {
	_, err := Load([]byte(`nick: a`))
	require.Error(t, err)
	var confErr *ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestParseServer(t *testing.T) {
	for _, tc := range []struct {
		spec string
		want Server
	}{
		{"irc.example.org", Server{Host: "irc.example.org", Port: 6667}},
		{"irc.example.org:7000", Server{Host: "irc.example.org", Port: 7000}},
		{"irc.example.org:+7000", Server{Host: "irc.example.org", Port: 7000, TLS: true}},
		{"irc.example.org:+", Server{Host: "irc.example.org", Port: 6697, TLS: true}},
	} {
		got, err := ParseServer(tc.spec)
		require.NoError(t, err, tc.spec)
		assert.Equal(t, tc.want, got, tc.spec)
	}

	for _, spec := range []string{"", ":6667", "host:notaport", "host:70000"} {
		_, err := ParseServer(spec)
		assert.Error(t, err, spec)
	}
}

func TestUnknownEncoding(t *testing.T) {
	_, err := Load([]byte(`
nick: a
user: b
realname: c
networks:
  n:
    encoding: not-a-real-encoding
    servers: [irc.example.org]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding")
}

func TestUnsupportedProxyType(t *testing.T) {
	_, err := Load([]byte(`
nick: a
user: b
realname: c
networks:
  n:
    servers: [irc.example.org]
    proxy:
      type: carrier-pigeon
      address: localhost:1080
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy")
}

func TestDecodeLineFallback(t *testing.T) {
	cfg, err := Load([]byte(`
nick: a
user: b
realname: c
networks:
  n:
    servers: [irc.example.org]
`))
	require.NoError(t, err)
	n := cfg.Networks[0]

	assert.Equal(t, "hello", n.DecodeLine([]byte("hello")))
	assert.Equal(t, "héllo", n.DecodeLine([]byte("héllo")))

	// invalid utf-8, valid latin1: 0xE9 is é
	assert.Equal(t, "héllo", n.DecodeLine([]byte{'h', 0xE9, 'l', 'l', 'o'}))
}

func TestEncodeLine(t *testing.T) {
	cfg, err := Load([]byte(`
nick: a
user: b
realname: c
networks:
  n:
    servers: [irc.example.org]
`))
	require.NoError(t, err)
	assert.Equal(t, []byte("PRIVMSG #c :héllo"), cfg.Networks[0].EncodeLine("PRIVMSG #c :héllo"))
}
