// Package config loads and validates the YAML configuration. Global keys
// (nick, user, realname) act as fallbacks for every network, servers come
// as "{host, port, tls}" maps or "host:port"/"host:+port" strings, and
// text encodings are resolved to x/text encodings up front so a typo is a
// startup failure rather than a runtime one.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"

	"github.com/chireiden/shanghai/logging"
)

// ConfigurationError is fatal and pre-flight: it names the missing or
// malformed fields and aborts before any connection attempt.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return e.msg }

func confErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

const (
	defaultPort    = 6667
	defaultTLSPort = 6697

	defaultEncoding         = "utf-8"
	defaultFallbackEncoding = "latin1"
)

// Server is one endpoint of a network's rotation.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`
}

func (s Server) String() string {
	tls := ""
	if s.TLS {
		tls = "+"
	}
	return fmt.Sprintf("%s:%s%d", s.Host, tls, s.Port)
}

// Address returns the host:port dial target.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ParseServer parses "host", "host:port" and "host:+port" ("+" selects
// TLS). Missing ports default to 6667, or 6697 with TLS.
func ParseServer(spec string) (Server, error) {
	s := Server{}
	host, port, found := strings.Cut(spec, ":")
	if host == "" {
		return s, confErrorf("server %q has no host", spec)
	}
	s.Host = host
	if !found || port == "" {
		s.Port = defaultPort
		return s, nil
	}
	if strings.HasPrefix(port, "+") {
		s.TLS = true
		port = port[1:]
	}
	if port == "" {
		s.Port = defaultTLSPort
		return s, nil
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return s, confErrorf("server %q has an invalid port", spec)
	}
	s.Port = n
	return s, nil
}

// ChannelConfig is one auto-join entry.
type ChannelConfig struct {
	Name string
	Key  string
}

// ProxyConfig routes a network's connections through a proxy.
// Type is one of "socks4", "socks5" or "http".
type ProxyConfig struct {
	Type     string `yaml:"type"`
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NetworkConfig is the resolved per-network configuration handed to the
// supervisor; fallbacks are already applied and encodings resolved.
type NetworkConfig struct {
	Name     string
	Nick     string
	User     string
	Realname string

	// ServerPass is sent as PASS before registration when non-empty.
	ServerPass string

	Servers  []Server
	Channels []ChannelConfig
	Proxy    *ProxyConfig

	EncodingName         string
	FallbackEncodingName string
	Encoding             encoding.Encoding
	FallbackEncoding     encoding.Encoding
}

// Config is the root configuration.
type Config struct {
	Logging  logging.Config
	Networks []*NetworkConfig
}

type rawChannel struct {
	Key string `yaml:"key"`
}

type rawNetwork struct {
	Nick             string                 `yaml:"nick"`
	User             string                 `yaml:"user"`
	Realname         string                 `yaml:"realname"`
	ServerPass       string                 `yaml:"server_pass"`
	Encoding         string                 `yaml:"encoding"`
	FallbackEncoding string                 `yaml:"fallback_encoding"`
	Servers          []yaml.Node            `yaml:"servers"`
	Channels         map[string]*rawChannel `yaml:"channels"`
	Proxy            *ProxyConfig           `yaml:"proxy"`
}

type rawConfig struct {
	Nick     string                 `yaml:"nick"`
	User     string                 `yaml:"user"`
	Realname string                 `yaml:"realname"`
	Logging  logging.Config         `yaml:"logging"`
	Networks map[string]*rawNetwork `yaml:"networks"`
}

// LoadFile reads and validates a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Load(data)
}

// Load parses and validates YAML configuration bytes.
func Load(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if len(raw.Networks) == 0 {
		return nil, confErrorf("no networks configured")
	}

	cfg := &Config{Logging: raw.Logging}
	var errs error
	for name, rawNet := range raw.Networks {
		net, err := resolveNetwork(name, &raw, rawNet)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		cfg.Networks = append(cfg.Networks, net)
	}
	if errs != nil {
		return nil, errs
	}
	return cfg, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveNetwork(name string, root *rawConfig, raw *rawNetwork) (*NetworkConfig, error) {
	net := &NetworkConfig{
		Name:       name,
		Nick:       fallback(raw.Nick, root.Nick),
		User:       fallback(raw.User, root.User),
		Realname:   fallback(raw.Realname, root.Realname),
		ServerPass: raw.ServerPass,
		Proxy:      raw.Proxy,
	}

	var missing []string
	for _, field := range []struct{ key, value string }{
		{"nick", net.Nick},
		{"user", net.User},
		{"realname", net.Realname},
	} {
		if field.value == "" {
			missing = append(missing, field.key)
		}
	}
	if len(missing) > 0 {
		return nil, confErrorf("network %q is missing the following options: %s",
			name, strings.Join(missing, ", "))
	}

	if len(raw.Servers) == 0 {
		return nil, confErrorf("network %q has no servers", name)
	}
	for _, node := range raw.Servers {
		server, err := decodeServer(name, node)
		if err != nil {
			return nil, err
		}
		net.Servers = append(net.Servers, server)
	}

	for chanName, chanConf := range raw.Channels {
		if chanName == "" {
			continue
		}
		if !strings.ContainsRune("#&+!", rune(chanName[0])) {
			chanName = "#" + chanName
		}
		cc := ChannelConfig{Name: chanName}
		if chanConf != nil {
			cc.Key = chanConf.Key
		}
		net.Channels = append(net.Channels, cc)
	}

	net.EncodingName = fallback(raw.Encoding, defaultEncoding)
	net.FallbackEncodingName = fallback(raw.FallbackEncoding, defaultFallbackEncoding)
	var err error
	if net.Encoding, err = resolveEncoding(net.EncodingName); err != nil {
		return nil, confErrorf("network %q: unknown encoding %q", name, net.EncodingName)
	}
	if net.FallbackEncoding, err = resolveEncoding(net.FallbackEncodingName); err != nil {
		return nil, confErrorf("network %q: unknown fallback_encoding %q",
			name, net.FallbackEncodingName)
	}

	if raw.Proxy != nil {
		switch raw.Proxy.Type {
		case "socks4", "socks5", "http":
		default:
			return nil, confErrorf("network %q: unsupported proxy type %q", name, raw.Proxy.Type)
		}
	}

	return net, nil
}

func decodeServer(network string, node yaml.Node) (Server, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var spec string
		if err := node.Decode(&spec); err != nil {
			return Server{}, confErrorf("network %q: bad server entry: %v", network, err)
		}
		return ParseServer(spec)
	case yaml.MappingNode:
		var server Server
		if err := node.Decode(&server); err != nil {
			return Server{}, confErrorf("network %q: bad server entry: %v", network, err)
		}
		if server.Host == "" {
			return Server{}, confErrorf("network %q: server entry has no host", network)
		}
		if server.Port == 0 {
			if server.TLS {
				server.Port = defaultTLSPort
			} else {
				server.Port = defaultPort
			}
		}
		return server, nil
	default:
		return Server{}, confErrorf("network %q: server entries must be strings or maps", network)
	}
}

func resolveEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		// nil means "plain UTF-8"; DecodeLine validates it directly.
		return nil, nil
	case "latin1", "latin-1":
		name = "ISO-8859-1"
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("config: unknown encoding %q", name)
	}
	return enc, nil
}
