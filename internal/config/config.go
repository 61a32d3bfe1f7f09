package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/macroctl/internal/transport"
	"gopkg.in/yaml.v3"
)

const (
	EnvAddr           = "MACROCTL_ADDR"
	EnvMetricsAddr    = "MACROCTL_METRICS_ADDR"
	EnvMaxConnections = "MACROCTL_MAX_CONNECTIONS"
)

var ErrInvalidConfig = errors.New("config: invalid")

// ServerConfig is the macroserver runtime configuration.
type ServerConfig struct {
	Addr           string
	MetricsAddr    string
	MaxConnections int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxStringBytes uint64
	MaxCount       int32
	MaxDepth       int
}

// ClientConfig is the macroclient runtime configuration.
type ClientConfig struct {
	Addr               string
	ConnectTimeout     time.Duration
	MaxConnectAttempts int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	Backoff            transport.BackoffConfig
}

func DefaultServerConfig() ServerConfig {
	t := transport.DefaultConfig()
	return ServerConfig{
		Addr:           t.ListenAddr,
		MaxConnections: 64,
		ReadTimeout:    t.Stream.ReadTimeout,
		WriteTimeout:   t.Stream.WriteTimeout,
		MaxStringBytes: t.Stream.Limits.MaxStringBytes,
		MaxCount:       t.Stream.Limits.MaxCount,
		MaxDepth:       t.Stream.Limits.MaxDepth,
	}
}

func DefaultClientConfig() ClientConfig {
	t := transport.DefaultConfig()
	return ClientConfig{
		Addr:               t.ListenAddr,
		ConnectTimeout:     t.ConnectTimeout,
		MaxConnectAttempts: t.MaxConnectAttempts,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       t.Stream.WriteTimeout,
		Backoff:            t.Backoff,
	}
}

// Transport maps the server settings onto transport.Config.
func (c ServerConfig) Transport() transport.Config {
	t := transport.DefaultConfig()
	t.ListenAddr = c.Addr
	t.MaxConnections = c.MaxConnections
	t.Stream.ReadTimeout = c.ReadTimeout
	t.Stream.WriteTimeout = c.WriteTimeout
	t.Stream.Limits.MaxStringBytes = c.MaxStringBytes
	t.Stream.Limits.MaxCount = c.MaxCount
	t.Stream.Limits.MaxDepth = c.MaxDepth
	return t
}

func (c ClientConfig) Transport() transport.Config {
	t := transport.DefaultConfig()
	t.ConnectTimeout = c.ConnectTimeout
	t.MaxConnectAttempts = c.MaxConnectAttempts
	t.Backoff = c.Backoff
	t.Stream.ReadTimeout = c.ReadTimeout
	t.Stream.WriteTimeout = c.WriteTimeout
	return t
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("%w: server config missing addr", ErrInvalidConfig)
	}
	if cfg.MaxConnections < 0 {
		return fmt.Errorf("%w: max_connections must be >= 0", ErrInvalidConfig)
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must be >= 0", ErrInvalidConfig)
	}
	if cfg.MaxCount < 0 || cfg.MaxDepth < 0 {
		return fmt.Errorf("%w: decode limits must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("%w: client config missing addr", ErrInvalidConfig)
	}
	if cfg.MaxConnectAttempts < 0 {
		return fmt.Errorf("%w: max_connect_attempts must be >= 0", ErrInvalidConfig)
	}
	if cfg.Backoff.Multiplier != 0 && cfg.Backoff.Multiplier < 1 {
		return fmt.Errorf("%w: backoff_multiplier must be >= 1", ErrInvalidConfig)
	}
	return nil
}

// serverFile is the on-disk server config. Durations are Go duration strings.
type serverFile struct {
	Addr           string `toml:"addr" yaml:"addr"`
	MetricsAddr    string `toml:"metrics_addr" yaml:"metrics_addr"`
	MaxConnections int    `toml:"max_connections" yaml:"max_connections"`
	ReadTimeout    string `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   string `toml:"write_timeout" yaml:"write_timeout"`
	MaxStringBytes uint64 `toml:"max_string_bytes" yaml:"max_string_bytes"`
	MaxCount       int32  `toml:"max_count" yaml:"max_count"`
	MaxDepth       int    `toml:"max_depth" yaml:"max_depth"`
}

type clientFile struct {
	Addr               string  `toml:"addr" yaml:"addr"`
	ConnectTimeout     string  `toml:"connect_timeout" yaml:"connect_timeout"`
	MaxConnectAttempts int     `toml:"max_connect_attempts" yaml:"max_connect_attempts"`
	ReadTimeout        string  `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout       string  `toml:"write_timeout" yaml:"write_timeout"`
	BackoffInitial     string  `toml:"backoff_initial" yaml:"backoff_initial"`
	BackoffMultiplier  float64 `toml:"backoff_multiplier" yaml:"backoff_multiplier"`
	BackoffMax         string  `toml:"backoff_max" yaml:"backoff_max"`
	BackoffJitter      bool    `toml:"backoff_jitter" yaml:"backoff_jitter"`
}

// definedFunc reports whether a top-level key was present in the file.
type definedFunc func(key string) bool

// decodeFile decodes path as TOML or YAML by extension and rejects unknown
// keys.
func decodeFile(path string, out any) (definedFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		var keys map[string]any
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil && len(keys) > 0 {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		return func(key string) bool {
			_, ok := keys[key]
			return ok
		}, nil
	default:
		meta, err := toml.DecodeFile(path, out)
		if err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
		}
		return func(key string) bool { return meta.IsDefined(key) }, nil
	}
}

// LoadServerConfig overlays the file at path onto defaults, then applies
// environment overrides and validates. An empty path skips the file.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if strings.TrimSpace(path) != "" {
		var raw serverFile
		defined, err := decodeFile(path, &raw)
		if err != nil {
			return ServerConfig{}, err
		}
		if err := overlayServer(&cfg, raw, defined); err != nil {
			return ServerConfig{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := applyServerEnv(&cfg); err != nil {
		return ServerConfig{}, err
	}
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if strings.TrimSpace(path) != "" {
		var raw clientFile
		defined, err := decodeFile(path, &raw)
		if err != nil {
			return ClientConfig{}, err
		}
		if err := overlayClient(&cfg, raw, defined); err != nil {
			return ClientConfig{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Addr = v
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func overlayServer(cfg *ServerConfig, raw serverFile, defined definedFunc) error {
	if defined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if defined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if defined("max_connections") {
		cfg.MaxConnections = raw.MaxConnections
	}
	if defined("read_timeout") {
		d, err := parseDuration("read_timeout", raw.ReadTimeout)
		if err != nil {
			return err
		}
		cfg.ReadTimeout = d
	}
	if defined("write_timeout") {
		d, err := parseDuration("write_timeout", raw.WriteTimeout)
		if err != nil {
			return err
		}
		cfg.WriteTimeout = d
	}
	if defined("max_string_bytes") {
		cfg.MaxStringBytes = raw.MaxStringBytes
	}
	if defined("max_count") {
		cfg.MaxCount = raw.MaxCount
	}
	if defined("max_depth") {
		cfg.MaxDepth = raw.MaxDepth
	}
	return nil
}

func overlayClient(cfg *ClientConfig, raw clientFile, defined definedFunc) error {
	if defined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if defined("max_connect_attempts") {
		cfg.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if defined("backoff_multiplier") {
		cfg.Backoff.Multiplier = raw.BackoffMultiplier
	}
	if defined("backoff_jitter") {
		cfg.Backoff.Jitter = raw.BackoffJitter
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
		{"backoff_initial", raw.BackoffInitial, &cfg.Backoff.InitialDelay},
		{"backoff_max", raw.BackoffMax, &cfg.Backoff.MaxDelay},
	}
	for _, d := range durations {
		if !defined(d.key) {
			continue
		}
		v, err := parseDuration(d.key, d.raw)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	return nil
}

func applyServerEnv(cfg *ServerConfig) error {
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Addr = v
	}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxConnections)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > math.MaxInt32 {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvMaxConnections, v)
		}
		cfg.MaxConnections = n
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return d, nil
}
