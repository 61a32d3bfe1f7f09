package transport

import (
	"time"

	"github.com/danmuck/macroctl/internal/protocol/stream"
)

// BackoffConfig defines dial retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config holds listener, dial and stream settings shared by both sides.
type Config struct {
	ListenAddr string
	// MaxConnections bounds concurrently served connections; 0 is unbounded.
	MaxConnections int

	ConnectTimeout time.Duration
	// MaxConnectAttempts bounds dial retries; 0 retries until ctx ends.
	MaxConnectAttempts int
	Backoff            BackoffConfig

	Stream stream.Config
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:         "127.0.0.1:7744",
		ConnectTimeout:     5 * time.Second,
		MaxConnectAttempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
		Stream: stream.DefaultConfig(),
	}
}
