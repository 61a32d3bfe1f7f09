package transport

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/danmuck/macroctl/internal/protocol/stream"
	"github.com/danmuck/macroctl/internal/typetraits"
	"github.com/rs/zerolog/log"
)

// Dial connects to addr, retrying with backoff up to cfg.MaxConnectAttempts.
func Dial(ctx context.Context, addr string, cfg Config) (net.Conn, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	var attempt int
	for {
		attempt++
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Str("component", "transport").Int("attempt", attempt).Str("addr", addr).Err(err).Msg("dial failed")
		if cfg.MaxConnectAttempts > 0 && attempt >= cfg.MaxConnectAttempts {
			return nil, fmt.Errorf("transport: dial %s after %d attempts: %w", addr, attempt, err)
		}
		if err := sleepBackoff(ctx, cfg.Backoff, attempt, rng); err != nil {
			return nil, err
		}
	}
}

// RunClient dials addr, wraps the connection as a stream writing W and
// reading R, and runs fn. The stream is closed whatever fn returns; any
// protocol-level close handshake is fn's job.
func RunClient[W, R any](ctx context.Context, addr string, cfg Config, writeDesc typetraits.Descriptor[W], readDesc typetraits.Descriptor[R], fn func(ctx context.Context, s stream.ObjectStream[R, W]) error) error {
	conn, err := Dial(ctx, addr, cfg)
	if err != nil {
		return err
	}
	st := stream.New(conn, readDesc, writeDesc, cfg.Stream)
	defer st.Close()
	return fn(ctx, st)
}
