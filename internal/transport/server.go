package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/danmuck/macroctl/internal/observability"
	"github.com/danmuck/macroctl/internal/protocol/stream"
	"github.com/danmuck/macroctl/internal/typetraits"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrHandlerPanic       = errors.New("transport: handler panic")
	ErrTooManyConnections = errors.New("transport: connection limit reached")
)

// Handler serves one accepted connection. The stream is closed by the
// server after Handler returns. The connection logger is available through
// zerolog.Ctx(ctx).
type Handler[R, W any] func(ctx context.Context, peer net.Addr, s stream.ObjectStream[R, W]) error

// ConnResult is the observed outcome of one served connection.
type ConnResult struct {
	ID       string
	Remote   net.Addr
	Err      error
	Panicked bool
	// Rejected is set when the connection was closed unserved because
	// MaxConnections handlers were already running.
	Rejected bool
	Duration time.Duration
}

type ConnObserver func(ConnResult)

type serverOptions struct {
	logger   zerolog.Logger
	observer ConnObserver
}

type Option func(*serverOptions)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *serverOptions) { o.logger = logger }
}

// WithObserver registers a callback invoked once per finished connection.
func WithObserver(fn ConnObserver) Option {
	return func(o *serverOptions) { o.observer = fn }
}

// Server accepts connections and runs handler for each under supervision.
type Server[R, W any] struct {
	cfg       Config
	readDesc  typetraits.Descriptor[R]
	writeDesc typetraits.Descriptor[W]
	handler   Handler[R, W]
	opts      serverOptions
}

func NewServer[R, W any](cfg Config, readDesc typetraits.Descriptor[R], writeDesc typetraits.Descriptor[W], handler Handler[R, W], opts ...Option) *Server[R, W] {
	o := serverOptions{logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With().Str("component", "transport").Logger()
	return &Server[R, W]{
		cfg:       cfg,
		readDesc:  readDesc,
		writeDesc: writeDesc,
		handler:   handler,
		opts:      o,
	}
}

func (s *Server[R, W]) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.opts.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then waits for every running
// handler before returning. A cancelled context is a clean shutdown.
// Connections beyond MaxConnections are closed at once and reported as
// rejected; transient accept failures are retried with backoff.
func (s *Server[R, W]) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var g errgroup.Group
	if s.cfg.MaxConnections > 0 {
		g.SetLimit(s.cfg.MaxConnections)
	}

	var acceptErr error
	var failures int
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			if !isTransientAcceptError(err) {
				acceptErr = fmt.Errorf("transport: accept: %w", err)
				break
			}
			failures++
			delay := NextBackoffDelay(acceptBackoff, failures, nil)
			s.opts.logger.Warn().Err(err).Int("failures", failures).Dur("retry_in", delay).Msg("accept failed")
			if err := sleepBackoff(ctx, acceptBackoff, failures, nil); err != nil {
				break
			}
			continue
		}
		failures = 0
		if !g.TryGo(func() error {
			s.serveConn(ctx, conn)
			return nil
		}) {
			s.reject(conn)
		}
	}
	_ = g.Wait()
	s.opts.logger.Debug().Msg("accept loop stopped")
	return acceptErr
}

var acceptBackoff = BackoffConfig{
	InitialDelay: 5 * time.Millisecond,
	Multiplier:   2,
	MaxDelay:     time.Second,
}

// isTransientAcceptError reports failures a listener recovers from on its
// own: descriptor exhaustion, aborted handshakes and timeouts.
func isTransientAcceptError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, syscall.ENOMEM) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNRESET)
}

func (s *Server[R, W]) reject(conn net.Conn) {
	res := ConnResult{
		ID:       uuid.NewString(),
		Remote:   conn.RemoteAddr(),
		Err:      ErrTooManyConnections,
		Rejected: true,
	}
	_ = conn.Close()
	s.opts.logger.Warn().
		Str("conn_id", res.ID).
		Stringer("remote", res.Remote).
		Int("max_connections", s.cfg.MaxConnections).
		Str("outcome", observability.OutcomeRejected).
		Msg("connection rejected")
	observability.RecordConnection(observability.OutcomeRejected)
	if s.opts.observer != nil {
		s.opts.observer(res)
	}
}

func (s *Server[R, W]) serveConn(ctx context.Context, conn net.Conn) {
	res := ConnResult{ID: uuid.NewString(), Remote: conn.RemoteAddr()}
	logger := s.opts.logger.With().Str("conn_id", res.ID).Stringer("remote", res.Remote).Logger()
	release := observability.TrackActive()
	defer release()

	start := time.Now()
	st := stream.New(conn, s.readDesc, s.writeDesc, s.cfg.Stream)
	logger.Debug().Msg("connection accepted")

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Panicked = true
				res.Err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			}
		}()
		res.Err = s.handler(logger.WithContext(ctx), res.Remote, st)
	}()
	_ = st.Close()
	res.Duration = time.Since(start)

	outcome := observability.OutcomeOK
	event := logger.Debug()
	switch {
	case res.Panicked:
		outcome = observability.OutcomePanic
		event = logger.Error()
	case res.Err != nil && !errors.Is(res.Err, context.Canceled):
		outcome = observability.OutcomeError
		event = logger.Warn()
	}
	event.Err(res.Err).Dur("duration", res.Duration).Str("outcome", outcome).Msg("connection closed")
	observability.RecordConnection(outcome)
	if s.opts.observer != nil {
		s.opts.observer(res)
	}
}
