// Package generator is the demo macro service: it echoes the request back as
// comment lines.
package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/danmuck/macroctl/internal/output"
	"github.com/danmuck/macroctl/internal/protocol"
	"github.com/danmuck/macroctl/internal/protocol/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// FailCommand makes Generate return an error instead of output.
	FailCommand = "fail"
	// TimeLayout renders "Now:" lines as a full date with short time.
	TimeLayout = "Monday, January 2, 2006 3:04 PM"
)

var ErrFailRequested = errors.New("generator: failure requested")

// CommandError reports a command that could not be generated.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("generator: command %q failed", e.Command)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service serves one peer.
type Service struct {
	peer   net.Addr
	now    func() time.Time
	logger zerolog.Logger
}

func New(peer net.Addr, opts ...Option) *Service {
	s := &Service{peer: peer, now: time.Now, logger: log.Logger}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "generator").Str("peer", peerString(peer)).Logger()
	return s
}

// Factory builds one Service per accepted peer.
func Factory(opts ...Option) session.ServiceFactory {
	return func(_ context.Context, peer net.Addr) session.Service {
		return New(peer, opts...)
	}
}

func (s *Service) Generate(_ context.Context, name string, args []string) (protocol.Response, error) {
	s.logger.Debug().Str("command", name).Strs("args", args).Msg("generate")
	if name == FailCommand {
		cause := ErrFailRequested
		if len(args) > 0 {
			cause = fmt.Errorf("%w: %s", ErrFailRequested, strings.Join(args, " "))
		}
		return nil, &CommandError{Command: name, Err: cause}
	}
	return output.Generate(func(dest output.Sink) error {
		dest.PushIndent(output.CommentIndent)
		dest.WriteLine("Now: " + s.now().Format(TimeLayout))
		dest.WriteLine("Peer IP: " + peerString(s.peer))
		dest.WriteLine("Command: " + name)
		for i, a := range args {
			dest.WriteLine(fmt.Sprintf("Arg %d: %s", i, a))
		}
		dest.PopIndent()
		return nil
	}), nil
}

func (s *Service) Close() error {
	s.logger.Debug().Msg("peer closed")
	return nil
}

func peerString(peer net.Addr) string {
	if peer == nil {
		return "unknown"
	}
	return peer.String()
}
