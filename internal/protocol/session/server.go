package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/danmuck/macroctl/internal/observability"
	"github.com/danmuck/macroctl/internal/protocol"
	"github.com/danmuck/macroctl/internal/protocol/stream"
	"github.com/danmuck/macroctl/internal/transport"
	"github.com/danmuck/macroctl/internal/typetraits"
	"github.com/rs/zerolog"
)

var ErrNoResponse = errors.New("session: service returned no response")

// Service generates output for one connected peer.
type Service interface {
	Generate(ctx context.Context, name string, args []string) (protocol.Response, error)
	// Close runs once, after the peer's EOF has been answered.
	Close() error
}

// ServiceFactory builds the Service for a newly accepted peer.
type ServiceFactory func(ctx context.Context, peer net.Addr) Service

// PeerHandler adapts factory into a transport handler speaking the macro
// protocol. Cancelling the server context stops the wait for the next
// request; a Generate already in progress runs to completion and its
// response is still written.
func PeerHandler(factory ServiceFactory) transport.Handler[protocol.Request, protocol.Response] {
	return func(ctx context.Context, peer net.Addr, s stream.ObjectStream[protocol.Request, protocol.Response]) error {
		logger := zerolog.Ctx(ctx).With().Str("component", "session").Logger()
		svc := factory(ctx, peer)
		closeService := func() error {
			if err := svc.Close(); err != nil {
				return fmt.Errorf("session: close service: %w", err)
			}
			return nil
		}

		for {
			if err := ctx.Err(); err != nil {
				return errors.Join(err, closeService())
			}
			req, ok, err := s.ReadObjectOrEOF(ctx)
			if err != nil {
				observability.RecordRequest("unknown", "read_error")
				return errors.Join(err, closeService())
			}
			if !ok {
				logger.Debug().Msg("peer signalled EOF")
				observability.RecordRequest("EOF", "ok")
				if err := s.SignalEOF(); err != nil {
					return errors.Join(err, closeService())
				}
				_ = s.Close()
				return closeService()
			}

			var resp protocol.Response
			switch q := req.(type) {
			case protocol.Generate:
				resp = generate(ctx, logger, svc, q)
			default:
				logger.Warn().Str("kind", req.RequestKind()).Msg("unknown request")
				observability.RecordRequest(req.RequestKind(), "unknown")
				resp = protocol.Error{Record: protocol.UnknownRequestRecord()}
			}
			// The answer to an accepted request is delivered even when
			// shutdown began while it was being generated.
			if err := writeResponse(context.WithoutCancel(ctx), s, resp); err != nil {
				return errors.Join(err, closeService())
			}
		}
	}
}

func generate(ctx context.Context, logger zerolog.Logger, svc Service, q protocol.Generate) (resp protocol.Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("command", q.CommandName).Msg("service panicked")
			resp = protocol.Error{Record: protocol.RecordFromPanic(r)}
		}
		observability.RecordRequest(q.RequestKind(), resp.ResponseKind())
		observability.RecordGenerate("server", time.Since(start))
	}()

	resp, err := svc.Generate(context.WithoutCancel(ctx), q.CommandName, q.Arguments)
	switch {
	case err != nil:
		logger.Debug().Err(err).Str("command", q.CommandName).Msg("service returned error")
		return protocol.Error{Record: protocol.RecordFromError(err)}
	case resp == nil:
		return protocol.Error{Record: protocol.RecordFromError(ErrNoResponse)}
	}
	return resp
}

// writeResponse sends resp. A response the descriptors cannot encode is
// replaced by an Error describing the encode failure.
func writeResponse(ctx context.Context, s stream.ObjectStream[protocol.Request, protocol.Response], resp protocol.Response) error {
	err := s.Write(ctx, resp)
	if err == nil {
		return nil
	}
	if errors.Is(err, typetraits.ErrUnrecognizedCase) || errors.Is(err, typetraits.ErrGuard) {
		return s.Write(ctx, protocol.Error{Record: protocol.RecordFromError(err)})
	}
	return err
}
