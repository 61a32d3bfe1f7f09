package session

import (
	"context"
	"time"

	"github.com/danmuck/macroctl/internal/observability"
	"github.com/danmuck/macroctl/internal/protocol"
	"github.com/danmuck/macroctl/internal/protocol/stream"
	"github.com/danmuck/macroctl/internal/transport"
)

// Client is the requesting side of one macro protocol connection. Calls are
// strictly sequential; a Client must not be shared between goroutines.
type Client struct {
	s stream.ObjectStream[protocol.Response, protocol.Request]
}

func NewClient(s stream.ObjectStream[protocol.Response, protocol.Request]) *Client {
	return &Client{s: s}
}

// Generate sends one request and waits for its response.
func (c *Client) Generate(ctx context.Context, name string, args []string) (protocol.Response, error) {
	start := time.Now()
	defer func() {
		observability.RecordGenerate("client", time.Since(start))
	}()

	if err := c.s.Write(ctx, protocol.Generate{CommandName: name, Arguments: args}); err != nil {
		return nil, err
	}
	resp, ok, err := c.s.ReadObjectOrEOF(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protocol.NewProtocolError(protocol.MsgResponseNotReceived)
	}
	return resp, nil
}

// Close signals EOF and waits for the server's EOF in reply.
func (c *Client) Close(ctx context.Context) error {
	if err := c.s.SignalEOF(); err != nil {
		return err
	}
	_, ok, err := c.s.ReadObjectOrEOF(ctx)
	if err != nil {
		return err
	}
	if ok {
		return protocol.NewProtocolError(protocol.MsgUnexpectedEOFReply)
	}
	return nil
}

// Dispose releases the underlying stream without a close handshake.
func (c *Client) Dispose() error {
	return c.s.Close()
}

// WithClient connects to addr, runs fn with a Client and disposes of it
// afterwards. fn is responsible for calling Close when it wants the
// graceful handshake.
func WithClient(ctx context.Context, addr string, cfg transport.Config, desc *protocol.Descriptors, fn func(ctx context.Context, c *Client) error) error {
	return transport.RunClient[protocol.Request, protocol.Response](ctx, addr, cfg, desc.Request, desc.Response,
		func(ctx context.Context, s stream.ObjectStream[protocol.Response, protocol.Request]) error {
			c := NewClient(s)
			defer c.Dispose()
			return fn(ctx, c)
		})
}

// NewServer wires a transport server that answers requests with factory.
func NewServer(cfg transport.Config, desc *protocol.Descriptors, factory ServiceFactory, opts ...transport.Option) *transport.Server[protocol.Request, protocol.Response] {
	return transport.NewServer[protocol.Request, protocol.Response](cfg, desc.Request, desc.Response, PeerHandler(factory), opts...)
}
