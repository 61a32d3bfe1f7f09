package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/macroctl/internal/protocol"
	"github.com/danmuck/macroctl/internal/protocol/stream"
	"github.com/danmuck/macroctl/internal/testutil/testlog"
	"github.com/danmuck/macroctl/internal/transport"
	"github.com/danmuck/macroctl/internal/typetraits"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type innerError struct{}

func (innerError) Error() string { return "inner" }

type boomError struct{ cause error }

func (e *boomError) Error() string { return "boom" }
func (e *boomError) Unwrap() error { return e.cause }

// fakeService answers "Hello" with a fixed output, "boom" with an error
// chain, "panic" by panicking and "echo" with its peer-specific argument.
type fakeService struct {
	peer   net.Addr
	closed *atomic.Int32
}

func (s *fakeService) Generate(_ context.Context, name string, args []string) (protocol.Response, error) {
	switch name {
	case "Hello":
		return protocol.Output{Commands: []protocol.Command{
			protocol.PushIndent{Indent: "// "},
			protocol.WriteLine{Text: "hi"},
			protocol.PopIndent{},
		}}, nil
	case "boom":
		return nil, &boomError{cause: innerError{}}
	case "panic":
		panic("service exploded")
	case "nil":
		return nil, nil
	case "echo":
		cmds := make([]protocol.Command, 0, len(args))
		for _, a := range args {
			cmds = append(cmds, protocol.WriteLine{Text: a})
		}
		return protocol.Output{Commands: cmds}, nil
	}
	return nil, fmt.Errorf("unknown command %q", name)
}

func (s *fakeService) Close() error {
	s.closed.Add(1)
	return nil
}

type fixture struct {
	addr    string
	cfg     transport.Config
	desc    *protocol.Descriptors
	closed  atomic.Int32
	results chan transport.ConnResult
}

func startFixture(t *testing.T, desc *protocol.Descriptors, handler transport.Handler[protocol.Request, protocol.Response]) *fixture {
	t.Helper()
	f := &fixture{
		cfg:     transport.DefaultConfig(),
		desc:    desc,
		results: make(chan transport.ConnResult, 16),
	}
	f.cfg.MaxConnectAttempts = 1
	if handler == nil {
		handler = PeerHandler(func(_ context.Context, peer net.Addr) Service {
			return &fakeService{peer: peer, closed: &f.closed}
		})
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f.addr = ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	srv := transport.NewServer[protocol.Request, protocol.Response](f.cfg, desc.Request, desc.Response, handler,
		transport.WithObserver(func(r transport.ConnResult) { f.results <- r }))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func (f *fixture) result(t *testing.T) transport.ConnResult {
	t.Helper()
	select {
	case r := <-f.results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatalf("no connection result observed")
		return transport.ConnResult{}
	}
}

func TestGenerateHelloThenClose(t *testing.T) {
	testlog.Start(t)
	f := startFixture(t, protocol.NewDescriptors(), nil)

	err := WithClient(context.Background(), f.addr, f.cfg, f.desc, func(ctx context.Context, c *Client) error {
		resp, err := c.Generate(ctx, "Hello", nil)
		require.NoError(t, err)
		want := protocol.Output{Commands: []protocol.Command{
			protocol.PushIndent{Indent: "// "},
			protocol.WriteLine{Text: "hi"},
			protocol.PopIndent{},
		}}
		if diff := cmp.Diff(protocol.Response(want), resp, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("response mismatch (-want +got):\n%s", diff)
		}
		return c.Close(ctx)
	})
	require.NoError(t, err)

	r := f.result(t)
	assert.NoError(t, r.Err)
	assert.Equal(t, int32(1), f.closed.Load(), "service should be closed exactly once")
}

func TestServiceErrorBecomesRecordTree(t *testing.T) {
	testlog.Start(t)
	f := startFixture(t, protocol.NewDescriptors(), nil)

	err := WithClient(context.Background(), f.addr, f.cfg, f.desc, func(ctx context.Context, c *Client) error {
		resp, err := c.Generate(ctx, "boom", nil)
		require.NoError(t, err)
		want := protocol.Error{Record: protocol.ExceptionRecord{
			TypeName: "*session.boomError",
			Message:  "boom",
			Causes: []protocol.ExceptionRecord{
				{TypeName: "session.innerError", Message: "inner"},
			},
		}}
		if diff := cmp.Diff(protocol.Response(want), resp, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("response mismatch (-want +got):\n%s", diff)
		}

		// the connection survives an error response
		resp, err = c.Generate(ctx, "Hello", nil)
		require.NoError(t, err)
		assert.IsType(t, protocol.Output{}, resp)
		return c.Close(ctx)
	})
	require.NoError(t, err)
}

func TestServicePanicAndNilBecomeErrors(t *testing.T) {
	testlog.Start(t)
	f := startFixture(t, protocol.NewDescriptors(), nil)

	err := WithClient(context.Background(), f.addr, f.cfg, f.desc, func(ctx context.Context, c *Client) error {
		resp, err := c.Generate(ctx, "panic", nil)
		require.NoError(t, err)
		e, ok := resp.(protocol.Error)
		require.True(t, ok, "got %T", resp)
		assert.Equal(t, "service exploded", e.Record.Message)

		resp, err = c.Generate(ctx, "nil", nil)
		require.NoError(t, err)
		e, ok = resp.(protocol.Error)
		require.True(t, ok, "got %T", resp)
		assert.Equal(t, ErrNoResponse.Error(), e.Record.Message)
		return c.Close(ctx)
	})
	require.NoError(t, err)
}

type ping struct{}

func (ping) RequestKind() string { return "Ping" }

func pingDescriptors() *protocol.Descriptors {
	return protocol.NewDescriptors(protocol.WithRequestCases(
		typetraits.Case[protocol.Request]("Ping", typetraits.Unit(typetraits.HashToken(0x50494E47), ping{})),
	))
}

func TestUnknownRequestKeepsConnectionOpen(t *testing.T) {
	testlog.Start(t)
	desc := pingDescriptors()
	f := startFixture(t, desc, nil)

	err := transport.RunClient[protocol.Request, protocol.Response](context.Background(), f.addr, f.cfg, desc.Request, desc.Response,
		func(ctx context.Context, s stream.ObjectStream[protocol.Response, protocol.Request]) error {
			require.NoError(t, s.Write(ctx, ping{}))
			resp, ok, err := s.ReadObjectOrEOF(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			want := protocol.Error{Record: protocol.UnknownRequestRecord()}
			if diff := cmp.Diff(protocol.Response(want), resp, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("response mismatch (-want +got):\n%s", diff)
			}

			c := NewClient(s)
			resp, err = c.Generate(ctx, "Hello", nil)
			require.NoError(t, err)
			assert.IsType(t, protocol.Output{}, resp)
			return c.Close(ctx)
		})
	require.NoError(t, err)
	assert.NoError(t, f.result(t).Err)
}

func TestUndeclaredCaseEndsConnection(t *testing.T) {
	testlog.Start(t)
	f := startFixture(t, protocol.NewDescriptors(), nil)
	desc := pingDescriptors()

	err := transport.RunClient[protocol.Request, protocol.Response](context.Background(), f.addr, f.cfg, desc.Request, desc.Response,
		func(ctx context.Context, s stream.ObjectStream[protocol.Response, protocol.Request]) error {
			require.NoError(t, s.Write(ctx, ping{}))
			_, ok, err := s.ReadObjectOrEOF(ctx)
			assert.False(t, ok)
			// the server drops the connection: either a clean EOF or a reset
			_ = err
			return nil
		})
	require.NoError(t, err)

	r := f.result(t)
	assert.ErrorIs(t, r.Err, typetraits.ErrUnrecognizedCase)
	assert.Equal(t, int32(1), f.closed.Load())
}

func TestCloseRejectsResponseToEOF(t *testing.T) {
	testlog.Start(t)
	desc := protocol.NewDescriptors()
	f := startFixture(t, desc, func(ctx context.Context, _ net.Addr, s stream.ObjectStream[protocol.Request, protocol.Response]) error {
		if _, _, err := s.ReadObjectOrEOF(ctx); err != nil {
			return err
		}
		return s.Write(ctx, protocol.Output{})
	})

	err := WithClient(context.Background(), f.addr, f.cfg, desc, func(ctx context.Context, c *Client) error {
		return c.Close(ctx)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrProtocol)
	var pe *protocol.ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, protocol.MsgUnexpectedEOFReply, pe.Message)
}

func TestGenerateWithoutResponse(t *testing.T) {
	testlog.Start(t)
	desc := protocol.NewDescriptors()
	f := startFixture(t, desc, func(ctx context.Context, _ net.Addr, s stream.ObjectStream[protocol.Request, protocol.Response]) error {
		if _, _, err := s.ReadObjectOrEOF(ctx); err != nil {
			return err
		}
		return s.SignalEOF()
	})

	err := WithClient(context.Background(), f.addr, f.cfg, desc, func(ctx context.Context, c *Client) error {
		_, err := c.Generate(ctx, "Hello", nil)
		return err
	})
	require.Error(t, err)
	var pe *protocol.ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, protocol.MsgResponseNotReceived, pe.Message)
}

func TestConcurrentClientsAreIndependent(t *testing.T) {
	testlog.Start(t)
	f := startFixture(t, protocol.NewDescriptors(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tag := fmt.Sprintf("client-%d", i)
			err := WithClient(context.Background(), f.addr, f.cfg, f.desc, func(ctx context.Context, c *Client) error {
				for j := 0; j < 5; j++ {
					arg := fmt.Sprintf("%s-%d", tag, j)
					resp, err := c.Generate(ctx, "echo", []string{arg})
					if err != nil {
						return err
					}
					want := protocol.Output{Commands: []protocol.Command{protocol.WriteLine{Text: arg}}}
					if diff := cmp.Diff(protocol.Response(want), resp); diff != "" {
						return fmt.Errorf("%s: mismatch (-want +got):\n%s", tag, diff)
					}
				}
				return c.Close(ctx)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	f.result(t)
	f.result(t)
	assert.Equal(t, int32(2), f.closed.Load())
}

func TestServerShutdownUnblocksIdlePeer(t *testing.T) {
	testlog.Start(t)
	desc := protocol.NewDescriptors()
	f := &fixture{cfg: transport.DefaultConfig(), desc: desc}
	f.cfg.MaxConnectAttempts = 1

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(f.cfg, desc, func(_ context.Context, peer net.Addr) Service {
		return &fakeService{peer: peer, closed: &f.closed}
	})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	err = WithClient(context.Background(), ln.Addr().String(), f.cfg, desc, func(ctx context.Context, c *Client) error {
		if _, err := c.Generate(ctx, "Hello", nil); err != nil {
			return err
		}
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			return errors.New("server did not stop")
		}
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.closed.Load())
}

// slowService signals started when Generate begins, then waits for release.
type slowService struct {
	started chan struct{}
	release chan struct{}
	closed  *atomic.Int32
}

func (s *slowService) Generate(_ context.Context, name string, _ []string) (protocol.Response, error) {
	close(s.started)
	<-s.release
	return protocol.Output{Commands: []protocol.Command{protocol.WriteLine{Text: name}}}, nil
}

func (s *slowService) Close() error {
	s.closed.Add(1)
	return nil
}

func TestShutdownDuringGenerateDeliversResponse(t *testing.T) {
	testlog.Start(t)
	desc := protocol.NewDescriptors()
	cfg := transport.DefaultConfig()
	cfg.MaxConnectAttempts = 1

	var closed atomic.Int32
	svc := &slowService{started: make(chan struct{}), release: make(chan struct{}), closed: &closed}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(cfg, desc, func(context.Context, net.Addr) Service { return svc })
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	go func() {
		<-svc.started
		cancel()
		time.Sleep(100 * time.Millisecond)
		close(svc.release)
	}()

	err = WithClient(context.Background(), ln.Addr().String(), cfg, desc, func(ctx context.Context, c *Client) error {
		resp, err := c.Generate(ctx, "slow", nil)
		if err != nil {
			return err
		}
		want := protocol.Output{Commands: []protocol.Command{protocol.WriteLine{Text: "slow"}}}
		if diff := cmp.Diff(protocol.Response(want), resp); diff != "" {
			return fmt.Errorf("response mismatch (-want +got):\n%s", diff)
		}
		// the server stops after answering; its close reads as EOF
		_, ok, err := c.s.ReadObjectOrEOF(ctx)
		if err != nil {
			return err
		}
		if ok {
			return errors.New("expected EOF after the in-flight response")
		}
		return nil
	})
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
	assert.Equal(t, int32(1), closed.Load())
}
