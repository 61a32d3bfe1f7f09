// Package stream frames descriptor-encoded values over a byte connection.
//
// There is no length prefix: a frame ends exactly where the read descriptor
// stops consuming. End of stream is a half-close of the write side, observed
// by the peer as a clean EOF at a frame boundary.
package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/macroctl/internal/typetraits"
)

var (
	ErrTruncatedFrame       = errors.New("stream: truncated frame")
	ErrWriteAfterEOF        = errors.New("stream: write after EOF")
	ErrHalfCloseUnsupported = errors.New("stream: half-close unsupported")
	ErrClosed               = errors.New("stream: closed")
)

// ObjectStream is a bidirectional typed channel: it reads R and writes W.
type ObjectStream[R, W any] interface {
	// ReadObjectOrEOF returns the next value, or ok == false with a nil error
	// once the peer has signalled EOF.
	ReadObjectOrEOF(ctx context.Context) (v R, ok bool, err error)
	Write(ctx context.Context, v W) error
	// SignalEOF half-closes the write side. Further writes fail.
	SignalEOF() error
	Close() error
}

// Config bounds per-operation blocking and decode memory.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Limits       typetraits.Limits
}

// DefaultConfig leaves reads unbounded; a connection may idle between
// requests for as long as the peer likes.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 15 * time.Second,
		Limits:       typetraits.DefaultLimits(),
	}
}

type halfCloser interface {
	CloseWrite() error
}

// Conn is an ObjectStream over a net.Conn.
type Conn[R, W any] struct {
	conn      net.Conn
	br        *bufio.Reader
	readDesc  typetraits.Descriptor[R]
	writeDesc typetraits.Descriptor[W]
	cfg       Config

	readMu  sync.Mutex
	writeMu sync.Mutex
	eofSent bool

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

func New[R, W any](conn net.Conn, readDesc typetraits.Descriptor[R], writeDesc typetraits.Descriptor[W], cfg Config) *Conn[R, W] {
	return &Conn[R, W]{
		conn:      conn,
		br:        bufio.NewReader(conn),
		readDesc:  readDesc,
		writeDesc: writeDesc,
		cfg:       cfg,
		closed:    make(chan struct{}),
	}
}

func (c *Conn[R, W]) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn[R, W]) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn[R, W]) ReadObjectOrEOF(ctx context.Context) (R, bool, error) {
	var zero R
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.isClosed() {
		return zero, false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	stop := c.bindDeadline(ctx, c.conn.SetReadDeadline, c.cfg.ReadTimeout)
	defer stop()

	if _, err := c.br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, false, nil
		}
		return zero, false, c.opError(ctx, "read", err)
	}

	v, err := c.readDesc.Deserialize(typetraits.NewReaderWithLimits(c.br, c.cfg.Limits))
	if err != nil {
		if errors.Is(err, typetraits.ErrTruncated) {
			return zero, false, fmt.Errorf("%w: %w", ErrTruncatedFrame, err)
		}
		return zero, false, c.opError(ctx, "decode", err)
	}
	return v, true, nil
}

// Write encodes v in full before touching the socket, so an encode failure
// never leaves a partial frame on the wire.
func (c *Conn[R, W]) Write(ctx context.Context, v W) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if c.eofSent {
		return ErrWriteAfterEOF
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := typetraits.SerializeToBytes(c.writeDesc, v)
	if err != nil {
		return fmt.Errorf("stream: encode: %w", err)
	}

	stop := c.bindDeadline(ctx, c.conn.SetWriteDeadline, c.cfg.WriteTimeout)
	defer stop()
	if _, err := c.conn.Write(data); err != nil {
		return c.opError(ctx, "write", err)
	}
	return nil
}

func (c *Conn[R, W]) SignalEOF() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if c.eofSent {
		return nil
	}
	hc, ok := c.conn.(halfCloser)
	if !ok {
		return ErrHalfCloseUnsupported
	}
	if err := hc.CloseWrite(); err != nil {
		return fmt.Errorf("stream: half-close: %w", err)
	}
	c.eofSent = true
	return nil
}

// Close releases the connection. Every call returns the first result.
func (c *Conn[R, W]) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// bindDeadline applies the per-operation timeout and forces the deadline
// into the past when ctx is cancelled mid-operation.
func (c *Conn[R, W]) bindDeadline(ctx context.Context, set func(time.Time) error, timeout time.Duration) func() {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = set(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = set(time.Unix(1, 0))
	})
	return func() { stop() }
}

func (c *Conn[R, W]) opError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if c.isClosed() && errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("stream: %s: %w", op, err)
}
