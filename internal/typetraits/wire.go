package typetraits

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"
)

// Limits constrains decode memory use for untrusted input.
type Limits struct {
	MaxStringBytes uint64
	MaxCount       int32
	MaxDepth       int
}

func DefaultLimits() Limits {
	return Limits{
		MaxStringBytes: 16 * 1024 * 1024,
		MaxCount:       1 << 20,
		MaxDepth:       256,
	}
}

// Writer encodes wire primitives: 7-bit-group length-prefixed UTF-8 strings,
// little-endian int32 values and single-byte booleans.
type Writer struct {
	w       io.Writer
	n       int64
	scratch [binary.MaxVarintLen64]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Written reports the number of bytes emitted so far.
func (w *Writer) Written() int64 {
	return w.n
}

func (w *Writer) write(b []byte) error {
	n, err := w.w.Write(b)
	w.n += int64(n)
	return err
}

func (w *Writer) WriteByte(b byte) error {
	w.scratch[0] = b
	return w.write(w.scratch[:1])
}

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteByte(1)
	}
	return w.WriteByte(0)
}

func (w *Writer) WriteInt32(v int32) error {
	binary.LittleEndian.PutUint32(w.scratch[:4], uint32(v))
	return w.write(w.scratch[:4])
}

// WriteCount writes a collection length as int32.
func (w *Writer) WriteCount(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return ErrLimitExceeded
	}
	return w.WriteInt32(int32(n))
}

func (w *Writer) WriteString(s string) error {
	if uint64(len(s)) > math.MaxInt32 {
		return ErrLimitExceeded
	}
	n := binary.PutUvarint(w.scratch[:], uint64(len(s)))
	if err := w.write(w.scratch[:n]); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return w.write([]byte(s))
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

// Reader decodes wire primitives. It never reads past the bytes a value
// occupies when the source implements io.ByteReader (bufio.Reader,
// bytes.Reader); other sources are wrapped in a bufio.Reader.
type Reader struct {
	r       byteReader
	limits  Limits
	depth   int
	scratch [4]byte
}

func NewReader(r io.Reader) *Reader {
	return NewReaderWithLimits(r, DefaultLimits())
}

func NewReaderWithLimits(r io.Reader, limits Limits) *Reader {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br, limits: limits}
}

func (r *Reader) Limits() Limits {
	return r.limits
}

func (r *Reader) ReadByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, truncated(err)
	}
	return b, nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidBool
	}
}

func (r *Reader) ReadInt32() (int32, error) {
	if _, err := io.ReadFull(r.r, r.scratch[:]); err != nil {
		return 0, truncated(err)
	}
	return int32(binary.LittleEndian.Uint32(r.scratch[:])), nil
}

// ReadCount reads a collection length and validates it against the limits.
func (r *Reader) ReadCount() (int, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrNegativeCount
	}
	if r.limits.MaxCount > 0 && n > r.limits.MaxCount {
		return 0, ErrLimitExceeded
	}
	return int(n), nil
}

// ReadString decodes a length-prefixed string. Each byte that is not part of
// a valid UTF-8 sequence is replaced with U+FFFD.
func (r *Reader) ReadString() (string, error) {
	n, err := binary.ReadUvarint(r.r)
	if err != nil {
		return "", truncated(err)
	}
	if n > math.MaxInt32 || (r.limits.MaxStringBytes > 0 && n > r.limits.MaxStringBytes) {
		return "", ErrLimitExceeded
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", truncated(err)
	}
	if !utf8.Valid(buf) {
		return string([]rune(string(buf))), nil
	}
	return string(buf), nil
}

func (r *Reader) enter() error {
	r.depth++
	if r.limits.MaxDepth > 0 && r.depth > r.limits.MaxDepth {
		r.depth--
		return ErrLimitExceeded
	}
	return nil
}

func (r *Reader) leave() {
	r.depth--
}

// uvarintLen is the encoded size of a string length prefix.
func uvarintLen(n uint64) int64 {
	size := int64(1)
	for n >= 0x80 {
		n >>= 7
		size++
	}
	return size
}
