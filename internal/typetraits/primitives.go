package typetraits

import (
	"cmp"
	"strings"
)

type stringDescriptor struct{}

// String orders by bytes (ordinal) and encodes as a length-prefixed UTF-8
// string. Round trips are exact for valid UTF-8; invalid bytes decode as
// U+FFFD.
func String() Descriptor[string] {
	return stringDescriptor{}
}

func (stringDescriptor) Compare(a, b string) int {
	return strings.Compare(a, b)
}

func (stringDescriptor) AddToHash(h HashBuilder, a string) {
	h.AddToken(TokenString)
	h.AddInt32(int32(len(a)))
	h.AddBytes([]byte(a))
}

func (stringDescriptor) CanSerialize(string) bool { return true }

func (stringDescriptor) Serialize(w *Writer, a string) error {
	return w.WriteString(a)
}

func (stringDescriptor) Deserialize(r *Reader) (string, error) {
	return r.ReadString()
}

func (stringDescriptor) MeasureBytes(a string) int64 {
	return uvarintLen(uint64(len(a))) + int64(len(a))
}

type int32Descriptor struct{}

func Int32() Descriptor[int32] {
	return int32Descriptor{}
}

func (int32Descriptor) Compare(a, b int32) int {
	return cmp.Compare(a, b)
}

func (int32Descriptor) AddToHash(h HashBuilder, a int32) {
	h.AddToken(TokenInt32)
	h.AddInt32(a)
}

func (int32Descriptor) CanSerialize(int32) bool { return true }

func (int32Descriptor) Serialize(w *Writer, a int32) error {
	return w.WriteInt32(a)
}

func (int32Descriptor) Deserialize(r *Reader) (int32, error) {
	return r.ReadInt32()
}

func (int32Descriptor) MeasureBytes(int32) int64 { return 4 }

type boolDescriptor struct{}

// Bool orders false before true.
func Bool() Descriptor[bool] {
	return boolDescriptor{}
}

func (boolDescriptor) Compare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func (boolDescriptor) AddToHash(h HashBuilder, a bool) {
	h.AddToken(TokenBoolean)
	if a {
		h.AddByte(1)
	} else {
		h.AddByte(0)
	}
}

func (boolDescriptor) CanSerialize(bool) bool { return true }

func (boolDescriptor) Serialize(w *Writer, a bool) error {
	return w.WriteBool(a)
}

func (boolDescriptor) Deserialize(r *Reader) (bool, error) {
	return r.ReadBool()
}

func (boolDescriptor) MeasureBytes(bool) int64 { return 1 }

type unitDescriptor[T any] struct {
	token HashToken
	value T
}

// Unit describes a single-valued type: every value compares equal, hashes to
// its token alone and occupies zero bytes on the wire.
func Unit[T any](token HashToken, value T) Descriptor[T] {
	return unitDescriptor[T]{token: token, value: value}
}

func (unitDescriptor[T]) Compare(T, T) int { return 0 }

func (u unitDescriptor[T]) AddToHash(h HashBuilder, _ T) {
	h.AddToken(u.token)
}

func (unitDescriptor[T]) CanSerialize(T) bool { return true }

func (unitDescriptor[T]) Serialize(*Writer, T) error { return nil }

func (u unitDescriptor[T]) Deserialize(*Reader) (T, error) {
	return u.value, nil
}

func (unitDescriptor[T]) MeasureBytes(T) int64 { return 0 }
