package typetraits

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"

	"github.com/cespare/xxhash/v2"
)

// HashToken tags the shape being hashed so that values of different shapes
// with coincidentally identical byte contributions never collide.
type HashToken uint32

const (
	TokenString     HashToken = 0x53545247 // "STRG"
	TokenInt32      HashToken = 0x494E5434 // "INT4"
	TokenBoolean    HashToken = 0x424F4F4C // "BOOL"
	TokenTuple2     HashToken = 0x54555032 // "TUP2"
	TokenTuple3     HashToken = 0x54555033 // "TUP3"
	TokenList       HashToken = 0x4C495354 // "LIST"
	TokenSet        HashToken = 0x53455420 // "SET "
	TokenDictionary HashToken = 0x44494354 // "DICT"
	TokenUnion      HashToken = 0x554E494F // "UNIO"
)

// HashBuilder is the byte-accumulating sink descriptors feed.
type HashBuilder interface {
	AddToken(t HashToken)
	AddByte(b byte)
	AddInt32(v int32)
	AddBytes(b []byte)
}

type hashSink struct {
	h       hash.Hash
	scratch [4]byte
}

func (s *hashSink) AddToken(t HashToken) {
	binary.LittleEndian.PutUint32(s.scratch[:], uint32(t))
	_, _ = s.h.Write(s.scratch[:])
}

func (s *hashSink) AddByte(b byte) {
	s.scratch[0] = b
	_, _ = s.h.Write(s.scratch[:1])
}

func (s *hashSink) AddInt32(v int32) {
	binary.LittleEndian.PutUint32(s.scratch[:], uint32(v))
	_, _ = s.h.Write(s.scratch[:])
}

func (s *hashSink) AddBytes(b []byte) {
	_, _ = s.h.Write(b)
}

// BasicHashBuilder produces a fast non-cryptographic hash suitable for hash
// tables and equality adapters.
type BasicHashBuilder struct {
	hashSink
	d *xxhash.Digest
}

func NewBasicHashBuilder() *BasicHashBuilder {
	d := xxhash.New()
	return &BasicHashBuilder{hashSink: hashSink{h: d}, d: d}
}

// Sum64 returns the full 64-bit digest.
func (b *BasicHashBuilder) Sum64() uint64 {
	return b.d.Sum64()
}

// Result folds the digest into 32 bits.
func (b *BasicHashBuilder) Result() int32 {
	sum := b.d.Sum64()
	return int32(uint32(sum>>32) ^ uint32(sum))
}

// SHA256HashBuilder produces a content digest stable across processes.
type SHA256HashBuilder struct {
	hashSink
}

func NewSHA256HashBuilder() *SHA256HashBuilder {
	return &SHA256HashBuilder{hashSink: hashSink{h: sha256.New()}}
}

func (b *SHA256HashBuilder) Result() [32]byte {
	var out [32]byte
	copy(out[:], b.h.Sum(nil))
	return out
}
