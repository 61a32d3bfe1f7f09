package typetraits

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/rs/zerolog/log"
)

// Descriptor is the per-type bundle of ordering, hashing, serialization and
// size prediction.
type Descriptor[T any] interface {
	// Compare is a total order returning -1, 0 or 1.
	Compare(a, b T) int
	// AddToHash contributes a shape token followed by the value's contents.
	AddToHash(h HashBuilder, a T)
	// CanSerialize reports whether Serialize is defined for a.
	CanSerialize(a T) bool
	Serialize(w *Writer, a T) error
	Deserialize(r *Reader) (T, error)
	// MeasureBytes predicts the exact length Serialize produces for a.
	MeasureBytes(a T) int64
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// SerializeToBytes encodes a into a buffer pre-sized by MeasureBytes.
func SerializeToBytes[T any](d Descriptor[T], a T) ([]byte, error) {
	var buf bytes.Buffer
	if d.CanSerialize(a) {
		buf.Grow(int(d.MeasureBytes(a)))
	}
	if err := d.Serialize(NewWriter(&buf), a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeFromBytes decodes exactly one value occupying all of b.
func DeserializeFromBytes[T any](d Descriptor[T], b []byte) (T, error) {
	src := bytes.NewReader(b)
	v, err := d.Deserialize(NewReader(src))
	if err != nil {
		var zero T
		return zero, err
	}
	if src.Len() != 0 {
		var zero T
		return zero, fmt.Errorf("%w: %d bytes", ErrTrailingBytes, src.Len())
	}
	return v, nil
}

// SerializeToFile writes a to path through a temp file and rename.
func SerializeToFile[T any](d Descriptor[T], path string, a T) error {
	data, err := SerializeToBytes(d, a)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("typetraits: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("typetraits: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("typetraits: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("typetraits: write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("typetraits: rename %s: %w", path, err)
	}
	return nil
}

func DeserializeFromFile[T any](d Descriptor[T], path string) (T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		var zero T
		return zero, err
	}
	return DeserializeFromBytes(d, data)
}

// LoadOrGenerate returns the value cached at path, regenerating and
// rewriting the cache when it is missing or unreadable.
func LoadOrGenerate[T any](d Descriptor[T], path string, generate func() (T, error)) (T, error) {
	if _, err := os.Stat(path); err == nil {
		v, err := DeserializeFromFile(d, path)
		if err == nil {
			return v, nil
		}
		log.Debug().Str("path", path).Err(err).Msg("typetraits: cached value unreadable, regenerating")
	}
	v, err := generate()
	if err != nil {
		var zero T
		return zero, err
	}
	if err := SerializeToFile(d, path, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func BasicHash[T any](d Descriptor[T], a T) int32 {
	b := NewBasicHashBuilder()
	d.AddToHash(b, a)
	return b.Result()
}

func SHA256Hash[T any](d Descriptor[T], a T) [32]byte {
	b := NewSHA256HashBuilder()
	d.AddToHash(b, a)
	return b.Result()
}

func Equal[T any](d Descriptor[T], a, b T) bool {
	return d.Compare(a, b) == 0
}
