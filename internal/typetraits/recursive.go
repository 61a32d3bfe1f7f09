package typetraits

import "fmt"

// recursiveCell stands in for a descriptor that is still being built. It is
// assigned exactly once, before Recursive returns.
type recursiveCell[T any] struct {
	inner Descriptor[T]
	name  string
}

func (c *recursiveCell[T]) set(d Descriptor[T]) {
	if c.inner != nil {
		panic(fmt.Errorf("%w: %s", ErrRecursiveAlreadySet, c.name))
	}
	c.inner = d
}

func (c *recursiveCell[T]) get() Descriptor[T] {
	if c.inner == nil {
		panic(fmt.Errorf("%w: %s", ErrRecursiveUnset, c.name))
	}
	return c.inner
}

func (c *recursiveCell[T]) Compare(a, b T) int {
	return c.get().Compare(a, b)
}

func (c *recursiveCell[T]) AddToHash(h HashBuilder, a T) {
	c.get().AddToHash(h, a)
}

func (c *recursiveCell[T]) CanSerialize(a T) bool {
	return c.get().CanSerialize(a)
}

func (c *recursiveCell[T]) Serialize(w *Writer, a T) error {
	return c.get().Serialize(w, a)
}

func (c *recursiveCell[T]) Deserialize(r *Reader) (T, error) {
	d := c.get()
	if err := r.enter(); err != nil {
		var zero T
		return zero, err
	}
	defer r.leave()
	return d.Deserialize(r)
}

func (c *recursiveCell[T]) MeasureBytes(a T) int64 {
	return c.get().MeasureBytes(a)
}

// Recursive builds a self-referential descriptor in one step. build receives
// a reference to the descriptor under construction, which it may embed in
// composites but must not use until Recursive returns; doing so panics with
// ErrRecursiveUnset.
func Recursive[T any](build func(self Descriptor[T]) Descriptor[T]) Descriptor[T] {
	cell := &recursiveCell[T]{name: typeName[T]()}
	d := build(cell)
	if d == nil {
		panic(fmt.Errorf("%w: %s: build returned nil", ErrRecursiveUnset, cell.name))
	}
	cell.set(d)
	return d
}
