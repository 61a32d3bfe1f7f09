package typetraits

import (
	"fmt"
	"iter"
	"slices"
)

// SortedSet is an immutable set kept in descriptor order with duplicates
// (under the descriptor's equality) removed. Obtain one from a SetDescriptor.
// The zero value is an empty set that can be read but not extended; Add on
// it panics with ErrUnboundContainer.
type SortedSet[T any] struct {
	items []T
	item  Descriptor[T]
}

func (s SortedSet[T]) Len() int {
	return len(s.items)
}

// At returns the i-th element in sorted order.
func (s SortedSet[T]) At(i int) T {
	return s.items[i]
}

func (s SortedSet[T]) Items() []T {
	return slices.Clone(s.items)
}

func (s SortedSet[T]) All() iter.Seq[T] {
	return slices.Values(s.items)
}

func (s SortedSet[T]) Contains(v T) bool {
	if s.item == nil {
		return false
	}
	_, found := slices.BinarySearchFunc(s.items, v, s.item.Compare)
	return found
}

// Add returns a set containing v; the receiver is unchanged.
func (s SortedSet[T]) Add(v T) SortedSet[T] {
	if s.item == nil {
		panic(fmt.Errorf("%w: SortedSet[%s]", ErrUnboundContainer, typeName[T]()))
	}
	i, found := slices.BinarySearchFunc(s.items, v, s.item.Compare)
	if found {
		return s
	}
	return SortedSet[T]{items: slices.Insert(slices.Clone(s.items), i, v), item: s.item}
}

// Remove returns a set without v; the receiver is unchanged.
func (s SortedSet[T]) Remove(v T) SortedSet[T] {
	if s.item == nil {
		return s
	}
	i, found := slices.BinarySearchFunc(s.items, v, s.item.Compare)
	if !found {
		return s
	}
	return SortedSet[T]{items: slices.Delete(slices.Clone(s.items), i, i+1), item: s.item}
}

// SetDescriptor describes SortedSet values ordered by its element descriptor.
type SetDescriptor[T any] struct {
	item Descriptor[T]
}

func SetOf[T any](item Descriptor[T]) *SetDescriptor[T] {
	return &SetDescriptor[T]{item: item}
}

func (d *SetDescriptor[T]) Empty() SortedSet[T] {
	return SortedSet[T]{item: d.item}
}

// New builds a set from items in any order.
func (d *SetDescriptor[T]) New(items ...T) SortedSet[T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, d.item.Compare)
	sorted = slices.CompactFunc(sorted, func(a, b T) bool { return d.item.Compare(a, b) == 0 })
	return SortedSet[T]{items: sorted, item: d.item}
}

func (d *SetDescriptor[T]) Compare(a, b SortedSet[T]) int {
	return compareSeq(d.item, a.items, b.items)
}

func (d *SetDescriptor[T]) AddToHash(h HashBuilder, a SortedSet[T]) {
	h.AddToken(TokenSet)
	h.AddInt32(int32(len(a.items)))
	for _, v := range a.items {
		d.item.AddToHash(h, v)
	}
}

func (d *SetDescriptor[T]) CanSerialize(a SortedSet[T]) bool {
	for _, v := range a.items {
		if !d.item.CanSerialize(v) {
			return false
		}
	}
	return true
}

func (d *SetDescriptor[T]) Serialize(w *Writer, a SortedSet[T]) error {
	if err := w.WriteCount(len(a.items)); err != nil {
		return err
	}
	for _, v := range a.items {
		if err := d.item.Serialize(w, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *SetDescriptor[T]) Deserialize(r *Reader) (SortedSet[T], error) {
	n, err := r.ReadCount()
	if err != nil {
		return SortedSet[T]{}, err
	}
	items := make([]T, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		v, err := d.item.Deserialize(r)
		if err != nil {
			return SortedSet[T]{}, err
		}
		items = append(items, v)
	}
	return d.New(items...), nil
}

func (d *SetDescriptor[T]) MeasureBytes(a SortedSet[T]) int64 {
	total := int64(4)
	for _, v := range a.items {
		total += d.item.MeasureBytes(v)
	}
	return total
}
