package typetraits

import (
	"fmt"
	"iter"
	"slices"
)

// SortedDict is an immutable map kept in key-descriptor order. Obtain one
// from a DictDescriptor. The zero value is an empty dictionary that can be
// read but not extended; Set on it panics with ErrUnboundContainer.
type SortedDict[K, V any] struct {
	keys   []K
	values []V
	key    Descriptor[K]
}

func (m SortedDict[K, V]) Len() int {
	return len(m.keys)
}

func (m SortedDict[K, V]) find(k K) (int, bool) {
	if m.key == nil {
		return 0, false
	}
	return slices.BinarySearchFunc(m.keys, k, m.key.Compare)
}

func (m SortedDict[K, V]) Get(k K) (V, bool) {
	i, found := m.find(k)
	if !found {
		var zero V
		return zero, false
	}
	return m.values[i], true
}

func (m SortedDict[K, V]) Has(k K) bool {
	_, found := m.find(k)
	return found
}

// Set returns a dictionary with k bound to v; the receiver is unchanged.
func (m SortedDict[K, V]) Set(k K, v V) SortedDict[K, V] {
	if m.key == nil {
		panic(fmt.Errorf("%w: SortedDict[%s, %s]", ErrUnboundContainer, typeName[K](), typeName[V]()))
	}
	i, found := m.find(k)
	values := slices.Clone(m.values)
	if found {
		values[i] = v
		return SortedDict[K, V]{keys: m.keys, values: values, key: m.key}
	}
	return SortedDict[K, V]{
		keys:   slices.Insert(slices.Clone(m.keys), i, k),
		values: slices.Insert(values, i, v),
		key:    m.key,
	}
}

// Delete returns a dictionary without k; the receiver is unchanged.
func (m SortedDict[K, V]) Delete(k K) SortedDict[K, V] {
	i, found := m.find(k)
	if !found {
		return m
	}
	return SortedDict[K, V]{
		keys:   slices.Delete(slices.Clone(m.keys), i, i+1),
		values: slices.Delete(slices.Clone(m.values), i, i+1),
		key:    m.key,
	}
}

func (m SortedDict[K, V]) Keys() []K {
	return slices.Clone(m.keys)
}

func (m SortedDict[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i, k := range m.keys {
			if !yield(k, m.values[i]) {
				return
			}
		}
	}
}

// DictDescriptor describes SortedDict values.
type DictDescriptor[K, V any] struct {
	key   Descriptor[K]
	value Descriptor[V]
}

func DictOf[K, V any](key Descriptor[K], value Descriptor[V]) *DictDescriptor[K, V] {
	return &DictDescriptor[K, V]{key: key, value: value}
}

func (d *DictDescriptor[K, V]) Empty() SortedDict[K, V] {
	return SortedDict[K, V]{key: d.key}
}

// New builds a dictionary from pairs; a later pair wins over an earlier one
// with an equal key.
func (d *DictDescriptor[K, V]) New(pairs ...Tuple2[K, V]) SortedDict[K, V] {
	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, func(a, b Tuple2[K, V]) int {
		return d.key.Compare(a.First, b.First)
	})
	m := SortedDict[K, V]{key: d.key}
	for _, p := range sorted {
		if n := len(m.keys); n > 0 && d.key.Compare(m.keys[n-1], p.First) == 0 {
			m.values[n-1] = p.Second
			continue
		}
		m.keys = append(m.keys, p.First)
		m.values = append(m.values, p.Second)
	}
	return m
}

// Compare walks the union of both key sets in order. A key present on only
// one side ranks the side missing it lower; shared keys compare by value.
func (d *DictDescriptor[K, V]) Compare(a, b SortedDict[K, V]) int {
	i, j := 0, 0
	for i < len(a.keys) && j < len(b.keys) {
		switch c := d.key.Compare(a.keys[i], b.keys[j]); {
		case c < 0:
			return 1
		case c > 0:
			return -1
		}
		if r := d.value.Compare(a.values[i], b.values[j]); r != 0 {
			return r
		}
		i++
		j++
	}
	switch {
	case i < len(a.keys):
		return 1
	case j < len(b.keys):
		return -1
	}
	return 0
}

func (d *DictDescriptor[K, V]) AddToHash(h HashBuilder, a SortedDict[K, V]) {
	h.AddToken(TokenDictionary)
	h.AddInt32(int32(len(a.keys)))
	for i, k := range a.keys {
		d.key.AddToHash(h, k)
		d.value.AddToHash(h, a.values[i])
	}
}

func (d *DictDescriptor[K, V]) CanSerialize(a SortedDict[K, V]) bool {
	for i, k := range a.keys {
		if !d.key.CanSerialize(k) || !d.value.CanSerialize(a.values[i]) {
			return false
		}
	}
	return true
}

func (d *DictDescriptor[K, V]) Serialize(w *Writer, a SortedDict[K, V]) error {
	if err := w.WriteCount(len(a.keys)); err != nil {
		return err
	}
	for i, k := range a.keys {
		if err := d.key.Serialize(w, k); err != nil {
			return err
		}
		if err := d.value.Serialize(w, a.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DictDescriptor[K, V]) Deserialize(r *Reader) (SortedDict[K, V], error) {
	n, err := r.ReadCount()
	if err != nil {
		return SortedDict[K, V]{}, err
	}
	pairs := make([]Tuple2[K, V], 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		k, err := d.key.Deserialize(r)
		if err != nil {
			return SortedDict[K, V]{}, err
		}
		v, err := d.value.Deserialize(r)
		if err != nil {
			return SortedDict[K, V]{}, err
		}
		pairs = append(pairs, MakeTuple2(k, v))
	}
	return d.New(pairs...), nil
}

func (d *DictDescriptor[K, V]) MeasureBytes(a SortedDict[K, V]) int64 {
	total := int64(4)
	for i, k := range a.keys {
		total += d.key.MeasureBytes(k) + d.value.MeasureBytes(a.values[i])
	}
	return total
}
