package typetraits

// preallocation cap for decoded collections; counts come off the wire.
const maxPrealloc = 1024

type listDescriptor[T any] struct {
	item Descriptor[T]
}

// ListOf describes an ordered sequence. Ordering is lexicographic with a
// shorter prefix sorting first; the encoding is an int32 count followed by
// the elements in order.
func ListOf[T any](item Descriptor[T]) Descriptor[[]T] {
	return listDescriptor[T]{item: item}
}

func (d listDescriptor[T]) Compare(a, b []T) int {
	return compareSeq(d.item, a, b)
}

func (d listDescriptor[T]) AddToHash(h HashBuilder, a []T) {
	h.AddToken(TokenList)
	h.AddInt32(int32(len(a)))
	for _, v := range a {
		d.item.AddToHash(h, v)
	}
}

func (d listDescriptor[T]) CanSerialize(a []T) bool {
	for _, v := range a {
		if !d.item.CanSerialize(v) {
			return false
		}
	}
	return true
}

func (d listDescriptor[T]) Serialize(w *Writer, a []T) error {
	if err := w.WriteCount(len(a)); err != nil {
		return err
	}
	for _, v := range a {
		if err := d.item.Serialize(w, v); err != nil {
			return err
		}
	}
	return nil
}

func (d listDescriptor[T]) Deserialize(r *Reader) ([]T, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		v, err := d.item.Deserialize(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d listDescriptor[T]) MeasureBytes(a []T) int64 {
	total := int64(4)
	for _, v := range a {
		total += d.item.MeasureBytes(v)
	}
	return total
}

func compareSeq[T any](item Descriptor[T], a, b []T) int {
	for i := 0; ; i++ {
		switch {
		case i == len(a) && i == len(b):
			return 0
		case i == len(a):
			return -1
		case i == len(b):
			return 1
		}
		if r := item.Compare(a[i], b[i]); r != 0 {
			return r
		}
	}
}
