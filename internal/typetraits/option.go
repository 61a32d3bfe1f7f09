package typetraits

// Option is a value that may be absent.
type Option[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Option[T]) IsSome() bool {
	return o.ok
}

// OrElse returns the held value or fallback.
func (o Option[T]) OrElse(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

type optionDescriptor[T any] struct {
	item Descriptor[T]
}

// OptionOf orders None before Some and encodes a presence byte followed by
// the payload when present.
func OptionOf[T any](item Descriptor[T]) Descriptor[Option[T]] {
	return optionDescriptor[T]{item: item}
}

func (d optionDescriptor[T]) Compare(a, b Option[T]) int {
	switch {
	case !a.ok && !b.ok:
		return 0
	case !a.ok:
		return -1
	case !b.ok:
		return 1
	}
	return d.item.Compare(a.value, b.value)
}

func (d optionDescriptor[T]) AddToHash(h HashBuilder, a Option[T]) {
	if !a.ok {
		h.AddByte(0)
		return
	}
	h.AddByte(1)
	d.item.AddToHash(h, a.value)
}

func (d optionDescriptor[T]) CanSerialize(a Option[T]) bool {
	return !a.ok || d.item.CanSerialize(a.value)
}

func (d optionDescriptor[T]) Serialize(w *Writer, a Option[T]) error {
	if err := w.WriteBool(a.ok); err != nil {
		return err
	}
	if !a.ok {
		return nil
	}
	return d.item.Serialize(w, a.value)
}

func (d optionDescriptor[T]) Deserialize(r *Reader) (Option[T], error) {
	ok, err := r.ReadBool()
	if err != nil {
		return Option[T]{}, err
	}
	if !ok {
		return None[T](), nil
	}
	v, err := d.item.Deserialize(r)
	if err != nil {
		return Option[T]{}, err
	}
	return Some(v), nil
}

func (d optionDescriptor[T]) MeasureBytes(a Option[T]) int64 {
	if !a.ok {
		return 1
	}
	return 1 + d.item.MeasureBytes(a.value)
}
