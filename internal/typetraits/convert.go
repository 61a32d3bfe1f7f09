package typetraits

type convertDescriptor[T, U any] struct {
	to    func(T) U
	inner Descriptor[U]
	from  func(U) T
}

// Convert gives T an isomorphic view onto an already-described U. Every
// operation maps through to and delegates; Deserialize maps back through from.
func Convert[T, U any](to func(T) U, inner Descriptor[U], from func(U) T) Descriptor[T] {
	return convertDescriptor[T, U]{to: to, inner: inner, from: from}
}

func (d convertDescriptor[T, U]) Compare(a, b T) int {
	return d.inner.Compare(d.to(a), d.to(b))
}

func (d convertDescriptor[T, U]) AddToHash(h HashBuilder, a T) {
	d.inner.AddToHash(h, d.to(a))
}

func (d convertDescriptor[T, U]) CanSerialize(a T) bool {
	return d.inner.CanSerialize(d.to(a))
}

func (d convertDescriptor[T, U]) Serialize(w *Writer, a T) error {
	return d.inner.Serialize(w, d.to(a))
}

func (d convertDescriptor[T, U]) Deserialize(r *Reader) (T, error) {
	u, err := d.inner.Deserialize(r)
	if err != nil {
		var zero T
		return zero, err
	}
	return d.from(u), nil
}

func (d convertDescriptor[T, U]) MeasureBytes(a T) int64 {
	return d.inner.MeasureBytes(d.to(a))
}

type guardDescriptor[T any] struct {
	ok    func(T) bool
	inner Descriptor[T]
	name  string
}

// Guard delegates to inner only for values accepted by ok. Rejected values
// fail every operation with a *GuardError, including values produced by
// Deserialize.
func Guard[T any](ok func(T) bool, inner Descriptor[T]) Descriptor[T] {
	return guardDescriptor[T]{ok: ok, inner: inner, name: typeName[T]()}
}

func (d guardDescriptor[T]) fail() *GuardError {
	return &GuardError{Type: d.name}
}

func (d guardDescriptor[T]) Compare(a, b T) int {
	if !d.ok(a) || !d.ok(b) {
		panic(d.fail())
	}
	return d.inner.Compare(a, b)
}

func (d guardDescriptor[T]) AddToHash(h HashBuilder, a T) {
	if !d.ok(a) {
		panic(d.fail())
	}
	d.inner.AddToHash(h, a)
}

func (d guardDescriptor[T]) CanSerialize(a T) bool {
	return d.ok(a) && d.inner.CanSerialize(a)
}

func (d guardDescriptor[T]) Serialize(w *Writer, a T) error {
	if !d.ok(a) {
		return d.fail()
	}
	return d.inner.Serialize(w, a)
}

func (d guardDescriptor[T]) Deserialize(r *Reader) (T, error) {
	v, err := d.inner.Deserialize(r)
	if err != nil {
		return v, err
	}
	if !d.ok(v) {
		var zero T
		return zero, d.fail()
	}
	return v, nil
}

func (d guardDescriptor[T]) MeasureBytes(a T) int64 {
	if !d.ok(a) {
		panic(d.fail())
	}
	return d.inner.MeasureBytes(a)
}
