package typetraits

// Adapter exposes a descriptor as a general-purpose comparator for values
// that cannot be missing.
type Adapter[T any] struct {
	d Descriptor[T]
}

func NewAdapter[T any](d Descriptor[T]) Adapter[T] {
	return Adapter[T]{d: d}
}

func (a Adapter[T]) Descriptor() Descriptor[T] {
	return a.d
}

func (a Adapter[T]) Compare(x, y T) int {
	return a.d.Compare(x, y)
}

func (a Adapter[T]) Less(x, y T) bool {
	return a.d.Compare(x, y) < 0
}

func (a Adapter[T]) Equal(x, y T) bool {
	return a.d.Compare(x, y) == 0
}

func (a Adapter[T]) Hash(x T) int32 {
	return BasicHash(a.d, x)
}

// NullableAdapter compares possibly-missing values held by pointer. Two nil
// pointers are equal and nil sorts before any present value.
type NullableAdapter[T any] struct {
	d Descriptor[T]
}

func NewNullableAdapter[T any](d Descriptor[T]) NullableAdapter[T] {
	return NullableAdapter[T]{d: d}
}

func (a NullableAdapter[T]) Descriptor() Descriptor[T] {
	return a.d
}

func (a NullableAdapter[T]) Compare(x, y *T) int {
	switch {
	case x == nil && y == nil:
		return 0
	case x == nil:
		return -1
	case y == nil:
		return 1
	}
	return a.d.Compare(*x, *y)
}

func (a NullableAdapter[T]) Less(x, y *T) bool {
	return a.Compare(x, y) < 0
}

func (a NullableAdapter[T]) Equal(x, y *T) bool {
	return a.Compare(x, y) == 0
}

// Hash returns 0 for nil.
func (a NullableAdapter[T]) Hash(x *T) int32 {
	if x == nil {
		return 0
	}
	return BasicHash(a.d, *x)
}
