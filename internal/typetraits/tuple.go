package typetraits

type Tuple2[A, B any] struct {
	First  A
	Second B
}

type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func MakeTuple2[A, B any](a A, b B) Tuple2[A, B] {
	return Tuple2[A, B]{First: a, Second: b}
}

func MakeTuple3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{First: a, Second: b, Third: c}
}

type tuple2Descriptor[A, B any] struct {
	first  Descriptor[A]
	second Descriptor[B]
}

// Tuple2Of orders lexicographically by field and encodes fields back to back.
func Tuple2Of[A, B any](first Descriptor[A], second Descriptor[B]) Descriptor[Tuple2[A, B]] {
	return tuple2Descriptor[A, B]{first: first, second: second}
}

func (d tuple2Descriptor[A, B]) Compare(a, b Tuple2[A, B]) int {
	if r := d.first.Compare(a.First, b.First); r != 0 {
		return r
	}
	return d.second.Compare(a.Second, b.Second)
}

func (d tuple2Descriptor[A, B]) AddToHash(h HashBuilder, a Tuple2[A, B]) {
	h.AddToken(TokenTuple2)
	d.first.AddToHash(h, a.First)
	d.second.AddToHash(h, a.Second)
}

func (d tuple2Descriptor[A, B]) CanSerialize(a Tuple2[A, B]) bool {
	return d.first.CanSerialize(a.First) && d.second.CanSerialize(a.Second)
}

func (d tuple2Descriptor[A, B]) Serialize(w *Writer, a Tuple2[A, B]) error {
	if err := d.first.Serialize(w, a.First); err != nil {
		return err
	}
	return d.second.Serialize(w, a.Second)
}

func (d tuple2Descriptor[A, B]) Deserialize(r *Reader) (Tuple2[A, B], error) {
	first, err := d.first.Deserialize(r)
	if err != nil {
		return Tuple2[A, B]{}, err
	}
	second, err := d.second.Deserialize(r)
	if err != nil {
		return Tuple2[A, B]{}, err
	}
	return Tuple2[A, B]{First: first, Second: second}, nil
}

func (d tuple2Descriptor[A, B]) MeasureBytes(a Tuple2[A, B]) int64 {
	return d.first.MeasureBytes(a.First) + d.second.MeasureBytes(a.Second)
}

type tuple3Descriptor[A, B, C any] struct {
	first  Descriptor[A]
	second Descriptor[B]
	third  Descriptor[C]
}

func Tuple3Of[A, B, C any](first Descriptor[A], second Descriptor[B], third Descriptor[C]) Descriptor[Tuple3[A, B, C]] {
	return tuple3Descriptor[A, B, C]{first: first, second: second, third: third}
}

func (d tuple3Descriptor[A, B, C]) Compare(a, b Tuple3[A, B, C]) int {
	if r := d.first.Compare(a.First, b.First); r != 0 {
		return r
	}
	if r := d.second.Compare(a.Second, b.Second); r != 0 {
		return r
	}
	return d.third.Compare(a.Third, b.Third)
}

func (d tuple3Descriptor[A, B, C]) AddToHash(h HashBuilder, a Tuple3[A, B, C]) {
	h.AddToken(TokenTuple3)
	d.first.AddToHash(h, a.First)
	d.second.AddToHash(h, a.Second)
	d.third.AddToHash(h, a.Third)
}

func (d tuple3Descriptor[A, B, C]) CanSerialize(a Tuple3[A, B, C]) bool {
	return d.first.CanSerialize(a.First) &&
		d.second.CanSerialize(a.Second) &&
		d.third.CanSerialize(a.Third)
}

func (d tuple3Descriptor[A, B, C]) Serialize(w *Writer, a Tuple3[A, B, C]) error {
	if err := d.first.Serialize(w, a.First); err != nil {
		return err
	}
	if err := d.second.Serialize(w, a.Second); err != nil {
		return err
	}
	return d.third.Serialize(w, a.Third)
}

func (d tuple3Descriptor[A, B, C]) Deserialize(r *Reader) (Tuple3[A, B, C], error) {
	var out Tuple3[A, B, C]
	var err error
	if out.First, err = d.first.Deserialize(r); err != nil {
		return Tuple3[A, B, C]{}, err
	}
	if out.Second, err = d.second.Deserialize(r); err != nil {
		return Tuple3[A, B, C]{}, err
	}
	if out.Third, err = d.third.Deserialize(r); err != nil {
		return Tuple3[A, B, C]{}, err
	}
	return out, nil
}

func (d tuple3Descriptor[A, B, C]) MeasureBytes(a Tuple3[A, B, C]) int64 {
	return d.first.MeasureBytes(a.First) + d.second.MeasureBytes(a.Second) + d.third.MeasureBytes(a.Third)
}
