package typetraits

import "fmt"

// UnionCase is one named alternative of a tagged union over T.
type UnionCase[T any] struct {
	Name    string
	Matches func(T) bool
	Desc    Descriptor[T]
}

// Case declares the alternative holding values whose dynamic type is U.
// T is normally an interface that U implements.
func Case[T, U any](name string, d Descriptor[U]) UnionCase[T] {
	var zero U
	if _, ok := any(zero).(T); !ok {
		panic(fmt.Sprintf("typetraits: case %q: %s is not assignable to %s", name, typeName[U](), typeName[T]()))
	}
	return UnionCase[T]{
		Name: name,
		Matches: func(v T) bool {
			_, ok := any(v).(U)
			return ok
		},
		Desc: Convert(
			func(v T) U { return any(v).(U) },
			d,
			func(u U) T { return any(u).(T) },
		),
	}
}

// ConvertCase declares an alternative selected by matches and represented
// through the to/from mapping.
func ConvertCase[T, U any](name string, matches func(T) bool, to func(T) U, d Descriptor[U], from func(U) T) UnionCase[T] {
	return UnionCase[T]{Name: name, Matches: matches, Desc: Convert(to, d, from)}
}

// Union is a tagged-union descriptor. Encoding picks the first case whose
// predicate accepts the value and writes the case name followed by the case
// payload. Decoding looks the name up exactly; unknown names fail.
type Union[T any] struct {
	cases []UnionCase[T]
	index map[string]int
	name  string
}

func NewUnion[T any](cases ...UnionCase[T]) (*Union[T], error) {
	u := &Union[T]{
		cases: make([]UnionCase[T], len(cases)),
		index: make(map[string]int, len(cases)),
		name:  typeName[T](),
	}
	copy(u.cases, cases)
	for i, c := range cases {
		if c.Name == "" || c.Matches == nil || c.Desc == nil {
			return nil, fmt.Errorf("typetraits: union %s case %d is incomplete", u.name, i)
		}
		if _, dup := u.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateCase, c.Name, u.name)
		}
		u.index[c.Name] = i
	}
	return u, nil
}

func MustUnion[T any](cases ...UnionCase[T]) *Union[T] {
	u, err := NewUnion(cases...)
	if err != nil {
		panic(err)
	}
	return u
}

func (u *Union[T]) caseOf(a T) int {
	for i, c := range u.cases {
		if c.Matches(a) {
			return i
		}
	}
	return -1
}

func (u *Union[T]) mustCase(a T) int {
	i := u.caseOf(a)
	if i < 0 {
		panic(&UnrecognizedCaseError{Type: u.name})
	}
	return i
}

// CaseName reports the name of the case a belongs to.
func (u *Union[T]) CaseName(a T) (string, bool) {
	i := u.caseOf(a)
	if i < 0 {
		return "", false
	}
	return u.cases[i].Name, true
}

// CaseNames lists case names in declaration order.
func (u *Union[T]) CaseNames() []string {
	names := make([]string, len(u.cases))
	for i, c := range u.cases {
		names[i] = c.Name
	}
	return names
}

func (u *Union[T]) Compare(a, b T) int {
	ca, cb := u.mustCase(a), u.mustCase(b)
	switch {
	case ca < cb:
		return -1
	case ca > cb:
		return 1
	}
	return u.cases[ca].Desc.Compare(a, b)
}

func (u *Union[T]) AddToHash(h HashBuilder, a T) {
	i := u.mustCase(a)
	h.AddToken(TokenUnion)
	h.AddInt32(int32(i))
	u.cases[i].Desc.AddToHash(h, a)
}

func (u *Union[T]) CanSerialize(a T) bool {
	i := u.caseOf(a)
	return i >= 0 && u.cases[i].Desc.CanSerialize(a)
}

func (u *Union[T]) Serialize(w *Writer, a T) error {
	i := u.caseOf(a)
	if i < 0 {
		return &UnrecognizedCaseError{Type: u.name}
	}
	if err := w.WriteString(u.cases[i].Name); err != nil {
		return err
	}
	return u.cases[i].Desc.Serialize(w, a)
}

func (u *Union[T]) Deserialize(r *Reader) (T, error) {
	name, err := r.ReadString()
	if err != nil {
		var zero T
		return zero, err
	}
	i, ok := u.index[name]
	if !ok {
		var zero T
		return zero, &UnrecognizedCaseError{Type: u.name, Name: name}
	}
	return u.cases[i].Desc.Deserialize(r)
}

func (u *Union[T]) MeasureBytes(a T) int64 {
	i := u.mustCase(a)
	return stringDescriptor{}.MeasureBytes(u.cases[i].Name) + u.cases[i].Desc.MeasureBytes(a)
}
