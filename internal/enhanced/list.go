package enhanced

import "reflect"

// List is an ordered sequence with template-friendly accessors.
type List[T any] []T

// Emptier lets element types define their own notion of emptiness for
// FirstValue.
type Emptier interface {
	IsEmpty() bool
}

// First returns the element at position 0, or the zero value when empty.
func (l List[T]) First() T {
	if len(l) == 0 {
		var zero T
		return zero
	}
	return l[0]
}

// FirstValue returns the first non-empty element, or the zero value.
func (l List[T]) FirstValue() T {
	for _, item := range l {
		if !IsEmpty(item) {
			return item
		}
	}
	var zero T
	return zero
}

// Last returns the final element, or the zero value when empty.
func (l List[T]) Last() T {
	if len(l) == 0 {
		var zero T
		return zero
	}
	return l[len(l)-1]
}

// Len returns the number of elements.
func (l List[T]) Len() int { return len(l) }

// IsEmpty reports whether v counts as empty: nil, a nil pointer or
// interface, a zero-length string/slice/map/array, a zero scalar, or an
// Emptier that says so.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
	}
	if e, ok := v.(Emptier); ok {
		return e.IsEmpty()
	}
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() == 0
	case reflect.Func:
		return rv.IsNil()
	}
	return rv.IsZero()
}
