package services

// Optional distinguishes a field that was never supplied from one explicitly
// set, including to its zero value. Parsed line items use it for quantity,
// price and amount so the derivation rules can tell "0" apart from "missing".
type Optional[T any] struct {
	value    T
	provided bool
}

// Some returns a provided Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, provided: true}
}

// None returns a not-provided Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Provided reports whether a value was supplied.
func (o Optional[T]) Provided() bool {
	return o.provided
}

// Value returns the held value and whether it was supplied.
func (o Optional[T]) Value() (T, bool) {
	return o.value, o.provided
}

// Or returns the held value, or fallback when not supplied.
func (o Optional[T]) Or(fallback T) T {
	if o.provided {
		return o.value
	}
	return fallback
}
