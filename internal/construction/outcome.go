// Package construction implements the composable execution substrate that
// every codeatlas analysis routine is built on: the Outcome algebra, the
// Confidence model, the Construction contract with its streaming event
// protocol, and the combinators that compose fallible, confidence-scored
// steps into larger pipelines without losing provenance.
package construction

// Outcome is the sole return shape of a Construction: either Ok carrying a
// value, or Fail carrying an error, an optional partial value, and the id
// of the Construction that produced the failure.
type Outcome[T any] struct {
	value   T
	partial *T
	err     *Error
	ok      bool
}

// Ok returns a success outcome.
func Ok[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, ok: true}
}

// FailErr returns a failure outcome with no partial value.
// sourceID identifies the Construction that produced the failure and is
// preserved through every layer of combinator wrapping.
func FailErr[T any](err *Error, sourceID string) Outcome[T] {
	return Outcome[T]{err: err.withSource(sourceID)}
}

// FailPartial returns a failure outcome that still carries a partial value,
// e.g. an analysis that classified half its targets before giving up.
func FailPartial[T any](err *Error, partial T, sourceID string) Outcome[T] {
	return Outcome[T]{err: err.withSource(sourceID), partial: &partial}
}

// fromError adopts an existing failure without touching its source id.
// Combinators use this to pass a child's failure through untouched.
func fromError[T any](err *Error) Outcome[T] {
	return Outcome[T]{err: err}
}

// IsOk reports whether the outcome is the success variant.
func (o Outcome[T]) IsOk() bool { return o.ok }

// Value returns the success value. Only meaningful when IsOk is true.
func (o Outcome[T]) Value() T { return o.value }

// Err returns the failure error, or nil for a success outcome.
func (o Outcome[T]) Err() *Error { return o.err }

// Partial returns the partial value attached to a failure, if any.
func (o Outcome[T]) Partial() (T, bool) {
	if o.partial == nil {
		var zero T
		return zero, false
	}
	return *o.partial, true
}

// SourceID returns the id of the Construction that produced the failure,
// or "" for a success outcome.
func (o Outcome[T]) SourceID() string {
	if o.err == nil {
		return ""
	}
	return o.err.SourceID
}
