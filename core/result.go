package core

import "fmt"

// Result is the envelope carried on every edge of a signal graph: either a
// success value or a terminal failure. A Failure carrying ErrClosed means
// graceful end-of-stream; any other error is a domain failure. Both terminate
// the stream that emits them.
type Result[T any] struct {
	value T
	err   error
}

// Value wraps a success value in a Result
func Value[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a terminal error in a Result
func Err[T any](err error) Result[T] {
	if err == nil {
		err = ErrClosed
	}
	return Result[T]{err: err}
}

// End returns the graceful end-of-stream Result
func End[T any]() Result[T] {
	return Result[T]{err: ErrClosed}
}

// IsFailure reports whether this Result terminates the stream
func (r Result[T]) IsFailure() bool {
	return r.err != nil
}

// Get returns the success value, or the zero value if this is a Failure
func (r Result[T]) Get() T {
	return r.value
}

// Error returns the failure error, or nil for a success
func (r Result[T]) Error() error {
	return r.err
}

// Unpack returns both halves of the envelope
func (r Result[T]) Unpack() (T, error) {
	return r.value, r.err
}

func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("failure(%v)", r.err)
	}
	return fmt.Sprintf("value(%v)", r.value)
}
