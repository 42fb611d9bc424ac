package core

import "errors"

// Taxonomy of engine errors. Structural errors (duplicate binds, loops) are
// reported synchronously at bind time and never enter the data path; ErrClosed
// and domain errors travel exclusively through the Result channel,
// downstream-only.
var (
	// ErrClosed marks graceful end-of-stream. It is a reserved terminal
	// marker, not a domain fault.
	ErrClosed = errors.New("signal closed")

	// ErrAlreadyClosed is returned by a send attempted on a node that has
	// already delivered a failure downstream.
	ErrAlreadyClosed = errors.New("signal already closed")

	// ErrDuplicateInput is reported when a second antecedent is bound to a
	// node's upstream slot outside a merged input.
	ErrDuplicateInput = errors.New("duplicate input binding")

	// ErrDuplicateListener is reported when a second consumer attaches to a
	// single-listener node. Multi-listener adapters lift this restriction.
	ErrDuplicateListener = errors.New("duplicate listener on single-listener signal")

	// ErrLoopDetected is reported at bind time when a join would route a
	// node's output back into one of its own ancestors.
	ErrLoopDetected = errors.New("loop detected in signal graph")

	// ErrCancelled marks a stream torn down by cancellation rather than by
	// its producer.
	ErrCancelled = errors.New("signal cancelled")
)

// Closed reports whether err represents graceful end-of-stream
func Closed(err error) bool {
	return errors.Is(err, ErrClosed)
}
