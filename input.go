package signal

import (
	"runtime"
	"sync"

	"github.com/creastat/signal/core"
)

// Input is the capability to send results into one node. An owned input
// (from Create or a generator) closes its node when the handle is collected
// without an explicit close; Retain converts it to an explicitly managed
// handle that must be closed by the caller.
type Input[T any] struct {
	mu       sync.Mutex
	recv     receiver[T]
	valid    bool
	retained bool
	joined   bool // claimed by a junction
	cleanup  *runtime.Cleanup
}

func newInput[T any](recv receiver[T], owned bool) *Input[T] {
	in := &Input[T]{recv: recv, valid: true}
	if owned {
		// The cleanup captures only the receiver, never the handle, so an
		// unreferenced input really is collectable.
		c := runtime.AddCleanup(in, func(r receiver[T]) {
			_ = r.send(core.End[T]())
		}, recv)
		in.cleanup = &c
	}
	return in
}

func (in *Input[T]) stopCleanup() {
	if in.cleanup != nil {
		in.cleanup.Stop()
	}
}

// Send delivers a success value. The error return is nil on success, or the
// closed/cancelled state of the node; producers inspect it instead of
// handling exceptions.
func (in *Input[T]) Send(v T) error {
	return in.SendResult(core.Value(v))
}

// SendResult delivers a pre-built result
func (in *Input[T]) SendResult(r core.Result[T]) error {
	in.mu.Lock()
	recv, valid := in.recv, in.valid
	in.mu.Unlock()
	if !valid {
		return core.ErrCancelled
	}
	return recv.send(r)
}

// Fail terminates the stream with a domain error
func (in *Input[T]) Fail(err error) error {
	return in.SendResult(core.Err[T](err))
}

// Close terminates the stream gracefully
func (in *Input[T]) Close() error {
	in.stopCleanup()
	return in.SendResult(core.End[T]())
}

// Retain suppresses the implicit close-on-collect and, for generator inputs,
// the deactivation notification: the generator is treated as running
// indefinitely until the caller closes the input explicitly.
func (in *Input[T]) Retain() *Input[T] {
	in.mu.Lock()
	in.retained = true
	in.mu.Unlock()
	in.stopCleanup()
	return in
}

func (in *Input[T]) isRetained() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.retained
}

// invalidate detaches the handle from its node; used when a generator cycle
// ends so a stale input cannot write into the next cycle.
func (in *Input[T]) invalidate() {
	in.mu.Lock()
	in.valid = false
	in.mu.Unlock()
	in.stopCleanup()
}

// claim marks the input as consumed by a junction join. A second claim, or a
// claim of an invalidated input, fails.
func (in *Input[T]) claim() (receiver[T], error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.valid {
		return nil, core.ErrCancelled
	}
	if in.joined {
		return nil, core.ErrDuplicateInput
	}
	in.joined = true
	in.stopCleanup()
	return in.recv, nil
}
