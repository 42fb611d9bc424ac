package signal

import (
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// Endpoint is a terminal consumer binding. It holds the observed chain alive;
// cancelling it (explicitly, or implicitly when the handle is collected)
// removes the listener and, if it was the last one, deactivates the chain.
type Endpoint struct {
	cancelled atomic.Bool
	remove    func()
	keepAlive any // the observed signal, pinned for the endpoint's lifetime
	cleanup   *runtime.Cleanup
}

func newEndpoint[T any](s *Signal[T], ctx sched.Context, handler func(core.Result[T])) *Endpoint {
	ep := newNode[T, T](ctx, func(r core.Result[T], _ *Next[T]) {
		handler(r)
	})
	entry := &targetEntry[T]{
		id: uuid.New(),
		deliver: func(r core.Result[T]) {
			_ = ep.send(r)
		},
	}
	e := &Endpoint{keepAlive: s}
	e.remove = func() {
		s.n.detach(entry.id)
		ep.closeWith(core.ErrCancelled)
	}
	// The endpoint node is always active: it is itself the consumer, so no
	// downstream entry gates its drain loop.
	ep.state = stateActive

	if err := s.n.attach(entry); err != nil {
		// Structural bind errors surface through the handler rather than a
		// second return value; the endpoint is born closed.
		_ = ep.send(core.Err[T](err))
		e.remove = func() { ep.closeWith(core.ErrCancelled) }
		e.arm()
		return e
	}

	s.n.activateEntry(entry.id)
	e.arm()
	return e
}

// arm registers the collect-time cancellation; the cleanup captures only the
// removal closure, so an unreferenced endpoint stays collectable.
func (e *Endpoint) arm() {
	c := runtime.AddCleanup(e, func(f func()) { f() }, e.remove)
	e.cleanup = &c
}

// Cancel removes the endpoint from its signal. Idempotent: repeated or
// concurrent cancellation undoes exactly one binding and never
// double-decrements the listener count.
func (e *Endpoint) Cancel() {
	if e.cancelled.Swap(true) {
		return
	}
	if e.cleanup != nil {
		e.cleanup.Stop()
	}
	e.remove()
}
