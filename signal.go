package signal

import (
	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// Signal is a stream of T values terminated by at most one failure. A plain
// signal admits a single consumer; wrap it with Multicast, Continuous,
// Playback or CustomActivation to fan out to many.
type Signal[T any] struct {
	n binder[T]
}

// Create returns an eagerly constructed input/signal pair. The input
// exclusively owns the right to send into the signal; dropping every
// reference to it without closing is treated as an unannounced close and
// observers receive a failure carrying core.ErrClosed. Values sent before the
// first consumer attaches stay queued and are delivered on activation.
func Create[T any]() (*Input[T], *Signal[T]) {
	n := newNode[T, T](sched.Direct{}, func(r core.Result[T], nx *Next[T]) {
		nx.Result(r)
	})
	return newInput[T](n, true), &Signal[T]{n: n}
}

// Generate returns a lazy signal. gen is invoked with a live input when the
// signal activates and with nil when it deactivates, unless the input was
// retained. A multi-listener wrapper downstream may cycle the signal through
// activation repeatedly, invoking gen once per cycle. Delivery to consumers
// of this signal runs on ctx.
func Generate[T any](ctx sched.Context, gen func(*Input[T])) *Signal[T] {
	n := newNode[T, T](ctx, func(r core.Result[T], nx *Next[T]) {
		nx.Result(r)
	})
	n.gen = gen
	return &Signal[T]{n: n}
}

// Channel is a thin pairing of an input and its signal for fluent graph
// construction.
type Channel[T any] struct {
	Input  *Input[T]
	Signal *Signal[T]
}

// NewChannel is Create packaged as a Channel
func NewChannel[T any]() Channel[T] {
	in, s := Create[T]()
	return Channel[T]{Input: in, Signal: s}
}

// Subscribe attaches a terminal consumer, activating the chain above this
// signal. handler is invoked once per result, serialized, on ctx. The
// returned endpoint keeps the chain alive and must be cancelled (or dropped)
// to detach. Subscribing a second consumer to a single-listener signal
// delivers a failure carrying core.ErrDuplicateListener instead of values.
func (s *Signal[T]) Subscribe(ctx sched.Context, handler func(core.Result[T])) *Endpoint {
	return newEndpoint(s, ctx, handler)
}

// SubscribeValues is Subscribe restricted to success values; a failure
// silently ends the subscription.
func (s *Signal[T]) SubscribeValues(ctx sched.Context, fn func(T)) *Endpoint {
	return newEndpoint(s, ctx, func(r core.Result[T]) {
		if !r.IsFailure() {
			fn(r.Get())
		}
	})
}
