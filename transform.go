package signal

import (
	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// Transform is the baseline combinator: one result in, zero-or-more results
// out, with mutable threaded state. State starts at initial and is reset to
// it whenever the node reactivates after a deactivation cycle. Processing
// runs inline on the sending goroutine; use TransformOn to move it.
func Transform[S, T, U any](s *Signal[T], initial S, fn func(st *S, r core.Result[T], nx *Next[U])) *Signal[U] {
	return TransformOn(sched.Direct{}, s, initial, fn)
}

// TransformOn is Transform with delivery on ctx
func TransformOn[S, T, U any](ctx sched.Context, s *Signal[T], initial S, fn func(st *S, r core.Result[T], nx *Next[U])) *Signal[U] {
	st := initial
	n := newNode[T, U](ctx, func(r core.Result[T], nx *Next[U]) {
		fn(&st, r, nx)
	})
	n.reset = func() {
		st = initial
	}
	if err := link[T, U](s.n, n); err != nil {
		return &Signal[U]{n: failedNode[T, U](err)}
	}
	return &Signal[U]{n: n}
}

// Map emits exactly one success per input success and passes failures
// through unchanged.
func Map[T, U any](s *Signal[T], fn func(T) U) *Signal[U] {
	return Transform(s, struct{}{}, func(_ *struct{}, r core.Result[T], nx *Next[U]) {
		if v, err := r.Unpack(); err != nil {
			nx.Fail(err)
		} else {
			nx.Send(fn(v))
		}
	})
}

// Stride emits every count-th value, skipping initialSkip extra inputs before
// the first emission: Stride(s, 3, 0) over 1..9 emits 3, 6, 9. Failures pass
// through immediately regardless of the counter.
func Stride[T any](s *Signal[T], count, initialSkip int) *Signal[T] {
	return Transform(s, initialSkip+count-1, func(remaining *int, r core.Result[T], nx *Next[T]) {
		if r.IsFailure() {
			nx.Result(r)
			return
		}
		if *remaining > 0 {
			*remaining--
			return
		}
		nx.Result(r)
		*remaining = count - 1
	})
}

// Toggle flips and emits a boolean on every success, ignoring the input
// value. Failures pass through.
func Toggle[T any](s *Signal[T], initial bool) *Signal[bool] {
	return Transform(s, initial, func(st *bool, r core.Result[T], nx *Next[bool]) {
		if r.IsFailure() {
			nx.Fail(r.Error())
			return
		}
		*st = !*st
		nx.Send(*st)
	})
}
