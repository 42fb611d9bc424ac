package signal

import (
	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// TransformFlatten is Transform with a merged input in place of a plain
// emitter: each invocation of fn may construct child signals and register
// them on the merged input, and values from every currently registered child
// become the flattened output stream. The outer signal's own failure becomes
// the aggregate's terminal close once all children have drained; an
// individual child's failure is governed by the policy it was added with.
func TransformFlatten[S, T, U any](s *Signal[T], initial S, fn func(st *S, r core.Result[T], mi *MergedInput[U])) *Signal[U] {
	mi, flattened := MergedSignal[U]()

	st := initial
	outer := newNode[T, U](sched.Direct{}, nil)
	outer.proc = func(r core.Result[T], nx *Next[U]) {
		fn(&st, r, mi)
		if r.IsFailure() {
			// Surface the outer failure on the outer's own output so the
			// merged set can defer it until the children drain.
			nx.Fail(r.Error())
		}
	}
	outer.reset = func() {
		st = initial
	}
	if err := link[T, U](s.n, outer); err != nil {
		return &Signal[U]{n: failedNode[T, U](err)}
	}
	if err := mi.add(&Signal[U]{n: outer}, core.PropagateNone, false, true); err != nil {
		return &Signal[U]{n: failedNode[T, U](err)}
	}
	return flattened
}

// SpanMarker is one edge of a value's duration on a flattened stream: an
// open marker carrying the value, or a close marker when its duration signal
// ends. Indices increment monotonically from zero.
type SpanMarker[T any] struct {
	Index int
	Value T
	Open  bool
}

// ValueDurations emits an open marker for each input value, spawns a
// duration signal from durFn, and emits a matching close marker when that
// duration signal closes or fails. A duration's failure is translated into
// the close marker rather than terminating the flattened stream.
func ValueDurations[T, D any](s *Signal[T], durFn func(T) *Signal[D]) *Signal[SpanMarker[T]] {
	return TransformFlatten(s, 0, func(index *int, r core.Result[T], mi *MergedInput[SpanMarker[T]]) {
		if r.IsFailure() {
			return
		}
		v := r.Get()
		idx := *index
		*index++

		opened := Generate(sched.Direct{}, func(in *Input[SpanMarker[T]]) {
			if in == nil {
				return
			}
			_ = in.Send(SpanMarker[T]{Index: idx, Value: v, Open: true})
			_ = in.Close()
		})
		_ = mi.Add(opened, core.PropagateNone, false)

		closed := Transform(durFn(v), struct{}{}, func(_ *struct{}, dr core.Result[D], nx *Next[SpanMarker[T]]) {
			if dr.IsFailure() {
				nx.Send(SpanMarker[T]{Index: idx, Open: false})
				nx.Close()
			}
		})
		_ = mi.Add(closed, core.PropagateNone, false)
	})
}
