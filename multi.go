package signal

import (
	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// replayKind selects what a multi-listener node hands to a newly attached
// listener. One polymorphic strategy rather than four node variants.
type replayKind int

const (
	replayMulticast replayKind = iota
	replayContinuous
	replayPlayback
	replayCustom
)

// ActivationReducer folds each result into the custom replay buffer and error
// state of a CustomActivation node. It returns the updated buffer and error.
type ActivationReducer[T any] func(buf []T, err error, r core.Result[T]) ([]T, error)

// replayState is the per-node replay buffer. All access is guarded by the
// owning node's mu.
type replayState[T any] struct {
	kind      replayKind
	latest    T
	hasLatest bool
	history   []T
	buf       []T
	err       error
	reducer   ActivationReducer[T]
}

func (rs *replayState[T]) update(r core.Result[T]) {
	switch rs.kind {
	case replayContinuous:
		if !r.IsFailure() {
			rs.latest = r.Get()
			rs.hasLatest = true
		}
	case replayPlayback:
		if !r.IsFailure() {
			rs.history = append(rs.history, r.Get())
		}
	case replayCustom:
		rs.buf, rs.err = rs.reducer(rs.buf, rs.err, r)
	}
}

// snapshot returns the results a new listener receives before live traffic
func (rs *replayState[T]) snapshot() []core.Result[T] {
	switch rs.kind {
	case replayContinuous:
		if rs.hasLatest {
			return []core.Result[T]{core.Value(rs.latest)}
		}
	case replayPlayback:
		out := make([]core.Result[T], 0, len(rs.history))
		for _, v := range rs.history {
			out = append(out, core.Value(v))
		}
		return out
	case replayCustom:
		out := make([]core.Result[T], 0, len(rs.buf))
		for _, v := range rs.buf {
			out = append(out, core.Value(v))
		}
		return out
	}
	return nil
}

// terminal returns the reducer-translated close error, if any. Only custom
// nodes can override the raw terminal failure.
func (rs *replayState[T]) terminal() error {
	if rs.kind == replayCustom {
		return rs.err
	}
	return nil
}

func multiNode[T any](s *Signal[T], rs *replayState[T]) *Signal[T] {
	m := newNode[T, T](sched.Direct{}, func(r core.Result[T], nx *Next[T]) {
		nx.Result(r)
	})
	m.multiOut = true
	m.replay = rs
	if err := link[T, T](s.n, m); err != nil {
		return &Signal[T]{n: failedNode[T, T](err)}
	}
	return &Signal[T]{n: m}
}

// Multicast returns a signal that supports any number of concurrent
// endpoints. New endpoints receive nothing until the next value sent after
// attachment.
func (s *Signal[T]) Multicast() *Signal[T] {
	return multiNode(s, &replayState[T]{kind: replayMulticast})
}

// Continuous returns a multi-listener signal that replays the single latest
// value to each new endpoint, synchronously, before any further values.
func (s *Signal[T]) Continuous() *Signal[T] {
	return multiNode(s, &replayState[T]{kind: replayContinuous})
}

// ContinuousWith is Continuous seeded with an initial value, replayed until
// the first live value replaces it.
func (s *Signal[T]) ContinuousWith(initial T) *Signal[T] {
	return multiNode(s, &replayState[T]{kind: replayContinuous, latest: initial, hasLatest: true})
}

// Playback returns a multi-listener signal that accumulates every value ever
// seen and replays the full history, in order, to each new endpoint.
func (s *Signal[T]) Playback() *Signal[T] {
	return multiNode(s, &replayState[T]{kind: replayPlayback})
}

// CustomActivation returns a multi-listener signal whose replay buffer and
// close error are maintained by reducer. A new endpoint receives the buffer
// contents in order, then continues live.
func (s *Signal[T]) CustomActivation(initial []T, reducer ActivationReducer[T]) *Signal[T] {
	buf := make([]T, len(initial))
	copy(buf, initial)
	return multiNode(s, &replayState[T]{kind: replayCustom, buf: buf, reducer: reducer})
}
