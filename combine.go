package signal

import (
	"github.com/creastat/signal/core"
)

// Combine fans 2-5 upstream signals into one downstream. Each upstream result
// is delivered wrapped in a tagged union identifying its origin slot;
// delivery order across upstreams is whatever arrival order the shared
// downstream queue observed, with no synthetic interleaving beyond that. An
// upstream's failure arrives wrapped like any other result, so whether it
// terminates the combined stream is entirely the closure's choice.

// slotWrap rebinds an upstream to emit tagged results and close gracefully
// once its source terminates, so the merged set sheds it without propagating.
func slotWrap[T, S any](s *Signal[T], wrap func(core.Result[T]) S) *Signal[S] {
	return Transform(s, struct{}{}, func(_ *struct{}, r core.Result[T], nx *Next[S]) {
		nx.Send(wrap(r))
		if r.IsFailure() {
			nx.Close()
		}
	})
}

func combined[S, U any](wrapped []*Signal[S], fn func(S, *Next[U])) *Signal[U] {
	mi, merged := MergedSignal[S]()
	for _, w := range wrapped {
		if err := mi.Add(w, core.PropagateErrors, false); err != nil {
			return &Signal[U]{n: failedNode[S, U](err)}
		}
	}
	return Transform(merged, struct{}{}, func(_ *struct{}, r core.Result[S], nx *Next[U]) {
		if v, err := r.Unpack(); err != nil {
			nx.Fail(err)
		} else {
			fn(v, nx)
		}
	})
}

// Combine2 merges two upstreams through fn
func Combine2[T1, T2, U any](s1 *Signal[T1], s2 *Signal[T2], fn func(core.SlotOf2[T1, T2], *Next[U])) *Signal[U] {
	return combined([]*Signal[core.SlotOf2[T1, T2]]{
		slotWrap(s1, core.FromFirstOf2[T1, T2]),
		slotWrap(s2, core.FromSecondOf2[T1, T2]),
	}, fn)
}

// Combine3 merges three upstreams through fn
func Combine3[T1, T2, T3, U any](s1 *Signal[T1], s2 *Signal[T2], s3 *Signal[T3], fn func(core.SlotOf3[T1, T2, T3], *Next[U])) *Signal[U] {
	return combined([]*Signal[core.SlotOf3[T1, T2, T3]]{
		slotWrap(s1, func(r core.Result[T1]) core.SlotOf3[T1, T2, T3] {
			return core.SlotOf3[T1, T2, T3]{Slot: 1, Result1: r}
		}),
		slotWrap(s2, func(r core.Result[T2]) core.SlotOf3[T1, T2, T3] {
			return core.SlotOf3[T1, T2, T3]{Slot: 2, Result2: r}
		}),
		slotWrap(s3, func(r core.Result[T3]) core.SlotOf3[T1, T2, T3] {
			return core.SlotOf3[T1, T2, T3]{Slot: 3, Result3: r}
		}),
	}, fn)
}

// Combine4 merges four upstreams through fn
func Combine4[T1, T2, T3, T4, U any](s1 *Signal[T1], s2 *Signal[T2], s3 *Signal[T3], s4 *Signal[T4], fn func(core.SlotOf4[T1, T2, T3, T4], *Next[U])) *Signal[U] {
	return combined([]*Signal[core.SlotOf4[T1, T2, T3, T4]]{
		slotWrap(s1, func(r core.Result[T1]) core.SlotOf4[T1, T2, T3, T4] {
			return core.SlotOf4[T1, T2, T3, T4]{Slot: 1, Result1: r}
		}),
		slotWrap(s2, func(r core.Result[T2]) core.SlotOf4[T1, T2, T3, T4] {
			return core.SlotOf4[T1, T2, T3, T4]{Slot: 2, Result2: r}
		}),
		slotWrap(s3, func(r core.Result[T3]) core.SlotOf4[T1, T2, T3, T4] {
			return core.SlotOf4[T1, T2, T3, T4]{Slot: 3, Result3: r}
		}),
		slotWrap(s4, func(r core.Result[T4]) core.SlotOf4[T1, T2, T3, T4] {
			return core.SlotOf4[T1, T2, T3, T4]{Slot: 4, Result4: r}
		}),
	}, fn)
}

// Combine5 merges five upstreams through fn
func Combine5[T1, T2, T3, T4, T5, U any](s1 *Signal[T1], s2 *Signal[T2], s3 *Signal[T3], s4 *Signal[T4], s5 *Signal[T5], fn func(core.SlotOf5[T1, T2, T3, T4, T5], *Next[U])) *Signal[U] {
	return combined([]*Signal[core.SlotOf5[T1, T2, T3, T4, T5]]{
		slotWrap(s1, func(r core.Result[T1]) core.SlotOf5[T1, T2, T3, T4, T5] {
			return core.SlotOf5[T1, T2, T3, T4, T5]{Slot: 1, Result1: r}
		}),
		slotWrap(s2, func(r core.Result[T2]) core.SlotOf5[T1, T2, T3, T4, T5] {
			return core.SlotOf5[T1, T2, T3, T4, T5]{Slot: 2, Result2: r}
		}),
		slotWrap(s3, func(r core.Result[T3]) core.SlotOf5[T1, T2, T3, T4, T5] {
			return core.SlotOf5[T1, T2, T3, T4, T5]{Slot: 3, Result3: r}
		}),
		slotWrap(s4, func(r core.Result[T4]) core.SlotOf5[T1, T2, T3, T4, T5] {
			return core.SlotOf5[T1, T2, T3, T4, T5]{Slot: 4, Result4: r}
		}),
		slotWrap(s5, func(r core.Result[T5]) core.SlotOf5[T1, T2, T3, T4, T5] {
			return core.SlotOf5[T1, T2, T3, T4, T5]{Slot: 5, Result5: r}
		}),
	}, fn)
}
