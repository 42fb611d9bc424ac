package signal_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/creastat/signal"
	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// TestEndToEndChain builds a realistic graph: a generated source, a mapping
// stage, a stride filter and a playback tail with two consumers attached at
// different times.
func TestEndToEndChain(t *testing.T) {
	src := signal.Generate(sched.Direct{}, func(in *signal.Input[int]) {
		if in == nil {
			return
		}
		for i := 1; i <= 9; i++ {
			_ = in.Send(i)
		}
		_ = in.Close()
	})

	labels := signal.Map(signal.Stride(src, 3, 0), func(v int) string {
		return "v" + strconv.Itoa(v)
	})
	tail := labels.Playback()

	var early []string
	ep1 := tail.Subscribe(sched.Direct{}, func(r core.Result[string]) {
		if !r.IsFailure() {
			early = append(early, r.Get())
		}
	})
	defer ep1.Cancel()

	assert.Equal(t, []string{"v3", "v6", "v9"}, early)

	// A late consumer replays the full history and then the terminal close.
	var late []string
	var terminal error
	ep2 := tail.Subscribe(sched.Direct{}, func(r core.Result[string]) {
		if v, err := r.Unpack(); err != nil {
			terminal = err
		} else {
			late = append(late, v)
		}
	})
	defer ep2.Cancel()

	assert.Equal(t, early, late)
	assert.True(t, core.Closed(terminal))
}

// TestMergeAndCombineChain merges two channels and combines the result with
// a control stream, exercising dynamic membership alongside fan-in.
func TestMergeAndCombineChain(t *testing.T) {
	mi, merged := signal.MergedSignal[int]()
	in1, err := mi.Input(core.PropagateNone)
	assert.NoError(t, err)
	in2, err := mi.Input(core.PropagateNone)
	assert.NoError(t, err)

	ctlIn, ctl := signal.Create[string]()

	out := signal.Combine2(merged, ctl, func(slot core.SlotOf2[int, string], nx *signal.Next[string]) {
		switch slot.Slot {
		case 1:
			if v, err := slot.Result1.Unpack(); err == nil {
				nx.Send(strconv.Itoa(v))
			}
		case 2:
			if v, err := slot.Result2.Unpack(); err == nil {
				nx.Send("ctl:" + v)
			}
		}
	})

	var got []string
	ep := out.Subscribe(sched.Direct{}, func(r core.Result[string]) {
		if !r.IsFailure() {
			got = append(got, r.Get())
		}
	})
	defer ep.Cancel()

	assert.NoError(t, in1.Send(1))
	assert.NoError(t, ctlIn.Send("pause"))
	assert.NoError(t, in2.Send(2))

	// One merge member failing under PropagateNone leaves the rest intact.
	assert.NoError(t, in1.Fail(errors.New("boom")))
	assert.NoError(t, in2.Send(3))

	assert.Equal(t, []string{"1", "ctl:pause", "2", "3"}, got)
}

// TestJunctionRewiresMidStream moves a live source between two processing
// chains without losing queued values.
func TestJunctionRewiresMidStream(t *testing.T) {
	srcIn, src := signal.Create[int]()
	j, err := src.Junction()
	assert.NoError(t, err)

	destIn, dest := signal.Create[int]()
	doubled := signal.Map(dest, func(v int) int { return v * 2 })

	var got []int
	ep := doubled.Subscribe(sched.Direct{}, func(r core.Result[int]) {
		if !r.IsFailure() {
			got = append(got, r.Get())
		}
	})
	defer ep.Cancel()

	assert.NoError(t, j.Join(destIn, false))
	assert.NoError(t, srcIn.Send(1))

	j.Disconnect()
	assert.NoError(t, srcIn.Send(2)) // queues while detached

	dest2In, dest2 := signal.Create[int]()
	tripled := signal.Map(dest2, func(v int) int { return v * 3 })
	var rewired []int
	ep2 := tripled.Subscribe(sched.Direct{}, func(r core.Result[int]) {
		if !r.IsFailure() {
			rewired = append(rewired, r.Get())
		}
	})
	defer ep2.Cancel()

	assert.NoError(t, j.Join(dest2In, false))

	assert.Equal(t, []int{2}, got, "first chain saw only the first value")
	assert.Equal(t, []int{6}, rewired, "queued value followed the new edge")
}
