// Package signal is a reactive dataflow engine: a library for building graphs
// of processing nodes that carry a sequence of values or a terminal failure
// from producers to consumers, with explicit control over execution context,
// multi-listener replay and cancellation.
//
// Values flow strictly downstream through Input -> node -> combinator nodes ->
// Endpoint. Control flows upstream only through activation (first listener
// attach activates the chain, last detach deactivates it) and through
// cancellation.
package signal

import (
	"sync"

	"github.com/google/uuid"

	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// activation is the lifecycle state of a node
type activation int

const (
	stateUnbound activation = iota
	stateActive
	stateDeactivated
	stateClosed
)

func (a activation) String() string {
	switch a {
	case stateUnbound:
		return "unbound"
	case stateActive:
		return "active"
	case stateDeactivated:
		return "deactivated"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// targetEntry is one downstream binding of a node. Entries are registered
// structurally when the graph is built and become active when a consumer
// attaches downstream; values are only delivered to active entries.
type targetEntry[T any] struct {
	id      uuid.UUID
	deliver func(core.Result[T])
	active  bool // guarded by the owning node's mu
}

// binder is the downstream-facing surface of a node: what a combinator or
// endpoint needs in order to hang itself off a signal.
type binder[T any] interface {
	attach(e *targetEntry[T]) error
	parentLink
}

// parentLink is the type-erased upstream surface used by activation
// propagation and bind-time loop detection.
type parentLink interface {
	activateEntry(id uuid.UUID)
	deactivateEntry(id uuid.UUID)
	detach(id uuid.UUID)
	reaches(id uuid.UUID) bool
	ident() uuid.UUID
}

// receiver is the upstream-facing surface of a node: where an Input sends.
type receiver[T any] interface {
	send(r core.Result[T]) error
}

// upstreamRef records one antecedent binding of a node: the entry id this
// node holds at the parent, plus the parent itself.
type upstreamRef struct {
	id     uuid.UUID
	parent parentLink
}

// node is the fundamental unit of the graph. It owns a FIFO queue of pending
// inbound results, a reentrancy guard, an activation state, a processing
// closure, and its upstream/downstream bindings. The processing closure for a
// given node is never executed by more than one goroutine at a time: delivery
// is serialized by the guard flag and the queue, never by blocking the sender.
type node[In, Out any] struct {
	nid uuid.UUID
	ctx sched.Context

	mu       sync.Mutex
	queue    []core.Result[In]
	draining bool
	state    activation
	term     error

	proc         func(core.Result[In], *Next[Out])
	pendingReset bool
	reset        func() // reinitializes combinator state on reactivation

	outs       []*targetEntry[Out]
	multiOut   bool
	replay     *replayState[Out]
	activeOuts int

	ups     []upstreamRef
	multiIn bool

	gen      func(*Input[In]) // generator closure for lazy sources
	genInput *Input[In]

	onDeactivate func() // merged-input prune hook
}

func newNode[In, Out any](ctx sched.Context, proc func(core.Result[In], *Next[Out])) *node[In, Out] {
	if ctx == nil {
		ctx = sched.Direct{}
	}
	n := &node[In, Out]{
		nid:  uuid.New(),
		ctx:  ctx,
		proc: proc,
	}
	return n
}

// failedNode returns a node that is already closed with err; any consumer
// that activates it receives the failure synchronously. Used to surface
// structural bind errors through the data path of combinator results.
func failedNode[In, Out any](err error) *node[In, Out] {
	n := newNode[In, Out](sched.Direct{}, nil)
	n.state = stateClosed
	n.term = err
	return n
}

func (n *node[In, Out]) ident() uuid.UUID {
	return n.nid
}

// send enqueues r on the node's queue. If the node is active and no delivery
// is in progress, a drain job is scheduled on the node's context; a send from
// within the processing closure itself queues behind the current item rather
// than recursing, which is what makes feedback edges safe. Values sent before
// activation stay queued until the first consumer activates the node.
func (n *node[In, Out]) send(r core.Result[In]) error {
	n.mu.Lock()
	if n.state == stateClosed {
		n.mu.Unlock()
		return core.ErrAlreadyClosed
	}
	n.queue = append(n.queue, r)
	if n.state != stateActive || n.draining {
		n.mu.Unlock()
		return nil
	}
	n.draining = true
	n.mu.Unlock()
	n.ctx.Run(n.drainQueue)
	return nil
}

// drainQueue delivers queued results to the processing closure one at a time,
// in FIFO arrival order. At most one drain job exists per node at any instant.
func (n *node[In, Out]) drainQueue() {
	next := &Next[Out]{emit: n.emit}
	for {
		n.mu.Lock()
		if n.state != stateActive {
			n.draining = false
			if n.state == stateClosed {
				n.queue = nil
			}
			n.mu.Unlock()
			return
		}
		if n.pendingReset {
			n.pendingReset = false
			reset := n.reset
			n.mu.Unlock()
			if reset != nil {
				reset()
			}
			continue
		}
		if len(n.queue) == 0 {
			n.draining = false
			n.mu.Unlock()
			return
		}
		r := n.queue[0]
		n.queue = n.queue[1:]
		n.mu.Unlock()

		n.proc(r, next)

		// A failure terminates the sender; once the closure has seen it
		// nothing further can arrive, so the node closes its input side.
		if r.IsFailure() {
			n.closeWith(r.Error())
		}
	}
}

// emit delivers r to every active downstream entry, updating the replay
// buffer first. Emitting a failure permanently closes the node: remaining
// queued items are dropped and later sends are rejected.
func (n *node[In, Out]) emit(r core.Result[Out]) {
	n.mu.Lock()
	if n.state == stateClosed {
		n.mu.Unlock()
		return
	}
	if n.replay != nil {
		n.replay.update(r)
	}
	targets := make([]*targetEntry[Out], 0, len(n.outs))
	for _, e := range n.outs {
		if e.active {
			targets = append(targets, e)
		}
	}
	if r.IsFailure() {
		n.state = stateClosed
		n.term = r.Error()
		n.queue = nil
		log.Debug().Stringer("node", n.nid).Err(r.Error()).Msg("signal closed")
	}
	n.mu.Unlock()

	for _, e := range targets {
		e.deliver(r)
	}
}

// closeWith closes the node without emitting; used when the upstream side has
// terminated. Idempotent.
func (n *node[In, Out]) closeWith(err error) {
	n.mu.Lock()
	if n.state == stateClosed {
		n.mu.Unlock()
		return
	}
	n.state = stateClosed
	n.term = err
	n.queue = nil
	n.mu.Unlock()
	log.Debug().Stringer("node", n.nid).Err(err).Msg("signal closed")
}

// attach registers a downstream entry. Registration is structural: it does
// not activate the node. A single-listener node rejects a second entry.
func (n *node[In, Out]) attach(e *targetEntry[Out]) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.multiOut && len(n.outs) > 0 {
		return core.ErrDuplicateListener
	}
	n.outs = append(n.outs, e)
	return nil
}

// addUpstream records an antecedent binding. Only merged nodes accept more
// than one.
func (n *node[In, Out]) addUpstream(ref upstreamRef) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.multiIn && len(n.ups) > 0 {
		return core.ErrDuplicateInput
	}
	n.ups = append(n.ups, ref)
	return nil
}

func (n *node[In, Out]) removeUpstream(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, ref := range n.ups {
		if ref.id == id {
			n.ups = append(n.ups[:i], n.ups[i+1:]...)
			return
		}
	}
}

// activateEntry marks the entry active and, on the first active entry,
// activates the node itself: replay is handed to the new entry synchronously
// before live traffic, the upstream chain is activated, generators run, and
// any queued values start draining. Replay delivery happens before the
// upstream is woken so nothing can jump ahead of the handoff.
func (n *node[In, Out]) activateEntry(id uuid.UUID) {
	n.mu.Lock()
	if n.state == stateClosed {
		e := n.findEntry(id)
		var rep []core.Result[Out]
		term := n.term
		if n.replay != nil {
			rep = n.replay.snapshot()
			if t := n.replay.terminal(); t != nil {
				term = t
			}
		}
		n.mu.Unlock()
		if e != nil {
			for _, r := range rep {
				e.deliver(r)
			}
			e.deliver(core.Err[Out](term))
		}
		return
	}
	e := n.findEntry(id)
	if e == nil || e.active {
		n.mu.Unlock()
		return
	}
	e.active = true
	n.activeOuts++
	first := n.activeOuts == 1
	reactivated := first && n.state == stateDeactivated
	if first {
		n.state = stateActive
		if reactivated && n.reset != nil {
			n.pendingReset = true
		}
	}
	var rep []core.Result[Out]
	if n.replay != nil {
		rep = n.replay.snapshot()
	}
	n.mu.Unlock()

	for _, r := range rep {
		e.deliver(r)
	}
	if !first {
		return
	}
	log.Debug().Stringer("node", n.nid).Bool("reactivated", reactivated).Msg("signal activated")
	for _, up := range n.ups {
		up.parent.activateEntry(up.id)
	}
	if n.gen != nil {
		n.startGenerator()
	}
	n.scheduleDrain()
}

// deactivateEntry marks the entry inactive; when the last active entry goes,
// the node deactivates and the chain above it winds down.
func (n *node[In, Out]) deactivateEntry(id uuid.UUID) {
	n.mu.Lock()
	e := n.findEntry(id)
	if e == nil || !e.active || n.state == stateClosed {
		n.mu.Unlock()
		return
	}
	e.active = false
	n.activeOuts--
	last := n.activeOuts == 0 && n.state == stateActive
	if last {
		n.state = stateDeactivated
	}
	hook := n.onDeactivate
	n.mu.Unlock()
	if !last {
		return
	}
	log.Debug().Stringer("node", n.nid).Msg("signal deactivated")
	if n.gen != nil {
		n.stopGenerator()
	}
	for _, up := range n.ups {
		up.parent.deactivateEntry(up.id)
	}
	if hook != nil {
		hook()
	}
}

// detach removes the entry entirely, deactivating first if needed. No-op for
// unknown ids, which makes repeated cancellation idempotent.
func (n *node[In, Out]) detach(id uuid.UUID) {
	n.deactivateEntry(id)
	n.mu.Lock()
	for i, e := range n.outs {
		if e.id == id {
			n.outs = append(n.outs[:i], n.outs[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
}

// reaches walks the upstream graph looking for id; used for bind-time loop
// detection on junction joins.
func (n *node[In, Out]) reaches(id uuid.UUID) bool {
	if n.nid == id {
		return true
	}
	n.mu.Lock()
	ups := make([]upstreamRef, len(n.ups))
	copy(ups, n.ups)
	n.mu.Unlock()
	for _, up := range ups {
		if up.parent.reaches(id) {
			return true
		}
	}
	return false
}

func (n *node[In, Out]) isActive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state == stateActive
}

func (n *node[In, Out]) findEntry(id uuid.UUID) *targetEntry[Out] {
	for _, e := range n.outs {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (n *node[In, Out]) scheduleDrain() {
	n.mu.Lock()
	if n.state != stateActive || n.draining || (len(n.queue) == 0 && !n.pendingReset) {
		n.mu.Unlock()
		return
	}
	n.draining = true
	n.mu.Unlock()
	n.ctx.Run(n.drainQueue)
}

// startGenerator hands a live Input to the generation closure. The closure
// runs synchronously on the activating goroutine so that values it sends
// immediately land inside the activation window.
func (n *node[In, Out]) startGenerator() {
	in := newInput[In](n, false)
	n.mu.Lock()
	n.genInput = in
	gen := n.gen
	n.mu.Unlock()
	gen(in)
}

// stopGenerator invalidates the current input and signals teardown with a nil
// argument, unless the input was retained, in which case the generator is
// treated as running indefinitely.
func (n *node[In, Out]) stopGenerator() {
	n.mu.Lock()
	in := n.genInput
	n.genInput = nil
	gen := n.gen
	n.mu.Unlock()
	if in == nil || in.isRetained() {
		return
	}
	in.invalidate()
	gen(nil)
}

// link binds child as the single consumer of parent, registering the
// structural edge in both directions. No activation happens here.
func link[T, O any](parent binder[T], child *node[T, O]) error {
	e := &targetEntry[T]{
		id: uuid.New(),
		deliver: func(r core.Result[T]) {
			_ = child.send(r)
		},
	}
	if err := child.addUpstream(upstreamRef{id: e.id, parent: parent}); err != nil {
		return err
	}
	if err := parent.attach(e); err != nil {
		child.removeUpstream(e.id)
		return err
	}
	return nil
}

// Next is the emitter handed to a processing closure. One invocation of the
// closure may send zero, one or many results downstream; sending a failure
// (or Close) permanently ends the stream.
type Next[T any] struct {
	emit func(core.Result[T])
}

// Send emits a success value downstream
func (nx *Next[T]) Send(v T) {
	nx.emit(core.Value(v))
}

// Fail emits a terminal failure downstream
func (nx *Next[T]) Fail(err error) {
	nx.emit(core.Err[T](err))
}

// Close ends the stream gracefully
func (nx *Next[T]) Close() {
	nx.emit(core.End[T]())
}

// Result emits a pre-built result downstream
func (nx *Next[T]) Result(r core.Result[T]) {
	nx.emit(r)
}
