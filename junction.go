package signal

import (
	"sync"

	"github.com/google/uuid"

	"github.com/creastat/signal/core"
)

// destNode is what a junction needs from the node behind a claimed input
type destNode[T any] interface {
	receiver[T]
	ident() uuid.UUID
	addUpstream(ref upstreamRef) error
	removeUpstream(id uuid.UUID)
	reaches(id uuid.UUID) bool
	isActive() bool
}

// Junction is a rebindable edge: the single consumer slot of its source
// signal, which can be disconnected from its current downstream and joined to
// a new one at runtime. Joining performs bind-time loop detection; feedback
// through a previously obtained input is not a structural loop and remains
// legal.
type Junction[T any] struct {
	mu         sync.Mutex
	src        binder[T]
	entryID    uuid.UUID
	capturing  bool
	activation []core.Result[T]
	dest       destNode[T]
	destRefID  uuid.UUID
	srcActive  bool
	onError    func(error, *Input[T])
}

// Junction claims this signal's consumer slot and returns the rebindable
// edge. A signal that already has a consumer yields a junction whose joins
// fail with core.ErrDuplicateListener.
func (s *Signal[T]) Junction() (*Junction[T], error) {
	j := &Junction[T]{src: s.n, entryID: uuid.New()}
	entry := &targetEntry[T]{
		id: j.entryID,
		deliver: func(r core.Result[T]) {
			j.handle(r)
		},
	}
	if err := s.n.attach(entry); err != nil {
		return nil, err
	}
	return j, nil
}

// OnError installs a hook that intercepts a failure before it reaches the
// joined downstream: the junction disconnects and hands the failure plus a
// fresh input for the former downstream to the callback, enabling
// reconnect-on-error patterns.
func (j *Junction[T]) OnError(fn func(err error, refill *Input[T])) {
	j.mu.Lock()
	j.onError = fn
	j.mu.Unlock()
}

// Join connects the junction to the node behind in, consuming the input.
// With resend, the values captured during the source's activation window are
// redelivered to the new downstream before live traffic. A join that would
// route the source's output back into one of its own ancestors fails with
// core.ErrLoopDetected.
func (j *Junction[T]) Join(in *Input[T], resend bool) error {
	recv, err := in.claim()
	if err != nil {
		return err
	}
	dest, ok := recv.(destNode[T])
	if !ok {
		return core.ErrDuplicateInput
	}
	if j.src.reaches(dest.ident()) {
		return core.ErrLoopDetected
	}

	j.mu.Lock()
	if j.dest != nil {
		j.mu.Unlock()
		return core.ErrDuplicateInput
	}
	refID := uuid.New()
	if err := dest.addUpstream(upstreamRef{id: refID, parent: junctionLink[T]{j}}); err != nil {
		j.mu.Unlock()
		return err
	}
	j.dest = dest
	j.destRefID = refID
	var replayed []core.Result[T]
	if resend {
		replayed = make([]core.Result[T], len(j.activation))
		copy(replayed, j.activation)
	}
	j.mu.Unlock()

	for _, r := range replayed {
		_ = dest.send(r)
	}
	if dest.isActive() {
		j.activateSource()
	}
	return nil
}

// Disconnect severs the current edge, deactivating the source if it was
// live. Idempotent; the junction can be joined again afterwards.
func (j *Junction[T]) Disconnect() {
	j.mu.Lock()
	dest := j.dest
	refID := j.destRefID
	j.dest = nil
	wasActive := j.srcActive
	j.srcActive = false
	j.mu.Unlock()
	if dest == nil {
		return
	}
	dest.removeUpstream(refID)
	if wasActive {
		j.src.deactivateEntry(j.entryID)
	}
}

// handle routes one source result to the current downstream
func (j *Junction[T]) handle(r core.Result[T]) {
	j.mu.Lock()
	if j.capturing {
		j.activation = append(j.activation, r)
	}
	dest := j.dest
	hook := j.onError
	j.mu.Unlock()

	if r.IsFailure() && hook != nil && dest != nil {
		j.Disconnect()
		hook(r.Error(), newInput[T](dest, false))
		return
	}
	if dest != nil {
		_ = dest.send(r)
	}
}

// activateSource wakes the source chain, recording the results delivered
// during the synchronous activation window for later resend.
func (j *Junction[T]) activateSource() {
	j.mu.Lock()
	if j.srcActive {
		j.mu.Unlock()
		return
	}
	j.srcActive = true
	j.capturing = true
	j.activation = nil
	j.mu.Unlock()

	j.src.activateEntry(j.entryID)

	j.mu.Lock()
	j.capturing = false
	j.mu.Unlock()
}

// junctionLink lets a joined node's activation cascade reach the junction's
// source.
type junctionLink[T any] struct {
	j *Junction[T]
}

func (l junctionLink[T]) activateEntry(uuid.UUID) {
	l.j.activateSource()
}

func (l junctionLink[T]) deactivateEntry(uuid.UUID) {
	l.j.mu.Lock()
	wasActive := l.j.srcActive
	l.j.srcActive = false
	l.j.mu.Unlock()
	if wasActive {
		l.j.src.deactivateEntry(l.j.entryID)
	}
}

func (l junctionLink[T]) detach(uuid.UUID) {
	l.j.Disconnect()
}

func (l junctionLink[T]) reaches(id uuid.UUID) bool {
	return l.j.src.reaches(id)
}

func (l junctionLink[T]) ident() uuid.UUID {
	return l.j.entryID
}
