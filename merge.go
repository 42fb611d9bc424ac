package signal

import (
	"sync"

	"github.com/google/uuid"

	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// MergedInput aggregates an evolving set of upstream signals into one
// downstream signal. Membership is dynamic; each member carries its own
// close-propagation policy. The aggregate closes only when Close is called or
// when a propagating member fails.
type MergedInput[T any] struct {
	mu      sync.Mutex
	sink    *node[T, T]
	members map[uuid.UUID]*mergeMember[T]

	closeWhenEmpty bool
	pendingClose   error
}

type mergeMember[T any] struct {
	entryID            uuid.UUID
	parent             parentLink
	prop               core.ClosePropagation
	onEmpty            bool // flatten mode: failure closes the aggregate once the set drains
	removeOnDeactivate bool
}

// MergedSignal returns a merged input and the signal fed by it
func MergedSignal[T any]() (*MergedInput[T], *Signal[T]) {
	sink := newNode[T, T](sched.Direct{}, func(r core.Result[T], nx *Next[T]) {
		nx.Result(r)
	})
	sink.multiIn = true
	mi := &MergedInput[T]{sink: sink, members: make(map[uuid.UUID]*mergeMember[T])}
	sink.onDeactivate = mi.pruneDeactivatable
	return mi, &Signal[T]{n: sink}
}

// Add registers s as a member. prop governs what happens when s fails:
// PropagateNone and unpropagated closes merely remove the member, a
// propagated failure becomes the aggregate's own failure. Members added with
// removeOnDeactivate are dropped when the aggregate deactivates instead of
// being kept for reactivation.
func (m *MergedInput[T]) Add(s *Signal[T], prop core.ClosePropagation, removeOnDeactivate bool) error {
	return m.add(s, prop, removeOnDeactivate, false)
}

func (m *MergedInput[T]) add(s *Signal[T], prop core.ClosePropagation, removeOnDeactivate, onEmpty bool) error {
	mem := &mergeMember[T]{
		entryID:            uuid.New(),
		parent:             s.n,
		prop:               prop,
		onEmpty:            onEmpty,
		removeOnDeactivate: removeOnDeactivate,
	}
	entry := &targetEntry[T]{
		id: mem.entryID,
		deliver: func(r core.Result[T]) {
			m.receive(mem, r)
		},
	}
	if err := m.sink.addUpstream(upstreamRef{id: mem.entryID, parent: s.n}); err != nil {
		return err
	}
	if err := s.n.attach(entry); err != nil {
		m.sink.removeUpstream(mem.entryID)
		return err
	}
	m.mu.Lock()
	m.members[mem.entryID] = mem
	m.mu.Unlock()
	if m.sink.isActive() {
		s.n.activateEntry(mem.entryID)
	}
	return nil
}

// receive routes one member result, applying the member's close policy
func (m *MergedInput[T]) receive(mem *mergeMember[T], r core.Result[T]) {
	if !r.IsFailure() {
		_ = m.sink.send(r)
		return
	}
	err := r.Error()
	m.drop(mem)
	if mem.onEmpty {
		m.closeIfDrained(err)
		return
	}
	if mem.prop.ShouldPropagate(err) {
		_ = m.sink.send(core.Err[T](err))
		return
	}
	m.closeIfDrained(nil)
}

// Remove detaches a member without closing it or the aggregate. Unknown
// members are ignored, so repeated removal is idempotent.
func (m *MergedInput[T]) Remove(s *Signal[T]) {
	m.mu.Lock()
	var victim *mergeMember[T]
	for _, mem := range m.members {
		if mem.parent.ident() == s.n.ident() {
			victim = mem
			break
		}
	}
	m.mu.Unlock()
	if victim != nil {
		m.drop(victim)
		m.closeIfDrained(nil)
	}
}

// Close terminates the aggregate with err (nil closes gracefully)
func (m *MergedInput[T]) Close(err error) {
	_ = m.sink.send(core.Err[T](err))
}

// Input returns a fresh input feeding the aggregate. The input's own failure
// is handled per prop, exactly like a member signal's.
func (m *MergedInput[T]) Input(prop core.ClosePropagation) (*Input[T], error) {
	in, s := Create[T]()
	if err := m.add(s, prop, false, false); err != nil {
		return nil, err
	}
	return in, nil
}

func (m *MergedInput[T]) drop(mem *mergeMember[T]) {
	m.mu.Lock()
	if _, ok := m.members[mem.entryID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.members, mem.entryID)
	m.mu.Unlock()
	mem.parent.detach(mem.entryID)
	m.sink.removeUpstream(mem.entryID)
}

// closeIfDrained emits the deferred terminal failure once the set is empty
func (m *MergedInput[T]) closeIfDrained(err error) {
	m.mu.Lock()
	if err != nil {
		m.closeWhenEmpty = true
		m.pendingClose = err
	}
	fire := m.closeWhenEmpty && len(m.members) == 0
	pending := m.pendingClose
	m.mu.Unlock()
	if fire {
		_ = m.sink.send(core.Err[T](pending))
	}
}

// pruneDeactivatable runs when the aggregate deactivates; members marked
// removeOnDeactivate are paused sources, not finished ones, and leave the set
// rather than lingering for reactivation.
func (m *MergedInput[T]) pruneDeactivatable() {
	m.mu.Lock()
	var victims []*mergeMember[T]
	for _, mem := range m.members {
		if mem.removeOnDeactivate {
			victims = append(victims, mem)
		}
	}
	m.mu.Unlock()
	for _, mem := range victims {
		m.drop(mem)
	}
}
