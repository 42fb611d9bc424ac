package signal

import (
	"sync"

	"github.com/google/uuid"

	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// Capture freezes the values a signal delivers during its synchronous
// activation window: the replay buffer of a multi-listener source, or
// whatever an eager chain drains at the moment of activation. Activate, read,
// cancel is the standard one-shot poll idiom; Resume continues live after the
// snapshot instead.
type Capture[T any] struct {
	mu        sync.Mutex
	src       binder[T]
	entryID   uuid.UUID
	active    bool
	capturing bool
	window    []core.Result[T]
	pending   []core.Result[T]
	forward   func(core.Result[T])
}

// Capture claims this signal's consumer slot without activating it
func (s *Signal[T]) Capture() (*Capture[T], error) {
	c := &Capture[T]{src: s.n, entryID: uuid.New()}
	entry := &targetEntry[T]{
		id: c.entryID,
		deliver: func(r core.Result[T]) {
			c.mu.Lock()
			switch {
			case c.capturing:
				c.window = append(c.window, r)
				c.mu.Unlock()
			case c.forward != nil:
				fwd := c.forward
				c.mu.Unlock()
				fwd(r)
			default:
				c.pending = append(c.pending, r)
				c.mu.Unlock()
			}
		},
	}
	if err := s.n.attach(entry); err != nil {
		return nil, err
	}
	return c, nil
}

// Activate wakes the chain and records the activation window. Idempotent.
func (c *Capture[T]) Activate() {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.capturing = true
	c.window = nil
	c.pending = nil
	c.mu.Unlock()

	c.src.activateEntry(c.entryID)

	c.mu.Lock()
	c.capturing = false
	c.mu.Unlock()
}

// Values returns the success values captured in the activation window,
// activating first if needed.
func (c *Capture[T]) Values() []T {
	c.Activate()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, 0, len(c.window))
	for _, r := range c.window {
		if !r.IsFailure() {
			out = append(out, r.Get())
		}
	}
	return out
}

// Err returns the failure captured in the activation window, if any
func (c *Capture[T]) Err() error {
	c.Activate()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.window {
		if r.IsFailure() {
			return r.Error()
		}
	}
	return nil
}

// Resume replays the captured window and anything buffered since, then
// continues live delivery to handler on ctx.
func (c *Capture[T]) Resume(ctx sched.Context, handler func(core.Result[T])) *Endpoint {
	c.Activate()

	ep := newNode[T, T](ctx, func(r core.Result[T], _ *Next[T]) {
		handler(r)
	})
	ep.state = stateActive

	c.mu.Lock()
	backlog := append(append([]core.Result[T]{}, c.window...), c.pending...)
	c.pending = nil
	c.forward = func(r core.Result[T]) {
		_ = ep.send(r)
	}
	c.mu.Unlock()

	for _, r := range backlog {
		_ = ep.send(r)
	}

	e := &Endpoint{keepAlive: c}
	e.remove = func() {
		c.Cancel()
		ep.closeWith(core.ErrCancelled)
	}
	e.arm()
	return e
}

// Cancel deactivates and detaches the capture. Idempotent.
func (c *Capture[T]) Cancel() {
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	c.forward = nil
	c.mu.Unlock()
	if wasActive {
		c.src.deactivateEntry(c.entryID)
	}
	c.src.detach(c.entryID)
}

// Poll activates a one-shot capture, reads the activation window and
// deactivates again: the synchronous "latest known values" idiom.
func (s *Signal[T]) Poll() ([]T, error) {
	c, err := s.Capture()
	if err != nil {
		return nil, err
	}
	defer c.Cancel()
	return c.Values(), c.Err()
}
