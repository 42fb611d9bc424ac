// Package sched provides the execution contexts a signal node delivers on.
// The engine itself never creates goroutines; every asynchronous hop is owned
// by a Context supplied at construction time.
package sched

import (
	"sync"

	"github.com/petermattis/goid"
)

// Context runs a callback, possibly asynchronously, possibly immediately.
// Implementations used for node delivery must run jobs one at a time in the
// order they were handed over; Direct and Serial do, and the engine schedules
// at most one drain job at a time so Goroutine is safe as well.
type Context interface {
	Run(f func())
}

// Direct runs the callback inline on the calling goroutine
type Direct struct{}

func (Direct) Run(f func()) {
	f()
}

// Goroutine dispatches each callback to a fresh goroutine and returns
// immediately once handed off
type Goroutine struct{}

func (Goroutine) Run(f func()) {
	go f()
}

// Serial is a FIFO queue drained by a single worker goroutine. Jobs run in
// submission order, one at a time. The worker is started lazily on the first
// Run and exits when the queue empties, so an idle Serial holds no goroutine.
type Serial struct {
	mu      sync.Mutex
	pending []func()
	running bool
	worker  int64 // goid of the active worker, 0 when idle
}

// NewSerial creates an idle serial context
func NewSerial() *Serial {
	return &Serial{}
}

// Run enqueues f and returns without waiting for it
func (s *Serial) Run(f func()) {
	s.mu.Lock()
	s.pending = append(s.pending, f)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	go s.drain()
}

// RunSync enqueues f and blocks until it has run. Calls made from the
// worker goroutine itself run f inline instead, so a job may safely call
// RunSync on its own context without deadlocking.
func (s *Serial) RunSync(f func()) {
	s.mu.Lock()
	onWorker := s.running && s.worker == goid.Get()
	s.mu.Unlock()
	if onWorker {
		f()
		return
	}

	done := make(chan struct{})
	s.Run(func() {
		defer close(done)
		f()
	})
	<-done
}

func (s *Serial) drain() {
	s.mu.Lock()
	s.worker = goid.Get()
	for len(s.pending) > 0 {
		f := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		f()
		s.mu.Lock()
	}
	s.running = false
	s.worker = 0
	s.mu.Unlock()
}
