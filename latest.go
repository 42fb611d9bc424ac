package signal

import (
	"sync"

	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// Latest holds the single most recent result of a signal behind a mutex, so
// a synchronous caller (a delegate method, a status probe) can answer with
// the latest known value without being on the signal's delivery context.
// Reads block only for the bounded mutex acquisition.
type Latest[T any] struct {
	mu  sync.Mutex
	val T
	ok  bool
	err error
	ep  *Endpoint
}

// NewLatest subscribes to s and starts tracking its most recent result
func NewLatest[T any](s *Signal[T]) *Latest[T] {
	l := &Latest[T]{}
	l.ep = s.Subscribe(sched.Direct{}, func(r core.Result[T]) {
		l.mu.Lock()
		if v, err := r.Unpack(); err != nil {
			l.err = err
		} else {
			l.val = v
			l.ok = true
		}
		l.mu.Unlock()
	})
	return l
}

// Value returns the most recently completed value and whether one has
// arrived yet.
func (l *Latest[T]) Value() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.val, l.ok
}

// Err returns the terminal error, if the stream has ended
func (l *Latest[T]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Cancel detaches the wrapper from its signal
func (l *Latest[T]) Cancel() {
	l.ep.Cancel()
}
