package session

import (
	"sync"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/ports"
)

// Listener subscribes once to a backend's session-change notifications.
type Listener struct {
	backend ports.AuthBackend
	handle  func(domainauth.AuthChange)

	mu          sync.Mutex
	started     bool
	stopped     bool
	unsubscribe func()
	inflight    sync.WaitGroup
}

// NewListener constructs a Listener that forwards every change to handle.
func NewListener(backend ports.AuthBackend, handle func(domainauth.AuthChange)) *Listener {
	return &Listener{backend: backend, handle: handle}
}

// Start registers the subscription. Later calls are no-ops and return false.
func (l *Listener) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.stopped {
		return false
	}
	l.started = true
	l.unsubscribe = l.backend.OnAuthStateChange(l.dispatch)
	return true
}

func (l *Listener) dispatch(change domainauth.AuthChange) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.inflight.Add(1)
	l.mu.Unlock()
	defer l.inflight.Done()

	l.handle(change)
}

// Stop unsubscribes and waits for handlers already running.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	unsub := l.unsubscribe
	l.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	l.inflight.Wait()
}
