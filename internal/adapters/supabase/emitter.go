package supabase

import (
	"log/slog"
	"sync"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
)

const subscriberBuffer = 16

type subscriber struct {
	ch   chan domainauth.AuthChange
	done chan struct{}
}

// emitter fans auth changes out to subscribers. Each subscriber gets its own goroutine and
// buffered queue, so a slow handler never blocks the backend call that produced the change.
// Delivery order is preserved per subscriber.
type emitter struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

func newEmitter(logger *slog.Logger) *emitter {
	return &emitter{logger: logger, subs: make(map[int]*subscriber)}
}

func (e *emitter) subscribe(fn func(domainauth.AuthChange)) func() {
	s := &subscriber{
		ch:   make(chan domainauth.AuthChange, subscriberBuffer),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		for change := range s.ch {
			fn(change)
		}
	}()

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = s
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			close(s.ch)
			e.mu.Unlock()
			<-s.done
		})
	}
}

func (e *emitter) emit(change domainauth.AuthChange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, s := range e.subs {
		select {
		case s.ch <- change:
		default:
			e.logger.Warn("auth event dropped, subscriber queue full",
				"event", change.Event, "subscriber", id)
		}
	}
}

func (e *emitter) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
