package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultWatchInterval renews sessions shortly before the usual one-hour token expiry.
const DefaultWatchInterval = 50 * time.Minute

// WatcherOptions groups dependencies for NewWatcher.
type WatcherOptions struct {
	Interval time.Duration
	// Tick runs once per interval. Errors are the callee's to log; the loop never stops on them.
	Tick   func(ctx context.Context)
	Logger *slog.Logger
}

// Watcher runs a single recurring timer. It can be started at most once.
type Watcher struct {
	interval time.Duration
	tick     func(ctx context.Context)
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher constructs a Watcher.
func NewWatcher(opts WatcherOptions) *Watcher {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{interval: interval, tick: opts.Tick, logger: logger}
}

// Start launches the timer loop bound to ctx. It returns true the first time and false on
// every later call, so there is never more than one active timer.
func (w *Watcher) Start(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return false
	}
	w.started = true

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
	return true
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.DebugContext(ctx, "session watcher stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			if w.tick != nil {
				w.tick(ctx)
			}
		}
	}
}

// Stop ends the loop and waits for an in-flight tick to return. Safe to call repeatedly.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
