package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/reelapps/reelhunter/config"
	"github.com/reelapps/reelhunter/internal/observability/metrics"
	"github.com/reelapps/reelhunter/internal/observability/statsd"
)

// IdleSweeper drops sessions that have not been touched within maxIdle and reports how many went.
type IdleSweeper interface {
	SweepIdle(maxIdle time.Duration) int
}

// SessionSweeperOptions groups dependencies for SessionSweeper.
type SessionSweeperOptions struct {
	Sessions IdleSweeper          // Required: session registry
	Config   config.SessionConfig // Required: SweepInterval and MaxIdle
	Logger   *slog.Logger         // Optional: structured logger
	Metrics  statsd.Sink          // Optional: metrics sink (StatsD-compatible)
}

// SessionSweeper periodically evicts idle browser sessions so their watchers and
// listeners stop.
type SessionSweeper struct {
	sessions IdleSweeper
	interval time.Duration
	maxIdle  time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewSessionSweeper constructs a new SessionSweeper.
func NewSessionSweeper(opts SessionSweeperOptions) (*SessionSweeper, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session registry is required")
	}
	if opts.Config.SweepInterval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}
	if opts.Config.MaxIdle <= 0 {
		return nil, errors.New("max idle must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session_sweeper")
	logger.Debug("SessionSweeper initialized",
		"interval", opts.Config.SweepInterval,
		"max_idle", opts.Config.MaxIdle,
	)

	return &SessionSweeper{
		sessions: opts.Sessions,
		interval: opts.Config.SweepInterval,
		maxIdle:  opts.Config.MaxIdle,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run sweeps at the configured interval until ctx is cancelled.
// Returns nil on graceful shutdown (context.Canceled), ctx.Err() otherwise.
func (s *SessionSweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting session sweeper", "interval", s.interval, "max_idle", s.maxIdle)

	// Stagger replicas that start together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "session sweeper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep and returns the number of sessions removed.
func (s *SessionSweeper) SweepOnce(ctx context.Context) int {
	start := time.Now()
	removed := s.sessions.SweepIdle(s.maxIdle)
	metrics.EmitSessionSweep(s.metrics, metrics.SessionSweep{Removed: removed, Duration: time.Since(start)})
	if removed > 0 {
		s.logger.InfoContext(ctx, "swept idle sessions", "count", removed, "max_idle", s.maxIdle)
	}
	return removed
}

// waitWithJitter waits a random delay up to 10% of the interval.
func (s *SessionSweeper) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
