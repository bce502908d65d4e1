package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/reelapps/reelhunter/config"
	"github.com/reelapps/reelhunter/internal/observability/metrics"
	"github.com/reelapps/reelhunter/internal/observability/statsd"
	"github.com/reelapps/reelhunter/internal/ports"
)

// ErrNoInvoker is returned when a function call has no invoker bound to the caller's session.
var ErrNoInvoker = errors.New("function invoker is required")

// functionCaller wraps remote function invocations in one circuit breaker per function name.
type functionCaller struct {
	settings config.BreakerConfig
	logger   *slog.Logger
	metrics  statsd.Sink

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newFunctionCaller(settings config.BreakerConfig, logger *slog.Logger, sink statsd.Sink) *functionCaller {
	return &functionCaller{
		settings: settings,
		logger:   logger,
		metrics:  sink,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (f *functionCaller) breaker(name string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[name]; ok {
		return cb
	}
	minRequests := f.settings.MinRequests
	ratio := f.settings.FailureRatio
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: f.settings.MaxRequests,
		Interval:    f.settings.Interval,
		Timeout:     f.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("function circuit breaker state changed", "function", name, "from", from.String(), "to", to.String())
		},
		// A caller that gave up says nothing about the function's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	f.breakers[name] = cb
	return cb
}

// call invokes name through its breaker. An open breaker fails fast with gobreaker.ErrOpenState.
func (f *functionCaller) call(ctx context.Context, fn ports.FunctionInvoker, name string, body any) ([]byte, error) {
	if fn == nil {
		return nil, ErrNoInvoker
	}
	start := time.Now()
	out, err := f.breaker(name).Execute(func() (any, error) {
		return fn.Invoke(ctx, name, body)
	})
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", name, err)
	}
	raw, _ := out.([]byte)
	f.record(name, metrics.ResultSuccess, time.Since(start), nil)
	return raw, nil
}

func (f *functionCaller) record(name, result string, d time.Duration, err error) {
	metrics.EmitFunctionCall(f.metrics, metrics.FunctionCall{Function: name, Result: result, Duration: d, Err: err})
}

// state reports the breaker state for name; closed when the function has never been called.
func (f *functionCaller) state(name string) gobreaker.State {
	f.mu.Lock()
	cb, ok := f.breakers[name]
	f.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}
