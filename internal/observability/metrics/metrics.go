// Package metrics holds the metric names and tag conventions shared by services.
package metrics

import (
	"time"

	obserrors "github.com/reelapps/reelhunter/internal/observability/errors"
	"github.com/reelapps/reelhunter/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultNoop     = "noop"
	ResultFallback = "fallback"
	ResultCacheHit = "cache_hit"
)

// FunctionCall describes one remote function invocation.
type FunctionCall struct {
	Function string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitFunctionCall emits function.call and function.duration.
func EmitFunctionCall(sink statsd.Sink, in FunctionCall) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"function": in.Function,
		"result":   in.Result,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("function.call", 1, tags)
	if in.Duration > 0 {
		sink.Timing("function.duration", in.Duration, CloneTags(tags))
	}
}

// SessionSweep describes one pass of the idle-session sweeper.
type SessionSweep struct {
	Removed  int
	Duration time.Duration
}

// EmitSessionSweep emits session.sweep counters and the sweep duration.
func EmitSessionSweep(sink statsd.Sink, in SessionSweep) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if in.Removed == 0 {
		result = ResultNoop
	}
	tags := map[string]string{"result": result}
	sink.Count("session.sweep", 1, tags)
	if in.Removed > 0 {
		sink.Count("session.swept", int64(in.Removed), nil)
	}
	if in.Duration > 0 {
		sink.Timing("session.sweep_duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
