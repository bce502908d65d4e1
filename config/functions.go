package config

import (
	"strings"
	"time"
)

// BreakerConfig tunes the circuit breaker kept per remote function.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32 `env:"MAX_REQUESTS" envDefault:"1"`
	// Interval is the closed-state window after which failure counts reset. Zero never resets.
	Interval time.Duration `env:"INTERVAL" envDefault:"60s"`
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
	// MinRequests is the number of calls in a window before the breaker may trip.
	MinRequests uint32 `env:"MIN_REQUESTS" envDefault:"5"`
	// FailureRatio trips the breaker once this share of calls in the window failed.
	FailureRatio float64 `env:"FAILURE_RATIO" envDefault:"0.6"`
}

// Sanitize applies guardrails to breaker values.
func (c *BreakerConfig) Sanitize() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MinRequests == 0 {
		c.MinRequests = 1
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = 0.6
	}
}

// FunctionsConfig names the remote functions and controls how their results are used.
type FunctionsConfig struct {
	MatchName   string `env:"FUNCTIONS_MATCH_NAME"   envDefault:"match-candidates"`
	AnalyzeName string `env:"FUNCTIONS_ANALYZE_NAME" envDefault:"analyze-job"`
	// MatchPath is a JMESPath expression locating the match list in the function's reply.
	MatchPath string `env:"FUNCTIONS_MATCH_PATH" envDefault:"not_null(matches, @)"`

	Breaker BreakerConfig `envPrefix:"FUNCTIONS_BREAKER_"`

	// MatchCacheTTL is how long genuine match results are cached per job. Zero disables caching.
	MatchCacheTTL time.Duration `env:"MATCH_CACHE_TTL" envDefault:"10m"`
}

// Sanitize applies guardrails to function settings.
func (c *FunctionsConfig) Sanitize() {
	c.MatchName = strings.TrimSpace(c.MatchName)
	c.AnalyzeName = strings.TrimSpace(c.AnalyzeName)
	c.MatchPath = strings.TrimSpace(c.MatchPath)
	if c.MatchCacheTTL < 0 {
		c.MatchCacheTTL = 0
	}
	c.Breaker.Sanitize()
}
