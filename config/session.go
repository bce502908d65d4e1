package config

import "time"

// SessionConfig controls server-side browser sessions.
type SessionConfig struct {
	// CookieName is the host-only cookie carrying the browser-session id.
	CookieName string `env:"COOKIE_NAME" envDefault:"reelhunter_sid"`
	// TTL bounds how long a persisted session record lives.
	TTL time.Duration `env:"TTL" envDefault:"168h"`
	// WatchInterval is the period of the background session check.
	WatchInterval time.Duration `env:"WATCH_INTERVAL" envDefault:"50m"`
	// SettleDelay is waited after sign-in before the profile is loaded.
	SettleDelay time.Duration `env:"SETTLE_DELAY" envDefault:"500ms"`
	// SweepInterval is how often idle sessions are evicted from memory.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	// MaxIdle is how long an untouched session stays in memory.
	MaxIdle time.Duration `env:"MAX_IDLE" envDefault:"2h"`
	// Secure marks the session cookie Secure. Forced off in dev mode by the HTTP layer.
	Secure bool `env:"COOKIE_SECURE" envDefault:"true"`
}

// Sanitize applies guardrails to session configuration values.
func (c *SessionConfig) Sanitize() {
	if c.CookieName == "" {
		c.CookieName = "reelhunter_sid"
	}
	if c.TTL <= 0 {
		c.TTL = 168 * time.Hour
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = 50 * time.Minute
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = 2 * time.Hour
	}
}
