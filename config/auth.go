package config

import (
	"fmt"
	"strings"
	"time"
)

// SSOConfig controls the cross-subdomain cookies and the auth-domain redirect.
// Empty values fall back to the sso package defaults.
type SSOConfig struct {
	// AuthDomain overrides the host users are sent to for login.
	AuthDomain string `env:"AUTH_DOMAIN"`
	// AppDomain pins the app's own host instead of reading it from the request.
	AppDomain string `env:"APP_DOMAIN"`

	MainDomain        string        `env:"SSO_MAIN_DOMAIN"         envDefault:"reelapps.co.za"`
	CookieDomain      string        `env:"SSO_COOKIE_DOMAIN"`
	AuthCookieName    string        `env:"SSO_AUTH_COOKIE_NAME"    envDefault:"reelapps_auth_token"`
	RefreshCookieName string        `env:"SSO_REFRESH_COOKIE_NAME" envDefault:"reelapps_refresh_token"`
	AccessCookieTTL   time.Duration `env:"SSO_ACCESS_COOKIE_TTL"   envDefault:"24h"`
	RefreshCookieTTL  time.Duration `env:"SSO_REFRESH_COOKIE_TTL"  envDefault:"168h"`
}

// Sanitize normalises host names.
func (c *SSOConfig) Sanitize() {
	c.AuthDomain = normalizeHost(c.AuthDomain)
	c.AppDomain = normalizeHost(c.AppDomain)
	c.MainDomain = normalizeHost(c.MainDomain)
	c.CookieDomain = strings.ToLower(strings.TrimSpace(c.CookieDomain))
}

func normalizeHost(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "https://")
	v = strings.TrimPrefix(v, "http://")
	return strings.TrimSuffix(v, "/")
}

// SupabaseConfig locates the hosted auth, rows and functions endpoints.
type SupabaseConfig struct {
	URL     string        `env:"URL,required,notEmpty"`
	AnonKey string        `env:"ANON_KEY,required,notEmpty"`
	Timeout time.Duration `env:"TIMEOUT"           envDefault:"15s"`
}

// Sanitize applies guardrails to backend settings.
func (c *SupabaseConfig) Sanitize() {
	c.URL = strings.TrimSuffix(strings.TrimSpace(c.URL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// TokenConfig enables signature verification of adopted SSO tokens.
// Verification is off unless an issuer or a JWKS URL is set.
type TokenConfig struct {
	Issuer   string `env:"ISSUER"`
	JWKSURL  string `env:"JWKS_URL"`
	Audience string `env:"AUDIENCE"`
}

// Sanitize trims values.
func (c *TokenConfig) Sanitize() {
	c.Issuer = strings.TrimSpace(c.Issuer)
	c.JWKSURL = strings.TrimSpace(c.JWKSURL)
	c.Audience = strings.TrimSpace(c.Audience)
}

// VerificationEnabled reports whether tokens should be checked against a key set.
func (c *TokenConfig) VerificationEnabled() bool {
	return c.Issuer != ""
}

// ProfileBackend selects the profile store implementation.
type ProfileBackend string

const (
	// ProfileBackendREST reads and writes profile rows through the hosted REST API.
	ProfileBackendREST ProfileBackend = "rest"
	// ProfileBackendPostgres talks to the profiles table directly.
	ProfileBackendPostgres ProfileBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProfileBackend.
func (b *ProfileBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "rest", "postgres":
		*b = ProfileBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid ProfileBackend: %q (valid options: rest, postgres)", v)
	}
}
