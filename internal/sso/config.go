// Package sso implements cross-subdomain single sign-on: the domain policy that decides
// whether a request needs delegated authentication, the cookie-backed token store shared by
// every subdomain, the query-parameter hand-off and the cross-window message protocol.
package sso

import (
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	DefaultMainDomain        = "reelapps.co.za"
	DefaultAuthCookieName    = "reelapps_auth_token"
	DefaultRefreshCookieName = "reelapps_refresh_token"
	DefaultAccessCookieTTL   = 24 * time.Hour
	DefaultRefreshCookieTTL  = 7 * 24 * time.Hour

	redirectGuardTTL = 60 * time.Second
)

// Config is the static SSO configuration. It is immutable once handed to NewPolicy.
type Config struct {
	MainDomain        string
	CookieDomain      string
	AuthCookieName    string
	RefreshCookieName string

	// AuthDomain overrides MainDomain as the login host when set.
	AuthDomain string
	// CurrentDomain pins the app's own host instead of reading it from the request.
	CurrentDomain string

	AccessCookieTTL  time.Duration
	RefreshCookieTTL time.Duration
}

// withDefaults fills unset fields. CookieDomain is derived from MainDomain when empty.
func (c Config) withDefaults() Config {
	if c.MainDomain == "" {
		c.MainDomain = DefaultMainDomain
	}
	if c.AuthCookieName == "" {
		c.AuthCookieName = DefaultAuthCookieName
	}
	if c.RefreshCookieName == "" {
		c.RefreshCookieName = DefaultRefreshCookieName
	}
	if c.AccessCookieTTL <= 0 {
		c.AccessCookieTTL = DefaultAccessCookieTTL
	}
	if c.RefreshCookieTTL <= 0 {
		c.RefreshCookieTTL = DefaultRefreshCookieTTL
	}
	if c.CookieDomain == "" {
		c.CookieDomain = DeriveCookieDomain(c.MainDomain)
	}
	return c
}

// DeriveCookieDomain returns ".<eTLD+1>" for host, so cookies cover every sibling subdomain.
// Hosts without a registrable domain (localhost, bare IPs) yield "" which means host-only cookies.
func DeriveCookieDomain(host string) string {
	host = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return ""
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return "." + root
}
