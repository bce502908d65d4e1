package sso

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Outcome is the result of Initialize.
type Outcome int

const (
	// OutcomeUnauthenticated means the request carries no usable token.
	OutcomeUnauthenticated Outcome = iota
	// OutcomeAuthenticated means the request is on the main domain or has a live token cookie.
	OutcomeAuthenticated
	// OutcomeHandoff means tokens arrived in the query string; cookies were written and a
	// redirect to the cleaned URL was sent.
	OutcomeHandoff
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeHandoff:
		return "handoff"
	default:
		return "unauthenticated"
	}
}

const (
	queryToken        = "token"
	queryRefreshToken = "refresh_token"
)

// PolicyOptions groups dependencies for NewPolicy.
type PolicyOptions struct {
	Config Config
	Tokens *TokenStore
	Logger *slog.Logger
}

// Policy decides whether a request is on the main auth domain or a satellite that delegates to it.
type Policy struct {
	cfg    Config
	tokens *TokenStore
	logger *slog.Logger
}

// NewPolicy constructs a Policy. A TokenStore is created from the config when none is given.
func NewPolicy(opts PolicyOptions) *Policy {
	cfg := opts.Config.withDefaults()
	tokens := opts.Tokens
	if tokens == nil {
		tokens = NewTokenStore(cfg)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{cfg: cfg, tokens: tokens, logger: logger.With("component", "sso")}
}

// Tokens returns the policy's token store.
func (p *Policy) Tokens() *TokenStore { return p.tokens }

// CurrentDomain returns the configured app domain, else the request host without port.
func (p *Policy) CurrentDomain(r *http.Request) string {
	if p.cfg.CurrentDomain != "" {
		return p.cfg.CurrentDomain
	}
	if r == nil {
		return ""
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

// AuthDomain returns the configured auth domain, else the main domain.
func (p *Policy) AuthDomain() string {
	if p.cfg.AuthDomain != "" {
		return p.cfg.AuthDomain
	}
	return p.cfg.MainDomain
}

// IsMainDomain reports whether r is served on the auth domain. Any host containing
// "localhost" counts as main so local development never redirects.
func (p *Policy) IsMainDomain(r *http.Request) bool {
	current := p.CurrentDomain(r)
	return current == p.AuthDomain() || strings.Contains(current, "localhost")
}

// ShouldRedirectToAuth reports whether r must be sent to the main domain to log in.
func (p *Policy) ShouldRedirectToAuth(r *http.Request) bool {
	return !p.IsMainDomain(r) && !p.tokens.HasValidAuthToken(r)
}

// BuildAuthRedirectURL returns the main domain login URL carrying returnURL.
// returnURL defaults to the current origin.
func (p *Policy) BuildAuthRedirectURL(r *http.Request, returnURL string) string {
	if returnURL == "" {
		returnURL = "https://" + p.CurrentDomain(r)
	}
	return "https://" + p.AuthDomain() + "/login?redirect=" + url.QueryEscape(returnURL)
}

// TrustedOrigin is the only origin whose cross-window messages are accepted.
func (p *Policy) TrustedOrigin() string { return "https://" + p.AuthDomain() }

func (p *Policy) redirectGuardName() string { return p.cfg.AuthCookieName + "_redirect" }

// HandleAuthRedirect sends r to the main domain login when required and reports whether it
// wrote a response. A short-lived guard cookie limits this to one redirect per page load;
// a second attempt while the guard is set answers 401 instead of looping.
func (p *Policy) HandleAuthRedirect(w http.ResponseWriter, r *http.Request) bool {
	if !p.ShouldRedirectToAuth(r) {
		return false
	}
	if _, err := r.Cookie(p.redirectGuardName()); err == nil {
		p.logger.WarnContext(r.Context(), "auth redirect suppressed; guard cookie present",
			"host", p.CurrentDomain(r), "auth_domain", p.AuthDomain())
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return true
	}
	http.SetCookie(w, &http.Cookie{
		Name:     p.redirectGuardName(),
		Value:    "1",
		Path:     "/",
		MaxAge:   int(redirectGuardTTL.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, p.BuildAuthRedirectURL(r, p.requestURL(r)), http.StatusFound)
	return true
}

// Initialize resolves the SSO state of a page load. Tokens relayed in the query string are
// stored as cookies and the client is redirected to the same URL without them.
func (p *Policy) Initialize(w http.ResponseWriter, r *http.Request) Outcome {
	if p.IsMainDomain(r) || p.tokens.HasValidAuthToken(r) {
		return OutcomeAuthenticated
	}
	q := r.URL.Query()
	token := q.Get(queryToken)
	if token == "" {
		return OutcomeUnauthenticated
	}
	p.tokens.SetAuthCookies(w, token, q.Get(queryRefreshToken))

	q.Del(queryToken)
	q.Del(queryRefreshToken)
	clean := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
	if clean.Path == "" {
		clean.Path = "/"
	}
	http.Redirect(w, r, clean.String(), http.StatusFound)
	return OutcomeHandoff
}

// Middleware applies Initialize and HandleAuthRedirect to browser navigations (GET/HEAD
// requests asking for HTML). Everything else passes through untouched.
func (p *Policy) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isNavigation(r) {
				next.ServeHTTP(w, r)
				return
			}
			switch p.Initialize(w, r) {
			case OutcomeHandoff:
				return
			case OutcomeUnauthenticated:
				if p.HandleAuthRedirect(w, r) {
					return
				}
			case OutcomeAuthenticated:
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p *Policy) requestURL(r *http.Request) string {
	u := url.URL{Scheme: "https", Host: p.CurrentDomain(r), Path: r.URL.Path, RawQuery: r.URL.RawQuery}
	return u.String()
}

func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if strings.EqualFold(r.Header.Get("Sec-Fetch-Mode"), "navigate") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
