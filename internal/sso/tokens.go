package sso

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore reads and writes the access and refresh cookies on the shared parent domain.
// The cookies are a cache of the session, never proof of it.
type TokenStore struct {
	cfg Config
	now func() time.Time
}

// NewTokenStore creates a TokenStore from cfg, filling defaults.
func NewTokenStore(cfg Config) *TokenStore {
	return &TokenStore{cfg: cfg.withDefaults(), now: time.Now}
}

// CookieDomain returns the effective parent cookie domain.
func (s *TokenStore) CookieDomain() string { return s.cfg.CookieDomain }

// AuthCookieName returns the access cookie name.
func (s *TokenStore) AuthCookieName() string { return s.cfg.AuthCookieName }

// SetAuthCookies writes the access cookie and, when refreshToken is non-empty, the refresh cookie.
// The access cookie stays readable by script so the UI can inspect its claims.
func (s *TokenStore) SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	now := s.now()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.AuthCookieName,
		Value:    accessToken,
		Path:     "/",
		Domain:   s.cfg.CookieDomain,
		Expires:  now.Add(s.cfg.AccessCookieTTL).UTC(),
		MaxAge:   int(s.cfg.AccessCookieTTL.Seconds()),
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	if refreshToken == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		Domain:   s.cfg.CookieDomain,
		Expires:  now.Add(s.cfg.RefreshCookieTTL).UTC(),
		MaxAge:   int(s.cfg.RefreshCookieTTL.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookies expires both cookies on the parent domain.
func (s *TokenStore) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{s.cfg.AuthCookieName, s.cfg.RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   s.cfg.CookieDomain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0).UTC(),
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// AuthToken returns the access cookie value; ok is false when the cookie is absent or empty.
func (s *TokenStore) AuthToken(r *http.Request) (string, bool) {
	return cookieValue(r, s.cfg.AuthCookieName)
}

// RefreshToken returns the refresh cookie value; ok is false when the cookie is absent or empty.
func (s *TokenStore) RefreshToken(r *http.Request) (string, bool) {
	return cookieValue(r, s.cfg.RefreshCookieName)
}

// HasValidAuthToken reports whether the access cookie holds a token whose exp lies in the future.
// Decode failures mean "no valid token", never an error.
func (s *TokenStore) HasValidAuthToken(r *http.Request) bool {
	tok, ok := s.AuthToken(r)
	if !ok {
		return false
	}
	return ValidToken(tok, s.now())
}

func cookieValue(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

var errNoExpiry = errors.New("token has no exp claim")

var errMalformedToken = errors.New("token has no payload segment")

// PeekClaims decodes a JWT's payload segment without verifying its signature. Only the
// second segment is read, so the header and signature may be anything or absent.
func PeekClaims(raw string) (jwt.MapClaims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, errMalformedToken
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	return claims, nil
}

// Expiry returns the exp claim of an unverified token.
func Expiry(raw string) (time.Time, error) {
	claims, err := PeekClaims(raw)
	if err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errNoExpiry
	}
	return exp.Time, nil
}

// ValidToken reports whether raw decodes and expires after now. It is a liveness hint only.
func ValidToken(raw string, now time.Time) bool {
	exp, err := Expiry(raw)
	if err != nil {
		return false
	}
	return exp.After(now)
}
