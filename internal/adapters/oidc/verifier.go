package oidc

// Package oidc verifies access tokens issued by the auth service against its published JWKS.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/reelapps/reelhunter/internal/ports"
)

// DefaultAudience is the audience GoTrue stamps on user access tokens.
const DefaultAudience = "authenticated"

var _ ports.TokenVerifier = (*Verifier)(nil)

// VerifierConfig holds configuration for the JWKS verifier.
type VerifierConfig struct {
	// Issuer is the expected "iss" claim, e.g. https://<project>.supabase.co/auth/v1.
	Issuer string
	// JWKSURL defaults to <Issuer>/.well-known/jwks.json.
	JWKSURL string
	// Audience is the expected "aud" claim. Empty uses DefaultAudience; "-" skips the check.
	Audience   string
	Algorithms []string
	HTTPClient *http.Client // Optional, defaults to a 15s client
	Now        func() time.Time
}

// Verifier checks access token signatures and standard claims.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier creates a Verifier backed by a remote key set that is fetched lazily and cached.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	issuer := strings.TrimSuffix(cfg.Issuer, "/")
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	algs := cfg.Algorithms
	if len(algs) == 0 {
		algs = []string{gooidc.RS256, gooidc.ES256}
	}

	oidcCfg := &gooidc.Config{
		ClientID:             cfg.Audience,
		SupportedSigningAlgs: algs,
		Now:                  cfg.Now,
	}
	switch cfg.Audience {
	case "":
		oidcCfg.ClientID = DefaultAudience
	case "-":
		oidcCfg.ClientID = ""
		oidcCfg.SkipClientIDCheck = true
	}

	keys := gooidc.NewRemoteKeySet(gooidc.ClientContext(context.Background(), httpClient), jwksURL)
	return &Verifier{verifier: gooidc.NewVerifier(issuer, keys, oidcCfg)}, nil
}

type accessClaims struct {
	Email string `json:"email"`
}

// Verify validates raw and returns its subject, e-mail and expiry.
func (v *Verifier) Verify(ctx context.Context, raw string) (ports.VerifiedToken, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return ports.VerifiedToken{}, fmt.Errorf("verify access token: %w", err)
	}
	var claims accessClaims
	if err := tok.Claims(&claims); err != nil {
		return ports.VerifiedToken{}, fmt.Errorf("parse access token claims: %w", err)
	}
	return ports.VerifiedToken{
		Subject: tok.Subject,
		Email:   claims.Email,
		Expiry:  tok.Expiry,
	}, nil
}
