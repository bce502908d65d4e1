package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/session and internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
)

var (
	// ErrProfileNotFound is returned by ProfileStore.GetProfile when no row exists for the id.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileConflict is returned by ProfileStore.InsertProfile when the row already exists.
	ErrProfileConflict = errors.New("profile already exists")
	// ErrSessionNotFound is returned by SessionStore.Get for unknown or expired records.
	ErrSessionNotFound = errors.New("session not found")
	// ErrFunctionFailed marks a remote function that answered with an error status,
	// as opposed to one that could not be reached.
	ErrFunctionFailed = errors.New("remote function failed")
)

// SignUpInput carries a new account's credentials and profile hint.
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domainauth.Role
}

// SignUpResult is the backend's answer to a sign-up. Session is nil when the
// backend requires e-mail confirmation before issuing tokens.
type SignUpResult struct {
	User    *domainauth.User
	Session *domainauth.Session
}

// AuthBackend is the remote authentication service, bound to one browser session.
// It holds that session's tokens and emits AuthChange notifications when they change.
type AuthBackend interface {
	SignIn(ctx context.Context, email, password string) (*domainauth.Session, error)
	SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error)
	SignOut(ctx context.Context) error

	// GetSession returns the current session, or nil with no error when there is none.
	GetSession(ctx context.Context) (*domainauth.Session, error)

	// RefreshSession exchanges the refresh token for a new session.
	RefreshSession(ctx context.Context) (*domainauth.Session, error)

	// SetSession adopts tokens obtained elsewhere (SSO cookies, a stored record).
	SetSession(ctx context.Context, accessToken, refreshToken string) (*domainauth.Session, error)

	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error

	// OnAuthStateChange registers fn and returns a function that unsubscribes it.
	OnAuthStateChange(fn func(domainauth.AuthChange)) (unsubscribe func())
}

// ProfileStore reads and creates profile rows.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*domainauth.Profile, error)
	InsertProfile(ctx context.Context, p domainauth.Profile) (*domainauth.Profile, error)
}

// SessionStore persists browser-session records.
type SessionStore interface {
	Save(ctx context.Context, rec domainauth.SessionRecord) error
	Get(ctx context.Context, id string) (domainauth.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

// VerifiedToken is the identity extracted from a signature-checked access token.
type VerifiedToken struct {
	Subject string
	Email   string
	Expiry  time.Time
}

// TokenVerifier checks an access token's signature and standard claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (VerifiedToken, error)
}

// FunctionInvoker calls a named remote function with a JSON body and returns the raw JSON reply.
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string, body any) ([]byte, error)
}
