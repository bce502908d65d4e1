package auth

// Package auth contains domain-level types for authentication, sessions and profiles.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCandidate || r == RoleRecruiter
}

// NormalizeRole maps free-form input onto a known role; anything unknown becomes candidate.
func NormalizeRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r
	}
	return RoleCandidate
}

// UserMetadata is the profile hint attached to an account at sign-up.
type UserMetadata struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      Role   `json:"role,omitempty"`
}

// User is the bare authentication identity returned by the auth service.
type User struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	Metadata UserMetadata `json:"user_metadata"`
}

// Session is the authenticated-identity proof held for the duration of a login.
type Session struct {
	User  User
	Token *oauth2.Token
}

// AccessToken returns the session access token or an empty string.
func (s *Session) AccessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// RefreshToken returns the session refresh token or an empty string.
func (s *Session) RefreshToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.RefreshToken
}

// ExpiresAt returns the access token expiry; zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	if s == nil || s.Token == nil {
		return time.Time{}
	}
	return s.Token.Expiry
}

// Profile is the application-level user record, keyed by the user id.
type Profile struct {
	ID        string    `json:"id"         db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name"  db:"last_name"`
	Email     string    `json:"email"      db:"email"`
	Role      Role      `json:"role"       db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsRecruiter reports whether the profile may use recruiter workflows.
func (p *Profile) IsRecruiter() bool { return p != nil && p.Role == RoleRecruiter }

const (
	defaultFirstName = "User"
	defaultLastName  = "Name"
)

// DefaultProfile builds the profile row created for a user whose row is missing.
// Metadata wins where present; otherwise "User", "Name" and the candidate role are used.
func DefaultProfile(u User) Profile {
	p := Profile{
		ID:        u.ID,
		FirstName: u.Metadata.FirstName,
		LastName:  u.Metadata.LastName,
		Email:     u.Email,
		Role:      NormalizeRole(string(u.Metadata.Role)),
	}
	if p.FirstName == "" {
		p.FirstName = defaultFirstName
	}
	if p.LastName == "" {
		p.LastName = defaultLastName
	}
	return p
}

// AuthEvent names a session-change notification from the auth service.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthChange is one session-change notification. Session is nil for sign-out.
type AuthChange struct {
	Event   AuthEvent
	Session *Session
}

// SessionRecord is the server-side record persisted for a browser session.
// ID is an opaque session identifier (random UUID).
type SessionRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Session rebuilds the in-memory session from a persisted record.
func (r SessionRecord) Session() *Session {
	return &Session{
		User: User{ID: r.UserID, Email: r.Email},
		Token: &oauth2.Token{
			AccessToken:  r.AccessToken,
			RefreshToken: r.RefreshToken,
			TokenType:    "bearer",
			Expiry:       r.TokenExpiry,
		},
	}
}
