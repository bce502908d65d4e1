package sso

import (
	"errors"
	"net/http"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
)

// MessageType tags a cross-window SSO message.
type MessageType string

const (
	MessageAuthSuccess     MessageType = "AUTH_SUCCESS"
	MessageAuthLogout      MessageType = "AUTH_LOGOUT"
	MessageAuthStateUpdate MessageType = "AUTH_STATE_UPDATE"
)

var (
	ErrUntrustedOrigin = errors.New("message origin is not trusted")
	ErrUnknownMessage  = errors.New("unknown message type")
	ErrMissingToken    = errors.New("access token is required")
)

// Message is an inbound cross-window message relayed by the page.
type Message struct {
	Type         MessageType `json:"type"`
	AccessToken  string      `json:"accessToken,omitempty"`
	RefreshToken string      `json:"refreshToken,omitempty"`
}

// ApplyMessage validates origin and applies msg to the token cookies. On success the caller
// tells the page to reload.
func (p *Policy) ApplyMessage(w http.ResponseWriter, origin string, msg Message) error {
	if origin != p.TrustedOrigin() {
		return ErrUntrustedOrigin
	}
	switch msg.Type {
	case MessageAuthSuccess:
		if msg.AccessToken == "" {
			return ErrMissingToken
		}
		p.tokens.SetAuthCookies(w, msg.AccessToken, msg.RefreshToken)
	case MessageAuthLogout:
		p.tokens.ClearAuthCookies(w)
	default:
		return ErrUnknownMessage
	}
	return nil
}

// AuthState is the payload of an AUTH_STATE_UPDATE message. Token is null when signed out.
type AuthState struct {
	User  *domainauth.User `json:"user"`
	Token *string          `json:"token"`
}

// StateUpdate is posted to a parent frame on the auth domain.
type StateUpdate struct {
	Type         MessageType `json:"type"`
	AuthState    AuthState   `json:"authState"`
	TargetOrigin string      `json:"targetOrigin"`
}

// StateUpdate builds the message describing user and token for the parent frame.
func (p *Policy) StateUpdate(user *domainauth.User, token string) StateUpdate {
	st := AuthState{User: user}
	if token != "" {
		st.Token = &token
	}
	return StateUpdate{Type: MessageAuthStateUpdate, AuthState: st, TargetOrigin: p.TrustedOrigin()}
}
