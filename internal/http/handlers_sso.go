package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/sso"
)

// SSOHandlers relays cross-window messages between the page and the SSO policy.
type SSOHandlers struct {
	Policy *sso.Policy
	Logger *slog.Logger
}

// Message applies an AUTH_SUCCESS or AUTH_LOGOUT message posted by the auth domain.
// The Origin header must be the trusted auth origin. On success the page is told to reload.
func (h *SSOHandlers) Message(w http.ResponseWriter, r *http.Request) {
	var msg sso.Message
	if !DecodeJSON(w, r, &msg) {
		return
	}
	err := h.Policy.ApplyMessage(w, r.Header.Get("Origin"), msg)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, map[string]string{"action": "reload"})
	case errors.Is(err, sso.ErrUntrustedOrigin):
		if h.Logger != nil {
			h.Logger.WarnContext(r.Context(), "sso message from untrusted origin", "origin", r.Header.Get("Origin"))
		}
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "untrusted_origin", Err: err})
	default:
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_message", Err: err})
	}
}

// State returns the AUTH_STATE_UPDATE message for the parent frame.
func (h *SSOHandlers) State(w http.ResponseWriter, r *http.Request) {
	var (
		user  *domainauth.User
		token string
	)
	if hd, ok := HandleFromContext(r.Context()); ok {
		user = hd.Controller.State().User
		if user != nil {
			if sess, err := hd.Backend.GetSession(r.Context()); err == nil {
				token = sess.AccessToken()
			}
		}
	}
	WriteJSON(w, http.StatusOK, h.Policy.StateUpdate(user, token))
}
