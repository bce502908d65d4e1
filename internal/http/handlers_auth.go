package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/session"
	"github.com/reelapps/reelhunter/internal/sso"
)

// AuthHandlers serves the browser-session endpoints.
type AuthHandlers struct {
	Sessions SessionRegistry
	Cookie   SessionCookie
	// Tokens mirrors the session's tokens into the shared SSO cookies. Optional.
	Tokens *sso.TokenStore
	Origin string
	Logger *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// authFailure is the body of a failed auth operation: the error plus the resulting state.
type authFailure struct {
	Error *domainauth.AuthError `json:"error"`
	State session.State         `json:"state"`
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// handle returns the request's browser session. Without one it starts a fresh session; the
// caller hands it to the browser with keep or drops it with release.
func (h *AuthHandlers) handle(w http.ResponseWriter, r *http.Request) (hd *session.Handle, fresh, ok bool) {
	if hd, ok := HandleFromContext(r.Context()); ok {
		return hd, false, true
	}
	hd, err := h.Sessions.Create(r.Context(), h.Origin)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "failed to create session", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "session_unavailable",
			Err:     errors.New("could not start a session"),
		})
		return nil, false, false
	}
	return hd, true, true
}

// keep hands a fresh session to the browser.
func (h *AuthHandlers) keep(w http.ResponseWriter, hd *session.Handle, fresh bool) {
	if fresh {
		h.Cookie.set(w, hd.ID)
	}
}

// release drops a fresh session that the request did not sign in.
func (h *AuthHandlers) release(r *http.Request, hd *session.Handle, fresh bool) {
	if !fresh {
		return
	}
	if err := h.Sessions.Remove(r.Context(), hd.ID); err != nil {
		h.logger().WarnContext(r.Context(), "failed to release session", "session_id", hd.ID, "error", err)
	}
}

// mirrorTokens copies the backend session's tokens into the SSO cookies.
func (h *AuthHandlers) mirrorTokens(w http.ResponseWriter, r *http.Request, hd *session.Handle) {
	if h.Tokens == nil {
		return
	}
	sess, err := hd.Backend.GetSession(r.Context())
	if err != nil {
		h.logger().WarnContext(r.Context(), "failed to read session for sso cookies", "error", err)
		return
	}
	if sess.AccessToken() == "" {
		return
	}
	h.Tokens.SetAuthCookies(w, sess.AccessToken(), sess.RefreshToken())
}

func writeAuthFailure(w http.ResponseWriter, code int, err error, st session.State) {
	var aerr *domainauth.AuthError
	if !errors.As(err, &aerr) {
		aerr = &domainauth.AuthError{Code: domainauth.CodeLogin, Message: err.Error()}
	}
	WriteJSON(w, code, authFailure{Error: aerr, State: st})
}

type field struct{ name, value string }

func requireFields(w http.ResponseWriter, fields ...field) bool {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: errors.New(f.name + " is required")})
			return false
		}
	}
	return true
}

// Login signs the browser session in with email and password.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, field{"email", req.Email}, field{"password", req.Password}) {
		return
	}
	hd, fresh, ok := h.handle(w, r)
	if !ok {
		return
	}
	if err := hd.Controller.Login(r.Context(), strings.TrimSpace(req.Email), req.Password); err != nil {
		st := hd.Controller.State()
		h.release(r, hd, fresh)
		writeAuthFailure(w, http.StatusUnauthorized, err, st)
		return
	}
	h.keep(w, hd, fresh)
	h.mirrorTokens(w, r, hd)
	WriteJSON(w, http.StatusOK, hd.Controller.State())
}

// Signup registers an account, creates its profile and signs the browser session in.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, field{"email", req.Email}, field{"password", req.Password}) {
		return
	}
	hd, fresh, ok := h.handle(w, r)
	if !ok {
		return
	}
	err := hd.Controller.Signup(r.Context(), session.SignupInput{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      domainauth.NormalizeRole(req.Role),
	})
	if err != nil {
		st := hd.Controller.State()
		h.release(r, hd, fresh)
		writeAuthFailure(w, http.StatusBadRequest, err, st)
		return
	}
	h.keep(w, hd, fresh)
	h.mirrorTokens(w, r, hd)
	WriteJSON(w, http.StatusCreated, hd.Controller.State())
}

// Logout signs out, drops the browser session and clears every auth cookie.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	st := session.State{}
	if hd, ok := HandleFromContext(r.Context()); ok {
		hd.Controller.Logout(r.Context())
		st = hd.Controller.State()
		if err := h.Sessions.Remove(r.Context(), hd.ID); err != nil {
			h.logger().WarnContext(r.Context(), "failed to remove session", "session_id", hd.ID, "error", err)
		}
	}
	h.Cookie.clear(w)
	if h.Tokens != nil {
		h.Tokens.ClearAuthCookies(w)
	}
	WriteJSON(w, http.StatusOK, st)
}

// Session returns the current state snapshot. Requests without a session read as signed out.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	hd, ok := HandleFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, session.State{})
		return
	}
	WriteJSON(w, http.StatusOK, hd.Controller.State())
}

// RefreshProfile reloads the signed-in user's profile.
func (h *AuthHandlers) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	hd, ok := HandleFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	hd.Controller.RefreshProfile(r.Context())
	WriteJSON(w, http.StatusOK, hd.Controller.State())
}

// PasswordReset sends a reset link whose redirect lands on this app's reset page. It signs
// nobody in, so a session started for the request is released afterwards.
func (h *AuthHandlers) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, field{"email", req.Email}) {
		return
	}
	hd, fresh, ok := h.handle(w, r)
	if !ok {
		return
	}
	err := hd.Controller.SendPasswordResetEmail(r.Context(), strings.TrimSpace(req.Email))
	st := hd.Controller.State()
	h.release(r, hd, fresh)
	if err != nil {
		writeAuthFailure(w, http.StatusBadRequest, err, st)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

// ClearError drops the stored auth error.
func (h *AuthHandlers) ClearError(w http.ResponseWriter, r *http.Request) {
	hd, ok := HandleFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, session.State{})
		return
	}
	hd.Controller.ClearError()
	WriteJSON(w, http.StatusOK, hd.Controller.State())
}
