package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/reelapps/reelhunter/internal/session"
	"github.com/reelapps/reelhunter/internal/sso"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler { //nolint:errorlint // sentinel re-panic
						panic(err)
					}
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, ErrorParams{
						Code:    http.StatusInternalServerError,
						ErrCode: "internal",
						Err:     errors.New("internal server error"),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionRegistry is the part of session.Registry the HTTP layer uses.
type SessionRegistry interface {
	Create(ctx context.Context, origin string) (*session.Handle, error)
	Adopt(ctx context.Context, origin, accessToken, refreshToken string) (*session.Handle, error)
	Get(ctx context.Context, id string) (*session.Handle, error)
	Remove(ctx context.Context, id string) error
}

// SessionCookie describes the host-only cookie carrying the browser-session id.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func (c SessionCookie) set(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c SessionCookie) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionOptions groups dependencies for the Sessions middleware.
type SessionOptions struct {
	Registry SessionRegistry // Required
	Cookie   SessionCookie   // Required
	// Tokens, when set, lets a request without a usable browser session adopt the shared SSO cookies.
	Tokens *sso.TokenStore
	Origin string
	Logger *slog.Logger
}

// Sessions attaches the caller's browser session to the request context.
//
// A request whose browser session is missing or signed out, but which carries a live SSO
// access cookie, gets a new session adopted from the cookies.
func Sessions(opts SessionOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http_sessions")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			h, stale := lookupSession(ctx, r, opts, logger)

			if (h == nil || !h.Controller.State().IsAuthenticated) && opts.Tokens != nil &&
				opts.Tokens.HasValidAuthToken(r) {
				if adopted := adoptSession(ctx, r, opts, logger); adopted != nil {
					if h != nil {
						if err := opts.Registry.Remove(ctx, h.ID); err != nil {
							logger.WarnContext(ctx, "failed to remove replaced session", "error", err)
						}
					}
					h, stale = adopted, false
					opts.Cookie.set(w, h.ID)
				}
			}
			if stale {
				opts.Cookie.clear(w)
			}

			next.ServeHTTP(w, r.WithContext(SetHandleInContext(ctx, h)))
		})
	}
}

// lookupSession resolves the session cookie. stale reports a cookie naming a session that no longer exists.
func lookupSession(ctx context.Context, r *http.Request, opts SessionOptions, logger *slog.Logger) (*session.Handle, bool) {
	c, err := r.Cookie(opts.Cookie.Name)
	if err != nil || c.Value == "" {
		return nil, false
	}
	h, err := opts.Registry.Get(ctx, c.Value)
	switch {
	case err == nil:
		return h, false
	case errors.Is(err, session.ErrSessionNotFound):
		return nil, true
	default:
		logger.WarnContext(ctx, "session lookup failed", "error", err)
		return nil, false
	}
}

func adoptSession(ctx context.Context, r *http.Request, opts SessionOptions, logger *slog.Logger) *session.Handle {
	access, _ := opts.Tokens.AuthToken(r)
	refresh, _ := opts.Tokens.RefreshToken(r)
	h, err := opts.Registry.Adopt(ctx, opts.Origin, access, refresh)
	if err != nil {
		logger.InfoContext(ctx, "sso token not adopted", "error", err)
		return nil
	}
	return h
}

// RequireAuth answers 401 unless the request carries a signed-in browser session.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h, ok := HandleFromContext(r.Context())
			if !ok || !h.Controller.State().IsAuthenticated {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ErrRecruiterOnly is the message shown to signed-in users without the recruiter role.
var ErrRecruiterOnly = errors.New("ReelHunter is only available for recruiters")

// RequireRecruiter answers 403 unless the signed-in user's profile has the recruiter role.
// A session whose profile has not been loaded yet loads it first.
// Must run after RequireAuth.
func RequireRecruiter() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h, ok := HandleFromContext(r.Context())
			if !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			st := h.Controller.State()
			if st.Profile == nil {
				h.Controller.RefreshProfile(r.Context())
				st = h.Controller.State()
			}
			if !st.Profile.IsRecruiter() {
				WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "recruiter_required", Err: ErrRecruiterOnly})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
