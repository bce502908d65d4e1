package httpx

import (
	"log/slog"
	"net/http"

	"github.com/reelapps/reelhunter/internal/service"
	"github.com/reelapps/reelhunter/internal/sso"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions SessionRegistry // Required
	Cookie   SessionCookie
	// Origin is this app's public origin, used for password-reset links of new sessions.
	Origin string
	// Optional: SSO policy. Without it navigations are not redirected and SSO routes are absent.
	Policy *sso.Policy
	// Optional: recruiter API.
	Recruiter *service.RecruiterService
	// Ready lists the dependencies checked by /readyz.
	Ready  map[string]HealthChecker
	Logger *slog.Logger
}

// NewRouter creates the HTTP router with session, SSO, logging and recovery middleware.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	var tokens *sso.TokenStore
	if services.Policy != nil {
		tokens = services.Policy.Tokens()
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Ready))

	registerAuthRoutes(mux, &AuthHandlers{
		Sessions: services.Sessions,
		Cookie:   services.Cookie,
		Tokens:   tokens,
		Origin:   services.Origin,
		Logger:   logger,
	})
	if services.Policy != nil {
		registerSSORoutes(mux, &SSOHandlers{Policy: services.Policy, Logger: logger})
	}
	if services.Recruiter != nil {
		registerRecruiterRoutes(mux, &RecruiterHandlers{Svc: services.Recruiter, Logger: logger})
	}

	var handler http.Handler = mux
	handler = Sessions(SessionOptions{
		Registry: services.Sessions,
		Cookie:   services.Cookie,
		Tokens:   tokens,
		Origin:   services.Origin,
		Logger:   logger,
	})(handler)
	if services.Policy != nil {
		handler = services.Policy.Middleware()(handler)
	}
	handler = Logging(logger)(handler)
	return Recover(logger)(handler)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/signup", h.Signup)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/session", h.Session)
	mux.HandleFunc("POST /auth/profile/refresh", h.RefreshProfile)
	mux.HandleFunc("POST /auth/password-reset", h.PasswordReset)
	mux.HandleFunc("POST /auth/error/clear", h.ClearError)
}

func registerSSORoutes(mux *http.ServeMux, h *SSOHandlers) {
	mux.HandleFunc("POST /sso/message", h.Message)
	mux.HandleFunc("GET /sso/state", h.State)
}

func registerRecruiterRoutes(mux *http.ServeMux, h *RecruiterHandlers) {
	protect := func(fn http.HandlerFunc) http.Handler {
		return RequireAuth()(RequireRecruiter()(fn))
	}
	mux.Handle("GET /api/dashboard", protect(h.Dashboard))
	mux.Handle("GET /api/jobs", protect(h.ListJobs))
	mux.Handle("POST /api/jobs", protect(h.CreateJob))
	mux.Handle("POST /api/jobs/analyze", protect(h.AnalyzeJob))
	mux.Handle("GET /api/jobs/{id}", protect(h.GetJob))
	mux.Handle("GET /api/jobs/{id}/matches", protect(h.Matches))
}
