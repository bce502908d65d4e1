package sso

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
)

func newTestPolicy(cfg Config) *Policy {
	return NewPolicy(PolicyOptions{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
}

func satelliteRequest(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Host = "hunter.reelapps.co.za"
	return r
}

func TestPolicy_Domains(t *testing.T) {
	p := newTestPolicy(Config{})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "reelapps.co.za:443"
	assert.Equal(t, "reelapps.co.za", p.CurrentDomain(r))
	assert.Equal(t, DefaultMainDomain, p.AuthDomain())
	assert.True(t, p.IsMainDomain(r))
	assert.Empty(t, p.CurrentDomain(nil))

	assert.False(t, p.IsMainDomain(satelliteRequest("/")))
}

func TestPolicy_LocalhostIsAlwaysMain(t *testing.T) {
	p := newTestPolicy(Config{AuthDomain: "auth.example.com"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "localhost:5173"
	assert.True(t, p.IsMainDomain(r))
	assert.False(t, p.ShouldRedirectToAuth(r))

	r.Host = "app.localhost"
	assert.True(t, p.IsMainDomain(r))
}

func TestPolicy_Overrides(t *testing.T) {
	p := newTestPolicy(Config{AuthDomain: "auth.reelapps.co.za", CurrentDomain: "auth.reelapps.co.za"})
	assert.True(t, p.IsMainDomain(satelliteRequest("/")))
	assert.Equal(t, "https://auth.reelapps.co.za", p.TrustedOrigin())
}

func TestPolicy_ShouldRedirectToAuth(t *testing.T) {
	p := newTestPolicy(Config{})

	r := satelliteRequest("/")
	assert.True(t, p.ShouldRedirectToAuth(r))

	r.AddCookie(&http.Cookie{Name: DefaultAuthCookieName, Value: signedToken(t, time.Now().Add(time.Hour))})
	assert.False(t, p.ShouldRedirectToAuth(r))

	// main domain never redirects, even without a token
	main := httptest.NewRequest(http.MethodGet, "/", nil)
	main.Host = DefaultMainDomain
	assert.False(t, p.ShouldRedirectToAuth(main))
}

func TestPolicy_BuildAuthRedirectURL(t *testing.T) {
	p := newTestPolicy(Config{})
	r := satelliteRequest("/")

	assert.Equal(t,
		"https://reelapps.co.za/login?redirect=https%3A%2F%2Fhunter.reelapps.co.za",
		p.BuildAuthRedirectURL(r, ""))
	assert.Equal(t,
		"https://reelapps.co.za/login?redirect=https%3A%2F%2Fhunter.reelapps.co.za%2Fjobs%3Fa%3D1",
		p.BuildAuthRedirectURL(r, "https://hunter.reelapps.co.za/jobs?a=1"))
}

func TestPolicy_HandleAuthRedirect(t *testing.T) {
	p := newTestPolicy(Config{})

	rec := httptest.NewRecorder()
	require.True(t, p.HandleAuthRedirect(rec, satelliteRequest("/jobs")))
	assert.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "reelapps.co.za", loc.Host)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "https://hunter.reelapps.co.za/jobs", loc.Query().Get("redirect"))

	guard := cookiesByName(rec)[DefaultAuthCookieName+"_redirect"]
	require.NotNil(t, guard)
	assert.Equal(t, 60, guard.MaxAge)
	assert.Empty(t, guard.Domain)
}

func TestPolicy_HandleAuthRedirect_LoopGuard(t *testing.T) {
	p := newTestPolicy(Config{})
	r := satelliteRequest("/")
	r.AddCookie(&http.Cookie{Name: DefaultAuthCookieName + "_redirect", Value: "1"})

	rec := httptest.NewRecorder()
	assert.True(t, p.HandleAuthRedirect(rec, r))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestPolicy_HandleAuthRedirect_NotNeeded(t *testing.T) {
	p := newTestPolicy(Config{})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "localhost"

	rec := httptest.NewRecorder()
	assert.False(t, p.HandleAuthRedirect(rec, r))
	assert.Empty(t, rec.Result().Cookies())
}

func TestPolicy_InitializeHandoff(t *testing.T) {
	p := newTestPolicy(Config{})
	rec := httptest.NewRecorder()

	out := p.Initialize(rec, satelliteRequest("/jobs?token=acc&refresh_token=ref&tab=open"))

	assert.Equal(t, OutcomeHandoff, out)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/jobs?tab=open", rec.Header().Get("Location"))

	cookies := cookiesByName(rec)
	assert.Equal(t, "acc", cookies[DefaultAuthCookieName].Value)
	assert.Equal(t, "ref", cookies[DefaultRefreshCookieName].Value)
}

func TestPolicy_InitializeOutcomes(t *testing.T) {
	p := newTestPolicy(Config{})

	assert.Equal(t, OutcomeUnauthenticated, p.Initialize(httptest.NewRecorder(), satelliteRequest("/")))

	live := satelliteRequest("/?token=ignored")
	live.AddCookie(&http.Cookie{Name: DefaultAuthCookieName, Value: signedToken(t, time.Now().Add(time.Hour))})
	rec := httptest.NewRecorder()
	assert.Equal(t, OutcomeAuthenticated, p.Initialize(rec, live))
	assert.Empty(t, rec.Result().Cookies())
}

func TestPolicy_Middleware(t *testing.T) {
	p := newTestPolicy(Config{})
	var reached bool
	h := p.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))

	nav := satelliteRequest("/dashboard")
	nav.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, nav)
	assert.False(t, reached)
	assert.Equal(t, http.StatusFound, rec.Code)

	api := satelliteRequest("/api/jobs")
	api.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, api)
	assert.True(t, reached)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPolicy_ApplyMessage(t *testing.T) {
	p := newTestPolicy(Config{})

	rec := httptest.NewRecorder()
	err := p.ApplyMessage(rec, "https://evil.example", Message{Type: MessageAuthSuccess, AccessToken: "a"})
	require.ErrorIs(t, err, ErrUntrustedOrigin)
	assert.Empty(t, rec.Result().Cookies())

	rec = httptest.NewRecorder()
	require.NoError(t, p.ApplyMessage(rec, "https://reelapps.co.za", Message{Type: MessageAuthSuccess, AccessToken: "a", RefreshToken: "r"}))
	assert.Len(t, rec.Result().Cookies(), 2)

	rec = httptest.NewRecorder()
	require.NoError(t, p.ApplyMessage(rec, "https://reelapps.co.za", Message{Type: MessageAuthLogout}))
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
	}

	assert.ErrorIs(t, p.ApplyMessage(httptest.NewRecorder(), "https://reelapps.co.za", Message{Type: "PING"}), ErrUnknownMessage)
	assert.ErrorIs(t, p.ApplyMessage(httptest.NewRecorder(), "https://reelapps.co.za", Message{Type: MessageAuthSuccess}), ErrMissingToken)
}

func TestPolicy_StateUpdate(t *testing.T) {
	p := newTestPolicy(Config{})

	msg := p.StateUpdate(nil, "")
	assert.Equal(t, MessageAuthStateUpdate, msg.Type)
	assert.Nil(t, msg.AuthState.Token)
	assert.Equal(t, "https://reelapps.co.za", msg.TargetOrigin)

	msg = p.StateUpdate(&domainauth.User{ID: "u"}, "tok")
	require.NotNil(t, msg.AuthState.Token)
	assert.Equal(t, "tok", *msg.AuthState.Token)
}
