package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/ports"
)

const (
	anonKey = "anon-key"

	userOne   = "6f1c0a8e-2d4b-4c1e-9a57-0d3e8b1f2a01"
	userTwo   = "6f1c0a8e-2d4b-4c1e-9a57-0d3e8b1f2a02"
	userThree = "6f1c0a8e-2d4b-4c1e-9a57-0d3e8b1f2a03"
)

type seenRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	APIKey string
	Accept string
	Prefer string
	Body   map[string]any
}

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	seen     []seenRequest
	handlers map[string]http.HandlerFunc
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{handlers: make(map[string]http.HandlerFunc)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(body, &decoded)
		f.mu.Lock()
		f.seen = append(f.seen, seenRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			APIKey: r.Header.Get("apikey"),
			Accept: r.Header.Get("Accept"),
			Prefer: r.Header.Get("Prefer"),
			Body:   decoded,
		})
		h, ok := f.handlers[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeServer) handle(pattern string, h http.HandlerFunc) {
	f.mu.Lock()
	f.handlers[pattern] = h
	f.mu.Unlock()
}

func (f *fakeServer) last() seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[len(f.seen)-1]
}

func (f *fakeServer) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: f.URL, AnonKey: anonKey, HTTPClient: f.Client()})
	require.NoError(t, err)
	return c
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func tokenBody(access, refresh, userID string) map[string]any {
	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    3600,
		"user":          map[string]any{"id": userID, "email": "user@example.com"},
	}
}

func jwtWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()}).
		SignedString([]byte("k"))
	require.NoError(t, err)
	return raw
}

func collectEvents(a *Auth) (func() []domainauth.AuthEvent, func()) {
	var mu sync.Mutex
	var events []domainauth.AuthEvent
	unsub := a.OnAuthStateChange(func(c domainauth.AuthChange) {
		mu.Lock()
		events = append(events, c.Event)
		mu.Unlock()
	})
	return func() []domainauth.AuthEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]domainauth.AuthEvent(nil), events...)
	}, unsub
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{AnonKey: "k"})
	require.Error(t, err)
	_, err = NewClient(Config{URL: "https://x.supabase.co"})
	require.Error(t, err)
	_, err = NewClient(Config{URL: "not a url", AnonKey: "k"})
	require.Error(t, err)

	c, err := NewClient(Config{URL: "https://x.supabase.co/", AnonKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co/auth/v1", c.Issuer())
}

func TestAuth_SignIn(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("acc", "ref", userOne))
	})
	a := srv.client(t).NewAuth()
	events, unsub := collectEvents(a)

	sess, err := a.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, userOne, sess.User.ID)
	assert.Equal(t, "acc", sess.AccessToken())
	assert.Equal(t, "ref", sess.RefreshToken())
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt(), 5*time.Second)
	assert.Equal(t, "acc", a.AccessToken())

	req := srv.last()
	assert.Equal(t, "grant_type=password", req.Query)
	assert.Equal(t, anonKey, req.APIKey)
	assert.Equal(t, "Bearer "+anonKey, req.Auth)
	assert.Equal(t, "u1@example.com", req.Body["email"])

	unsub()
	assert.Equal(t, []domainauth.AuthEvent{domainauth.EventSignedIn}, events())
}

func TestAuth_SignInRejected(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
	})
	a := srv.client(t).NewAuth()

	_, err := a.SignIn(context.Background(), "a@example.com", "bad")
	require.EqualError(t, err, "Invalid login credentials")
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Empty(t, a.AccessToken())
}

func TestAuth_SignUp(t *testing.T) {
	t.Run("with session", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.handle("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, tokenBody("acc", "ref", userTwo))
		})
		a := srv.client(t).NewAuth()

		res, err := a.SignUp(context.Background(), ports.SignUpInput{
			Email: "u2@example.com", Password: "pw", FirstName: "Ada", LastName: "L", Role: domainauth.RoleRecruiter,
		})
		require.NoError(t, err)
		require.NotNil(t, res.Session)
		assert.Equal(t, userTwo, res.User.ID)

		data, ok := srv.last().Body["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Ada", data["first_name"])
		assert.Equal(t, "recruiter", data["role"])
	})

	t.Run("confirmation pending", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.handle("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": userThree, "email": "u3@example.com"})
		})
		a := srv.client(t).NewAuth()

		res, err := a.SignUp(context.Background(), ports.SignUpInput{Email: "u3@example.com", Password: "pw"})
		require.NoError(t, err)
		assert.Nil(t, res.Session)
		require.NotNil(t, res.User)
		assert.Equal(t, userThree, res.User.ID)
		assert.Empty(t, a.AccessToken())
	})

	t.Run("already registered", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.handle("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"code": 422, "error_code": "user_already_exists", "msg": "User already registered",
			})
		})
		a := srv.client(t).NewAuth()

		_, err := a.SignUp(context.Background(), ports.SignUpInput{Email: "x@example.com", Password: "pw"})
		require.EqualError(t, err, "User already registered")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "user_already_exists", apiErr.Code)
	})
}

func TestAuth_SignOut(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusUnauthorized} {
		srv := newFakeServer(t)
		srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, tokenBody("acc", "ref", userOne))
		})
		srv.handle("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		a := srv.client(t).NewAuth()
		_, err := a.SignIn(context.Background(), "u1@example.com", "pw")
		require.NoError(t, err)

		require.NoError(t, a.SignOut(context.Background()))
		assert.Equal(t, "Bearer acc", srv.last().Auth)
		assert.Equal(t, "scope=local", srv.last().Query)
		assert.Empty(t, a.AccessToken())
	}
}

func TestAuth_SignOutServerError(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("acc", "ref", userOne))
	})
	srv.handle("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	a := srv.client(t).NewAuth()
	_, err := a.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)

	require.Error(t, a.SignOut(context.Background()))
	assert.Equal(t, "acc", a.AccessToken())
}

func TestAuth_RefreshSession(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") == "refresh_token" {
			writeJSON(w, http.StatusOK, tokenBody("acc-2", "ref-2", userOne))
			return
		}
		writeJSON(w, http.StatusOK, tokenBody("acc", "ref", userOne))
	})
	a := srv.client(t).NewAuth()

	_, err := a.RefreshSession(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)

	_, err = a.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	events, unsub := collectEvents(a)

	sess, err := a.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-2", sess.AccessToken())
	assert.Equal(t, "ref", srv.last().Body["refresh_token"])

	unsub()
	assert.Equal(t, []domainauth.AuthEvent{domainauth.EventTokenRefreshed}, events())
}

func TestAuth_RefreshRejectedEndsSession(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") == "refresh_token" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid Refresh Token"})
			return
		}
		writeJSON(w, http.StatusOK, tokenBody("acc", "ref", userOne))
	})
	a := srv.client(t).NewAuth()
	_, err := a.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	events, unsub := collectEvents(a)

	_, err = a.RefreshSession(context.Background())
	require.Error(t, err)
	assert.Empty(t, a.AccessToken())

	unsub()
	assert.Equal(t, []domainauth.AuthEvent{domainauth.EventSignedOut}, events())
}

func TestAuth_GetSession(t *testing.T) {
	srv := newFakeServer(t)
	a := srv.client(t).NewAuth()

	sess, err := a.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)

	srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		body := tokenBody("acc-2", "ref-2", userOne)
		writeJSON(w, http.StatusOK, body)
	})
	_, err = a.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	sess, err = a.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "grant_type=refresh_token", srv.last().Query)
	assert.Equal(t, "acc-2", sess.AccessToken())
}

func TestAuth_SetSession(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": userOne, "email": "u1@example.com"})
	})
	srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("fresh", "ref-2", userOne))
	})
	a := srv.client(t).NewAuth()

	live := jwtWithExp(t, time.Now().Add(time.Hour))
	sess, err := a.SetSession(context.Background(), live, "ref")
	require.NoError(t, err)
	assert.Equal(t, userOne, sess.User.ID)
	assert.Equal(t, live, sess.AccessToken())
	assert.Equal(t, "Bearer "+live, srv.last().Auth)

	expired := jwtWithExp(t, time.Now().Add(-time.Hour))
	sess, err = a.SetSession(context.Background(), expired, "ref")
	require.NoError(t, err)
	assert.Equal(t, "fresh", sess.AccessToken())
	assert.Equal(t, "ref", srv.last().Body["refresh_token"])

	_, err = a.SetSession(context.Background(), expired, "")
	require.ErrorIs(t, err, ErrNoRefreshToken)
	_, err = a.SetSession(context.Background(), "garbage", "ref")
	require.Error(t, err)
}

func TestAuth_ResetPasswordForEmail(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("POST /auth/v1/recover", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	a := srv.client(t).NewAuth()

	require.NoError(t, a.ResetPasswordForEmail(context.Background(), "a@example.com", "https://hunter.reelapps.co.za/password-reset"))
	req := srv.last()
	assert.Equal(t, "redirect_to=https%3A%2F%2Fhunter.reelapps.co.za%2Fpassword-reset", req.Query)
	assert.Equal(t, "a@example.com", req.Body["email"])
}

func TestProfiles(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("acc", "ref", userOne))
	})
	c := srv.client(t)
	a := c.NewAuth()
	_, err := a.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	profiles := c.NewProfiles(a)

	t.Run("not found", func(t *testing.T) {
		srv.handle("GET /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []any{})
		})
		_, err := profiles.GetProfile(context.Background(), userOne)
		require.ErrorIs(t, err, ports.ErrProfileNotFound)
		req := srv.last()
		assert.Equal(t, "Bearer acc", req.Auth)
		assert.Equal(t, anonKey, req.APIKey)
		assert.Contains(t, req.Query, "id=eq."+userOne)
	})

	t.Run("no rows error", func(t *testing.T) {
		srv.handle("GET /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotAcceptable, map[string]any{
				"code": "PGRST116", "message": "JSON object requested, multiple (or no) rows returned",
			})
		})
		_, err := profiles.GetProfile(context.Background(), userOne)
		require.ErrorIs(t, err, ports.ErrProfileNotFound)
	})

	t.Run("found", func(t *testing.T) {
		srv.handle("GET /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []any{map[string]any{"id": userOne, "first_name": "Ann", "role": "recruiter"}})
		})
		p, err := profiles.GetProfile(context.Background(), userOne)
		require.NoError(t, err)
		assert.Equal(t, "Ann", p.FirstName)
		assert.True(t, p.IsRecruiter())
	})

	t.Run("query error", func(t *testing.T) {
		srv.handle("GET /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"code": "XX000", "message": "boom"})
		})
		_, err := profiles.GetProfile(context.Background(), userOne)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ports.ErrProfileNotFound)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := profiles.GetProfile(ctx, userOne)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("insert", func(t *testing.T) {
		srv.handle("POST /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, []any{map[string]any{"id": userOne, "first_name": "User", "role": "candidate"}})
		})
		p, err := profiles.InsertProfile(context.Background(), domainauth.Profile{ID: userOne, FirstName: "User", Role: "admin"})
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleCandidate, p.Role)
		req := srv.last()
		assert.Contains(t, req.Prefer, "return=representation")
		assert.Equal(t, "candidate", req.Body["role"])
	})

	t.Run("insert conflict", func(t *testing.T) {
		srv.handle("POST /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"code": "23505", "message": `duplicate key value violates unique constraint "profiles_pkey"`,
			})
		})
		_, err := profiles.InsertProfile(context.Background(), domainauth.Profile{ID: userOne})
		require.ErrorIs(t, err, ports.ErrProfileConflict)
	})
}

func TestFunctions_Invoke(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("POST /functions/v1/analyze-job", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"clarity": 90})
	})
	srv.handle("POST /functions/v1/match-candidates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "model unavailable"})
	})
	fns := srv.client(t).NewFunctions(nil)

	out, err := fns.Invoke(context.Background(), "analyze-job", map[string]string{"title": "Dev"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"clarity":90}`, string(out))
	assert.Equal(t, "Dev", srv.last().Body["title"])
	assert.Equal(t, "Bearer "+anonKey, srv.last().Auth)

	_, err = fns.Invoke(context.Background(), "match-candidates", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrFunctionFailed)

	_, err = fns.Invoke(context.Background(), "", nil)
	require.Error(t, err)
}

func TestFunctionError(t *testing.T) {
	msg, failed := functionError(`{"error":"model unavailable"}`)
	assert.True(t, failed)
	assert.Equal(t, "model unavailable", msg)

	for _, reply := range []string{`{"matches":[]}`, `[]`, `{"error":"x","matches":[]}`, `not json`} {
		_, failed := functionError(reply)
		assert.False(t, failed, reply)
	}
}

func TestAuthError(t *testing.T) {
	err := authError(errors.New(`response status code 422: {"error_code":"weak_password","msg":"Password is too weak"}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "weak_password", apiErr.Code)
	assert.Equal(t, "Password is too weak", apiErr.Message)

	plain := errors.New("dial tcp: connection refused")
	assert.Equal(t, plain, authError(plain))
	assert.NoError(t, authError(nil))
}

func TestEmitter_UnsubscribeStopsDelivery(t *testing.T) {
	e := newEmitter(testLogger())
	got := make(chan domainauth.AuthEvent, 4)
	unsub := e.subscribe(func(c domainauth.AuthChange) { got <- c.Event })

	e.emit(domainauth.AuthChange{Event: domainauth.EventSignedIn})
	assert.Equal(t, domainauth.EventSignedIn, <-got)

	unsub()
	unsub()
	assert.Equal(t, 0, e.len())
	e.emit(domainauth.AuthChange{Event: domainauth.EventSignedOut})
	assert.Empty(t, got)
}
