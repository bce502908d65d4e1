package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/ports"
	"github.com/reelapps/reelhunter/internal/sso"
)

// expiryMargin treats tokens this close to expiry as already expired.
const expiryMargin = 30 * time.Second

var (
	// ErrNoRefreshToken is returned when a refresh is needed but the session has no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")

	_ ports.AuthBackend = (*Auth)(nil)
)

// Auth is the GoTrue client for one browser session. It holds that session's tokens
// and notifies subscribers when they change.
type Auth struct {
	client  *Client
	logger  *slog.Logger
	now     func() time.Time
	events  *emitter
	refresh singleflight.Group

	mu      sync.RWMutex
	session *domainauth.Session
}

// NewAuth creates an Auth with no session.
func (c *Client) NewAuth() *Auth {
	logger := c.logger.With("component", "supabase_auth")
	return &Auth{
		client: c,
		logger: logger,
		now:    time.Now,
		events: newEmitter(logger),
	}
}

// newSession converts GoTrue token fields into a domain session. It returns nil when the
// answer carries no access token or no user.
func newSession(access, refresh, tokenType string, expiresIn time.Duration, user types.User, now time.Time) *domainauth.Session {
	if access == "" || user.ID == uuid.Nil {
		return nil
	}
	var expiry time.Time
	if expiresIn > 0 {
		expiry = now.Add(expiresIn)
	}
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &domainauth.Session{
		User: toUser(user),
		Token: &oauth2.Token{
			AccessToken:  access,
			TokenType:    tokenType,
			RefreshToken: refresh,
			Expiry:       expiry,
		},
	}
}

func tokenSession(resp *types.TokenResponse, now time.Time) *domainauth.Session {
	if resp == nil {
		return nil
	}
	return newSession(resp.AccessToken, resp.RefreshToken, resp.TokenType,
		time.Duration(resp.ExpiresIn)*time.Second, resp.User, now)
}

func toUser(u types.User) domainauth.User {
	out := domainauth.User{ID: u.ID.String(), Email: u.Email}
	if len(u.UserMetadata) > 0 {
		if raw, err := json.Marshal(u.UserMetadata); err == nil {
			_ = json.Unmarshal(raw, &out.Metadata)
		}
	}
	return out
}

func signupData(in ports.SignUpInput) map[string]interface{} {
	data := make(map[string]interface{}, 3)
	if in.FirstName != "" {
		data["first_name"] = in.FirstName
	}
	if in.LastName != "" {
		data["last_name"] = in.LastName
	}
	if in.Role != "" {
		data["role"] = string(in.Role)
	}
	return data
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*domainauth.Session, error) {
	resp, err := a.client.authClient(ctx, "", nil).Token(types.TokenRequest{
		GrantType: "password",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		return nil, authError(err)
	}
	sess := tokenSession(resp, a.now())
	if sess == nil {
		return nil, errors.New("sign-in response carried no session")
	}
	a.store(sess, domainauth.EventSignedIn)
	return sess, nil
}

func (a *Auth) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.SignUpResult, error) {
	resp, err := a.client.authClient(ctx, "", nil).Signup(types.SignupRequest{
		Email:    in.Email,
		Password: in.Password,
		Data:     signupData(in),
	})
	if err != nil {
		return nil, authError(err)
	}

	res := &ports.SignUpResult{}
	sess := newSession(resp.AccessToken, resp.RefreshToken, resp.TokenType,
		time.Duration(resp.ExpiresIn)*time.Second, resp.Session.User, a.now())
	if sess != nil {
		u := sess.User
		res.User, res.Session = &u, sess
		a.store(sess, domainauth.EventSignedIn)
		return res, nil
	}
	// Confirmation pending: the answer is the bare user.
	if resp.User.ID != uuid.Nil {
		u := toUser(resp.User)
		res.User = &u
	}
	return res, nil
}

// SignOut revokes the session remotely and forgets it locally. A session the server no
// longer knows counts as signed out.
func (a *Auth) SignOut(ctx context.Context) error {
	if token := a.AccessToken(); token != "" {
		err := authError(a.client.authClient(ctx, token, url.Values{"scope": {"local"}}).Logout())
		if err != nil && !IsStatus(err, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound) {
			return err
		}
	}
	a.store(nil, domainauth.EventSignedOut)
	return nil
}

// GetSession returns the held session, refreshing it first when the access token has expired.
func (a *Auth) GetSession(ctx context.Context) (*domainauth.Session, error) {
	sess := a.current()
	if sess == nil {
		return nil, nil
	}
	if !a.expired(sess.ExpiresAt()) {
		return sess, nil
	}
	return a.RefreshSession(ctx)
}

// RefreshSession exchanges the refresh token for new tokens. Concurrent callers share one
// exchange. A rejected refresh token ends the session.
func (a *Auth) RefreshSession(ctx context.Context) (*domainauth.Session, error) {
	refreshToken := a.current().RefreshToken()
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	v, err, _ := a.refresh.Do(refreshToken, func() (any, error) {
		return a.exchangeRefreshToken(context.WithoutCancel(ctx), refreshToken)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domainauth.Session), nil
}

func (a *Auth) exchangeRefreshToken(ctx context.Context, refreshToken string) (*domainauth.Session, error) {
	resp, err := a.client.authClient(ctx, "", nil).Token(types.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	})
	if err != nil {
		err = authError(err)
		if IsStatus(err, http.StatusBadRequest, http.StatusUnauthorized) {
			a.logger.InfoContext(ctx, "refresh token rejected, ending session", "error", err)
			a.store(nil, domainauth.EventSignedOut)
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	sess := tokenSession(resp, a.now())
	if sess == nil {
		return nil, errors.New("refresh response carried no session")
	}
	a.store(sess, domainauth.EventTokenRefreshed)
	return sess, nil
}

// SetSession adopts tokens obtained elsewhere. An expired access token is refreshed first;
// otherwise the user is fetched with it, which also proves the server accepts it.
func (a *Auth) SetSession(ctx context.Context, accessToken, refreshToken string) (*domainauth.Session, error) {
	if accessToken == "" {
		return nil, errors.New("access token is required")
	}
	expiry, err := sso.Expiry(accessToken)
	if err != nil {
		return nil, fmt.Errorf("decode access token: %w", err)
	}

	if a.expired(expiry) {
		if refreshToken == "" {
			return nil, ErrNoRefreshToken
		}
		a.mu.Lock()
		a.session = &domainauth.Session{Token: &oauth2.Token{RefreshToken: refreshToken}}
		a.mu.Unlock()
		return a.RefreshSession(ctx)
	}

	resp, err := a.client.authClient(ctx, accessToken, nil).GetUser()
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", authError(err))
	}
	if resp == nil || resp.ID == uuid.Nil {
		return nil, errors.New("user response carried no id")
	}
	sess := &domainauth.Session{
		User: toUser(resp.User),
		Token: &oauth2.Token{
			AccessToken:  accessToken,
			TokenType:    "bearer",
			RefreshToken: refreshToken,
			Expiry:       expiry,
		},
	}
	a.store(sess, domainauth.EventSignedIn)
	return sess, nil
}

func (a *Auth) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}
	return authError(a.client.authClient(ctx, "", query).Recover(types.RecoverRequest{Email: email}))
}

// OnAuthStateChange registers fn. Notifications are delivered asynchronously, in order.
func (a *Auth) OnAuthStateChange(fn func(domainauth.AuthChange)) func() {
	return a.events.subscribe(fn)
}

// AccessToken returns the held access token, or "" when signed out.
func (a *Auth) AccessToken() string {
	return a.current().AccessToken()
}

func (a *Auth) current() *domainauth.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

func (a *Auth) expired(expiry time.Time) bool {
	return !expiry.IsZero() && !a.now().Add(expiryMargin).Before(expiry)
}

func (a *Auth) store(sess *domainauth.Session, ev domainauth.AuthEvent) {
	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	a.events.emit(domainauth.AuthChange{Event: ev, Session: sess})
}
