// Package session owns per-browser authentication state: the controller that runs login,
// signup, logout and profile refresh against the remote auth service, the watcher that
// silently renews tokens, the listener that reconciles remote session changes and the
// registry that maps browser sessions to controllers.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/ports"
)

// DefaultSettleDelay is the pause between sign-in and the first profile read.
const DefaultSettleDelay = 500 * time.Millisecond

var (
	errMissingUser = errors.New("session has no user")
	errNoAccount   = errors.New("Failed to create user account") //nolint:staticcheck // user-facing message
)

// Options groups dependencies for New.
type Options struct {
	Backend  ports.AuthBackend  // Required
	Profiles ports.ProfileStore // Required
	// Origin is the public origin used to build the password-reset link.
	Origin string
	// SettleDelay is waited after sign-in before loading the profile. Zero disables it.
	SettleDelay   time.Duration
	WatchInterval time.Duration
	Logger        *slog.Logger
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domainauth.Role
}

// Controller is the auth session manager for one browser session.
//
// Every identity change (login, signup, logout, remote sign-out) bumps a generation counter.
// Results of remote calls started under an older generation are dropped instead of
// overwriting newer state.
type Controller struct {
	backend  ports.AuthBackend
	profiles ports.ProfileStore
	origin   string
	settle   time.Duration
	logger   *slog.Logger

	watcher  *Watcher
	listener *Listener
	life     context.Context
	stop     context.CancelFunc

	mu          sync.Mutex
	state       State
	gen         uint64
	initialized bool
	closed      bool

	// serialises profile refreshes so two cannot both insert a default row
	profileMu sync.Mutex
}

// New constructs a Controller. Background tasks start on Initialize.
func New(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("auth backend is required")
	}
	if opts.Profiles == nil {
		return nil, errors.New("profile store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session_controller")

	life, stop := context.WithCancel(context.Background())
	c := &Controller{
		backend:  opts.Backend,
		profiles: opts.Profiles,
		origin:   strings.TrimRight(opts.Origin, "/"),
		settle:   opts.SettleDelay,
		logger:   logger,
		life:     life,
		stop:     stop,
	}
	c.watcher = NewWatcher(WatcherOptions{Interval: opts.WatchInterval, Tick: c.silentRefresh, Logger: logger})
	c.listener = NewListener(opts.Backend, c.onAuthChange)
	return c, nil
}

// State returns a deep copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Watcher exposes the controller's renewal timer.
func (c *Controller) Watcher() *Watcher { return c.watcher }

// Initialize loads any existing session and starts the watcher and listener.
// Only the first call does anything. Failures are logged, never returned.
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.initialized || c.closed {
		c.mu.Unlock()
		return
	}
	c.initialized = true
	c.state.IsInitializing = true
	c.state.Error = nil
	gen := c.gen
	c.mu.Unlock()
	defer c.update(func(s *State) { s.IsInitializing = false })

	c.watcher.Start(c.life)
	c.listener.Start()

	sess, err := c.backend.GetSession(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "initialize: get session failed", "error", err)
		return
	}
	if sess == nil {
		return
	}
	if sess.User.ID == "" {
		c.logger.ErrorContext(ctx, "initialize: session without user")
		c.setErrorIfCurrent(gen, domainauth.NewInitError(errMissingUser))
		return
	}
	if !c.setUserIfCurrent(gen, &sess.User) {
		return
	}
	c.refreshProfile(ctx, gen)
}

// Login signs in with email and password and loads the profile.
// A failure is stored in state and returned as *domainauth.AuthError.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	gen := c.beginIdentityChange(func(s *State) {
		s.IsLoading = true
		s.Error = nil
	})
	defer c.clearLoading()

	sess, err := c.backend.SignIn(ctx, email, password)
	if err == nil && (sess == nil || sess.User.ID == "") {
		c.logger.ErrorContext(ctx, "login: sign-in returned no user")
		aerr := domainauth.NewLoginError(email, nil)
		c.setErrorIfCurrent(gen, aerr)
		return aerr
	}
	if err != nil {
		c.logger.InfoContext(ctx, "login failed", "error", err)
		aerr := domainauth.NewLoginError(email, err)
		c.setErrorIfCurrent(gen, aerr)
		return aerr
	}

	if !c.setUserIfCurrent(gen, &sess.User) {
		return nil
	}
	if err := c.wait(ctx); err != nil {
		return nil
	}
	c.refreshProfile(ctx, gen)
	return nil
}

// Signup creates an account, writes its profile row and makes sure a session exists.
// A row that already exists is read back. A failed write never clears a profile already
// loaded for the new user, and the signup still succeeds.
func (c *Controller) Signup(ctx context.Context, in SignupInput) error {
	role := domainauth.NormalizeRole(string(in.Role))
	gen := c.beginIdentityChange(func(s *State) {
		s.IsLoading = true
		s.Error = nil
	})
	defer c.clearLoading()

	res, err := c.backend.SignUp(ctx, ports.SignUpInput{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      role,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "signup failed", "error", err)
		aerr := domainauth.NewSignupError(in.Email, domainauth.SignupStageAccount, err)
		c.setErrorIfCurrent(gen, aerr)
		return aerr
	}
	if res == nil || res.User == nil || res.User.ID == "" {
		aerr := domainauth.NewSignupError(in.Email, domainauth.SignupStageNoUser, errNoAccount)
		c.setErrorIfCurrent(gen, aerr)
		return aerr
	}
	user := *res.User
	if !c.setUserIfCurrent(gen, &user) {
		return nil
	}

	// Without a session (e-mail confirmation gate) the profile write would carry no token.
	if res.Session == nil {
		sess, signInErr := c.backend.SignIn(ctx, in.Email, in.Password)
		switch {
		case signInErr != nil:
			c.logger.WarnContext(ctx, "auto sign-in after signup failed", "error", signInErr)
		case sess != nil && sess.User.ID != "":
			c.setUserIfCurrent(gen, &sess.User)
		}
	}

	email := user.Email
	if email == "" {
		email = in.Email
	}

	c.profileMu.Lock()
	defer c.profileMu.Unlock()
	created, err := c.profiles.InsertProfile(ctx, domainauth.Profile{
		ID:        user.ID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     email,
		Role:      role,
	})
	if errors.Is(err, ports.ErrProfileConflict) {
		// Provisioned by the backend or by a profile load triggered from the sign-in event.
		created, err = c.profiles.GetProfile(ctx, user.ID)
	}
	if err != nil || created == nil {
		c.logger.WarnContext(ctx, "profile creation after signup failed", "user_id", user.ID, "error", err)
		c.keepProfileIfCurrent(gen, user.ID)
		return nil
	}
	c.setProfileIfCurrent(gen, user.ID, created)
	return nil
}

// Logout signs out remotely and always clears local identity, whatever the remote outcome.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.backend.SignOut(ctx); err != nil {
		c.logger.WarnContext(ctx, "remote sign-out failed", "error", err)
	}
	c.beginIdentityChange(clearIdentity)
}

// RefreshProfile loads the profile of the held user, creating a default row when none exists.
// Query failures are logged and leave the profile untouched.
func (c *Controller) RefreshProfile(ctx context.Context) {
	c.refreshProfile(ctx, c.generation())
}

// SendPasswordResetEmail asks the backend to e-mail a reset link to <origin>/password-reset.
func (c *Controller) SendPasswordResetEmail(ctx context.Context, email string) error {
	c.update(func(s *State) {
		s.IsLoading = true
		s.Error = nil
	})
	defer c.clearLoading()

	redirectTo := c.origin + "/password-reset"
	if err := c.backend.ResetPasswordForEmail(ctx, email, redirectTo); err != nil {
		aerr := domainauth.NewPasswordResetError(email, redirectTo, err)
		c.update(func(s *State) { s.Error = aerr })
		return aerr
	}
	return nil
}

// ClearError drops the stored error.
func (c *Controller) ClearError() {
	c.update(func(s *State) { s.Error = nil })
}

// Close stops the watcher and listener and waits for them. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.stop()
	c.watcher.Stop()
	c.listener.Stop()
}

func (c *Controller) refreshProfile(ctx context.Context, gen uint64) {
	c.profileMu.Lock()
	defer c.profileMu.Unlock()

	user := c.userFor(gen)
	if user == nil {
		c.clearLoading()
		return
	}

	profile, err := c.profiles.GetProfile(ctx, user.ID)
	switch {
	case err == nil && profile != nil:
	case err == nil, errors.Is(err, ports.ErrProfileNotFound):
		profile, err = c.createDefaultProfile(ctx, *user)
		if err != nil || profile == nil {
			c.logger.WarnContext(ctx, "default profile creation failed", "user_id", user.ID, "error", err)
			c.keepProfileIfCurrent(gen, user.ID)
			return
		}
	default:
		c.logger.WarnContext(ctx, "profile refresh failed", "user_id", user.ID, "error", err)
		c.clearLoading()
		return
	}
	c.setProfileIfCurrent(gen, user.ID, profile)
}

func (c *Controller) createDefaultProfile(ctx context.Context, user domainauth.User) (*domainauth.Profile, error) {
	created, err := c.profiles.InsertProfile(ctx, domainauth.DefaultProfile(user))
	if errors.Is(err, ports.ErrProfileConflict) {
		return c.profiles.GetProfile(ctx, user.ID)
	}
	return created, err
}

func (c *Controller) onAuthChange(change domainauth.AuthChange) {
	ctx := c.life
	switch change.Event {
	case domainauth.EventSignedIn:
		if change.Session == nil || change.Session.User.ID == "" {
			return
		}
		gen := c.generation()
		if c.setUserIfCurrent(gen, &change.Session.User) {
			c.refreshProfile(ctx, gen)
		}
	case domainauth.EventSignedOut:
		c.beginIdentityChange(clearIdentity)
	case domainauth.EventTokenRefreshed:
		if change.Session == nil || change.Session.User.ID == "" {
			return
		}
		c.setUserIfCurrent(c.generation(), &change.Session.User)
	}
}

func (c *Controller) silentRefresh(ctx context.Context) {
	if c.userFor(c.generation()) == nil {
		return
	}
	sess, err := c.backend.RefreshSession(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "silent session refresh failed", "error", err)
		return
	}
	if sess != nil && sess.User.ID != "" {
		c.setUserIfCurrent(c.generation(), &sess.User)
	}
}

func (c *Controller) wait(ctx context.Context) error {
	if c.settle <= 0 {
		return nil
	}
	t := time.NewTimer(c.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

func (c *Controller) clearLoading() {
	c.update(func(s *State) { s.IsLoading = false })
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Controller) beginIdentityChange(fn func(*State)) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	fn(&c.state)
	return c.gen
}

// userFor returns a copy of the held user if gen is still current.
func (c *Controller) userFor(gen uint64) *domainauth.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state.User == nil {
		return nil
	}
	u := *c.state.User
	return &u
}

func (c *Controller) setUserIfCurrent(gen uint64, u *domainauth.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	setUser(&c.state, u)
	return true
}

func (c *Controller) setProfileIfCurrent(gen uint64, userID string, p *domainauth.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsLoading = false
	if gen != c.gen || c.state.User == nil || c.state.User.ID != userID {
		return
	}
	if p == nil {
		c.state.Profile = nil
		return
	}
	cp := *p
	cp.Role = domainauth.NormalizeRole(string(cp.Role))
	c.state.Profile = &cp
}

// keepProfileIfCurrent ends loading after a failed profile write. A profile already loaded
// for userID stays; one belonging to anyone else is dropped.
func (c *Controller) keepProfileIfCurrent(gen uint64, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsLoading = false
	if gen != c.gen {
		return
	}
	if c.state.Profile != nil && c.state.Profile.ID != userID {
		c.state.Profile = nil
	}
}

func (c *Controller) setErrorIfCurrent(gen uint64, err *domainauth.AuthError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.state.Error = err
	}
}

// setUser writes User and IsAuthenticated together.
func setUser(s *State, u *domainauth.User) {
	if u == nil {
		s.User = nil
		s.IsAuthenticated = false
		return
	}
	cp := *u
	s.User = &cp
	s.IsAuthenticated = true
}

func clearIdentity(s *State) {
	setUser(s, nil)
	s.Profile = nil
}
