package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/ports"
	"github.com/reelapps/reelhunter/internal/sso"
)

// DefaultSessionTTL bounds how long a persisted browser session survives without activity.
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrSessionNotFound is returned by Get for ids that are neither live nor persisted.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidToken is returned by Adopt when the relayed access token is unusable.
	ErrInvalidToken = errors.New("invalid or expired access token")
	// ErrRegistryClosed is returned once Close has run.
	ErrRegistryClosed = errors.New("session registry closed")
)

// Deps are the remote collaborators bound to a single browser session.
type Deps struct {
	Backend   ports.AuthBackend
	Profiles  ports.ProfileStore
	Functions ports.FunctionInvoker
}

// Factory builds a fresh set of per-session collaborators.
type Factory func() (Deps, error)

// Handle is a live browser session.
type Handle struct {
	ID         string
	Controller *Controller
	Backend    ports.AuthBackend
	Functions  ports.FunctionInvoker

	unsubscribe func()
	mu          sync.Mutex
	lastSeen    time.Time
}

func (h *Handle) touch(now time.Time) {
	h.mu.Lock()
	h.lastSeen = now
	h.mu.Unlock()
}

func (h *Handle) idleSince() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSeen
}

// RegistryOptions groups dependencies for NewRegistry.
type RegistryOptions struct {
	Factory Factory // Required
	// Store persists session records so sessions survive restarts. Optional.
	Store ports.SessionStore
	// Verifier checks adopted tokens' signatures. Without it tokens are only checked for expiry.
	Verifier ports.TokenVerifier
	// Origin is the fallback public origin for controllers rehydrated from the store.
	Origin        string
	TTL           time.Duration
	SettleDelay   time.Duration
	WatchInterval time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

// Registry maps browser-session ids to controllers.
type Registry struct {
	factory  Factory
	store    ports.SessionStore
	verifier ports.TokenVerifier
	origin   string
	ttl      time.Duration
	settle   time.Duration
	watch    time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	handles map[string]*Handle
	closed  bool
	group   singleflight.Group
}

// NewRegistry constructs a Registry.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Factory == nil {
		return nil, errors.New("session factory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		factory:  opts.Factory,
		store:    opts.Store,
		verifier: opts.Verifier,
		origin:   opts.Origin,
		ttl:      ttl,
		settle:   opts.SettleDelay,
		watch:    opts.WatchInterval,
		logger:   logger.With("component", "session_registry"),
		now:      now,
		handles:  make(map[string]*Handle),
	}, nil
}

// Create starts a new, unauthenticated browser session.
func (r *Registry) Create(ctx context.Context, origin string) (*Handle, error) {
	h, err := r.newHandle(uuid.NewString(), origin)
	if err != nil {
		return nil, err
	}
	h.Controller.Initialize(ctx)
	if err := r.register(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Adopt starts a browser session from tokens found in the SSO cookies.
func (r *Registry) Adopt(ctx context.Context, origin, accessToken, refreshToken string) (*Handle, error) {
	if err := r.checkToken(ctx, accessToken); err != nil {
		return nil, err
	}
	h, err := r.newHandle(uuid.NewString(), origin)
	if err != nil {
		return nil, err
	}
	sess, err := h.Backend.SetSession(ctx, accessToken, refreshToken)
	if err != nil {
		r.discard(h)
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	h.Controller.Initialize(ctx)
	if err := r.register(h); err != nil {
		return nil, err
	}
	r.persist(ctx, h.ID, sess)
	return h, nil
}

func (r *Registry) checkToken(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrInvalidToken
	}
	if r.verifier != nil {
		if _, err := r.verifier.Verify(ctx, raw); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return nil
	}
	if !sso.ValidToken(raw, r.now()) {
		return ErrInvalidToken
	}
	return nil
}

// Get returns the live handle for id, rehydrating it from the store when needed.
func (r *Registry) Get(ctx context.Context, id string) (*Handle, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	r.mu.RLock()
	h, ok := r.handles[id]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRegistryClosed
	}
	if ok {
		h.touch(r.now())
		return h, nil
	}
	if r.store == nil {
		return nil, ErrSessionNotFound
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		return r.rehydrate(context.WithoutCancel(ctx), id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (r *Registry) rehydrate(ctx context.Context, id string) (*Handle, error) {
	r.mu.RLock()
	if h, ok := r.handles[id]; ok {
		r.mu.RUnlock()
		return h, nil
	}
	r.mu.RUnlock()

	rec, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session record: %w", err)
	}

	h, err := r.newHandle(id, r.origin)
	if err != nil {
		return nil, err
	}
	if _, err := h.Backend.SetSession(ctx, rec.AccessToken, rec.RefreshToken); err != nil {
		r.logger.InfoContext(ctx, "stored session no longer usable", "session_id", id, "error", err)
		r.discard(h)
		if delErr := r.store.Delete(ctx, id); delErr != nil {
			r.logger.WarnContext(ctx, "delete stale session record failed", "session_id", id, "error", delErr)
		}
		return nil, ErrSessionNotFound
	}
	h.Controller.Initialize(ctx)
	if err := r.register(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Remove closes the session and deletes its record.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	h, ok := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()

	if ok {
		r.discard(h)
	}
	if r.store != nil {
		if err := r.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete session record: %w", err)
		}
	}
	return nil
}

// SweepIdle closes in-memory sessions unused for longer than maxIdle and reports how many
// it closed. Their records stay in the store so a later request can rehydrate them.
func (r *Registry) SweepIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	var stale []*Handle

	r.mu.Lock()
	for id, h := range r.handles {
		if h.idleSince().Before(cutoff) {
			stale = append(stale, h)
			delete(r.handles, id)
		}
	}
	r.mu.Unlock()

	for _, h := range stale {
		r.discard(h)
	}
	return len(stale)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close shuts down every live session. Records are kept.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *Handle) {
			defer wg.Done()
			r.discard(h)
		}(h)
	}
	wg.Wait()
}

func (r *Registry) newHandle(id, origin string) (*Handle, error) {
	deps, err := r.factory()
	if err != nil {
		return nil, fmt.Errorf("build session dependencies: %w", err)
	}
	if origin == "" {
		origin = r.origin
	}
	ctrl, err := New(Options{
		Backend:       deps.Backend,
		Profiles:      deps.Profiles,
		Origin:        origin,
		SettleDelay:   r.settle,
		WatchInterval: r.watch,
		Logger:        r.logger.With("session_id", id),
	})
	if err != nil {
		return nil, err
	}
	h := &Handle{
		ID:         id,
		Controller: ctrl,
		Backend:    deps.Backend,
		Functions:  deps.Functions,
		lastSeen:   r.now(),
	}
	h.unsubscribe = deps.Backend.OnAuthStateChange(func(change domainauth.AuthChange) {
		r.onAuthChange(h.ID, change)
	})
	return h, nil
}

func (r *Registry) register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		go r.discard(h)
		return ErrRegistryClosed
	}
	r.handles[h.ID] = h
	return nil
}

func (r *Registry) discard(h *Handle) {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.Controller.Close()
}

func (r *Registry) onAuthChange(id string, change domainauth.AuthChange) {
	if r.store == nil {
		return
	}
	ctx := context.Background()
	switch change.Event {
	case domainauth.EventSignedIn, domainauth.EventTokenRefreshed:
		r.persist(ctx, id, change.Session)
	case domainauth.EventSignedOut:
		if err := r.store.Delete(ctx, id); err != nil {
			r.logger.WarnContext(ctx, "delete session record failed", "session_id", id, "error", err)
		}
	}
}

func (r *Registry) persist(ctx context.Context, id string, sess *domainauth.Session) {
	if r.store == nil || sess == nil || sess.AccessToken() == "" {
		return
	}
	rec := domainauth.SessionRecord{
		ID:           id,
		UserID:       sess.User.ID,
		Email:        sess.User.Email,
		AccessToken:  sess.AccessToken(),
		RefreshToken: sess.RefreshToken(),
		TokenExpiry:  sess.ExpiresAt(),
		ExpiresAt:    r.now().Add(r.ttl),
	}
	if err := r.store.Save(ctx, rec); err != nil {
		r.logger.WarnContext(ctx, "persist session record failed", "session_id", id, "error", err)
	}
}
