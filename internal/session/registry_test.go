package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	mocks "github.com/reelapps/reelhunter/internal/mocks/auth"
	"github.com/reelapps/reelhunter/internal/ports"
)

type registryFixture struct {
	mu       sync.Mutex
	backends []*mocks.FakeBackend
	store    *mocks.MemorySessionStore
	now      time.Time
}

func (f *registryFixture) factory() (Deps, error) {
	b := mocks.NewFakeBackend()
	f.mu.Lock()
	f.backends = append(f.backends, b)
	f.mu.Unlock()
	return Deps{Backend: b, Profiles: mocks.NewMemoryProfileStore(), Functions: &mocks.StubFunctions{}}, nil
}

func (f *registryFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *registryFixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *registryFixture) lastBackend() *mocks.FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backends[len(f.backends)-1]
}

func newRegistryFixture(t *testing.T, verifier ports.TokenVerifier) (*registryFixture, *Registry) {
	t.Helper()
	f := &registryFixture{store: mocks.NewMemorySessionStore(), now: time.Now()}
	reg, err := NewRegistry(RegistryOptions{
		Factory:  f.factory,
		Store:    f.store,
		Verifier: verifier,
		Origin:   "https://hunter.reelapps.co.za",
		Logger:   quietLogger(),
		Now:      f.clock,
	})
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	return f, reg
}

func unsignedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})
	raw, err := tok.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return raw
}

func TestNewRegistry_RequiresFactory(t *testing.T) {
	_, err := NewRegistry(RegistryOptions{})
	require.Error(t, err)
}

func TestRegistry_CreateAndGet(t *testing.T) {
	_, reg := newRegistryFixture(t, nil)
	ctx := context.Background()

	h, err := reg.Create(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, h.ID)
	assert.Equal(t, 1, reg.Len())
	assert.False(t, h.Controller.State().IsInitializing)

	got, err := reg.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Same(t, h, got)

	_, err = reg.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = reg.Get(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_PersistsOnSignInAndDeletesOnSignOut(t *testing.T) {
	f, reg := newRegistryFixture(t, nil)
	ctx := context.Background()

	h, err := reg.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, h.Controller.Login(ctx, "a@example.com", "pw"))

	rec, err := f.store.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-a@example.com", rec.UserID)
	assert.Equal(t, "access-user-a@example.com", rec.AccessToken)
	assert.Equal(t, f.clock().Add(DefaultSessionTTL), rec.ExpiresAt)

	h.Controller.Logout(ctx)
	_, err = f.store.Get(ctx, h.ID)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestRegistry_RehydratesFromStore(t *testing.T) {
	store := mocks.NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionRecord{
		ID: "sid-1", UserID: "u1", AccessToken: "acc", RefreshToken: "ref",
	}))

	f := &registryFixture{store: store, now: time.Now()}
	reg, err := NewRegistry(RegistryOptions{Factory: f.factory, Store: store, Logger: quietLogger(), Now: f.clock})
	require.NoError(t, err)
	defer reg.Close()

	var wg sync.WaitGroup
	handles := make([]*Handle, 4)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := reg.Get(ctx, "sid-1")
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	require.NotNil(t, handles[0])
	for _, h := range handles[1:] {
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, 1, reg.Len())

	st := handles[0].Controller.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "adopted-user", st.User.ID)
	assert.Equal(t, "acc", f.lastBackend().CurrentSession().AccessToken())
}

func TestRegistry_RehydrateDropsUnusableRecord(t *testing.T) {
	store := mocks.NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionRecord{ID: "sid-1", AccessToken: "acc"}))

	factory := func() (Deps, error) {
		b := mocks.NewFakeBackend()
		b.SetSessionFunc = func(context.Context, string, string) (*domainauth.Session, error) {
			return nil, errors.New("refresh token revoked")
		}
		return Deps{Backend: b, Profiles: mocks.NewMemoryProfileStore()}, nil
	}
	reg, err := NewRegistry(RegistryOptions{Factory: factory, Store: store, Logger: quietLogger()})
	require.NoError(t, err)
	defer reg.Close()

	_, err = reg.Get(ctx, "sid-1")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_AdoptChecksExpiryWithoutVerifier(t *testing.T) {
	f, reg := newRegistryFixture(t, nil)
	ctx := context.Background()

	_, err := reg.Adopt(ctx, "", "", "")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = reg.Adopt(ctx, "", unsignedJWT(t, time.Now().Add(-time.Minute)), "r")
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 0, reg.Len())

	access := unsignedJWT(t, time.Now().Add(time.Hour))
	h, err := reg.Adopt(ctx, "https://other.reelapps.co.za", access, "r")
	require.NoError(t, err)
	assert.True(t, h.Controller.State().IsAuthenticated)

	rec, err := f.store.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, access, rec.AccessToken)
	assert.Equal(t, "r", rec.RefreshToken)
}

func TestRegistry_AdoptUsesVerifier(t *testing.T) {
	verifier := mocks.StaticVerifier{Valid: map[string]ports.VerifiedToken{"good": {Subject: "u1"}}}
	_, reg := newRegistryFixture(t, verifier)
	ctx := context.Background()

	_, err := reg.Adopt(ctx, "", "bad", "")
	require.ErrorIs(t, err, ErrInvalidToken)

	h, err := reg.Adopt(ctx, "", "good", "")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, "good", h.Backend.(*mocks.FakeBackend).CurrentSession().AccessToken())
}

func TestRegistry_AdoptBackendRejects(t *testing.T) {
	factory := func() (Deps, error) {
		b := mocks.NewFakeBackend()
		b.SetSessionFunc = func(context.Context, string, string) (*domainauth.Session, error) {
			return nil, errors.New("bad jwt")
		}
		return Deps{Backend: b, Profiles: mocks.NewMemoryProfileStore()}, nil
	}
	reg, err := NewRegistry(RegistryOptions{Factory: factory, Logger: quietLogger()})
	require.NoError(t, err)
	defer reg.Close()

	_, err = reg.Adopt(context.Background(), "", unsignedJWT(t, time.Now().Add(time.Hour)), "")
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Remove(t *testing.T) {
	f, reg := newRegistryFixture(t, nil)
	ctx := context.Background()

	h, err := reg.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, h.Controller.Login(ctx, "a@example.com", "pw"))
	require.Equal(t, 1, f.store.Len())

	require.NoError(t, reg.Remove(ctx, h.ID))
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.lastBackend().Subscribers())
}

func TestRegistry_SweepIdle(t *testing.T) {
	f, reg := newRegistryFixture(t, nil)
	ctx := context.Background()

	idle, err := reg.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, idle.Controller.Login(ctx, "a@example.com", "pw"))

	f.advance(20 * time.Minute)
	busy, err := reg.Create(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 1, reg.SweepIdle(10*time.Minute))
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Get(ctx, busy.ID)
	require.NoError(t, err)

	// The swept session's record survives and can be rehydrated.
	back, err := reg.Get(ctx, idle.ID)
	require.NoError(t, err)
	assert.NotSame(t, idle, back)
	assert.True(t, back.Controller.State().IsAuthenticated)
}

func TestRegistry_Close(t *testing.T) {
	_, reg := newRegistryFixture(t, nil)
	ctx := context.Background()

	_, err := reg.Create(ctx, "")
	require.NoError(t, err)

	reg.Close()
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Create(ctx, "")
	assert.ErrorIs(t, err, ErrRegistryClosed)
	_, err = reg.Get(ctx, "anything")
	assert.ErrorIs(t, err, ErrRegistryClosed)
}
