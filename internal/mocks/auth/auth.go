package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthBackend     = (*FakeBackend)(nil)
	_ ports.ProfileStore    = (*MemoryProfileStore)(nil)
	_ ports.SessionStore    = (*MemorySessionStore)(nil)
	_ ports.TokenVerifier   = (*StaticVerifier)(nil)
	_ ports.FunctionInvoker = (*StubFunctions)(nil)
)

// FakeBackend simulates the remote auth service for one browser session.
// Successful sign-in, sign-out, refresh and set-session calls emit the matching
// AuthChange synchronously to every subscriber.
type FakeBackend struct {
	SignInFunc         func(ctx context.Context, email, password string) (*domainauth.Session, error)
	SignUpFunc         func(ctx context.Context, in ports.SignUpInput) (*ports.SignUpResult, error)
	SignOutFunc        func(ctx context.Context) error
	GetSessionFunc     func(ctx context.Context) (*domainauth.Session, error)
	RefreshSessionFunc func(ctx context.Context) (*domainauth.Session, error)
	SetSessionFunc     func(ctx context.Context, access, refresh string) (*domainauth.Session, error)
	ResetPasswordFunc  func(ctx context.Context, email, redirectTo string) error

	mu       sync.Mutex
	session  *domainauth.Session
	subs     map[int]func(domainauth.AuthChange)
	nextSub  int
	calls    []string
	resetTos []string
}

// NewFakeBackend creates a FakeBackend with no session.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{subs: make(map[int]func(domainauth.AuthChange))}
}

// NewSession builds a live session for a user id and e-mail.
func NewSession(userID, email string) *domainauth.Session {
	return &domainauth.Session{
		User: domainauth.User{ID: userID, Email: email},
		Token: &oauth2.Token{
			AccessToken:  "access-" + userID,
			RefreshToken: "refresh-" + userID,
			TokenType:    "bearer",
			Expiry:       time.Now().Add(time.Hour),
		},
	}
}

func (f *FakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

// Calls returns the names of backend methods invoked so far, in order.
func (f *FakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ResetRedirects returns the redirect targets passed to ResetPasswordForEmail.
func (f *FakeBackend) ResetRedirects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.resetTos...)
}

// CurrentSession returns the session the fake currently holds.
func (f *FakeBackend) CurrentSession() *domainauth.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *FakeBackend) SignIn(ctx context.Context, email, password string) (*domainauth.Session, error) {
	f.record("SignIn")
	var (
		sess *domainauth.Session
		err  error
	)
	if f.SignInFunc != nil {
		sess, err = f.SignInFunc(ctx, email, password)
	} else {
		sess = NewSession("user-"+email, email)
	}
	if err != nil {
		return nil, err
	}
	f.setAndEmit(sess, domainauth.EventSignedIn)
	return sess, nil
}

func (f *FakeBackend) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.SignUpResult, error) {
	f.record("SignUp")
	if f.SignUpFunc != nil {
		res, err := f.SignUpFunc(ctx, in)
		if err == nil && res != nil && res.Session != nil {
			f.setAndEmit(res.Session, domainauth.EventSignedIn)
		}
		return res, err
	}
	sess := NewSession("user-"+in.Email, in.Email)
	sess.User.Metadata = domainauth.UserMetadata{FirstName: in.FirstName, LastName: in.LastName, Role: in.Role}
	f.setAndEmit(sess, domainauth.EventSignedIn)
	u := sess.User
	return &ports.SignUpResult{User: &u, Session: sess}, nil
}

func (f *FakeBackend) SignOut(ctx context.Context) error {
	f.record("SignOut")
	if f.SignOutFunc != nil {
		if err := f.SignOutFunc(ctx); err != nil {
			return err
		}
	}
	f.setAndEmit(nil, domainauth.EventSignedOut)
	return nil
}

func (f *FakeBackend) GetSession(ctx context.Context) (*domainauth.Session, error) {
	f.record("GetSession")
	if f.GetSessionFunc != nil {
		return f.GetSessionFunc(ctx)
	}
	return f.CurrentSession(), nil
}

func (f *FakeBackend) RefreshSession(ctx context.Context) (*domainauth.Session, error) {
	f.record("RefreshSession")
	var (
		sess *domainauth.Session
		err  error
	)
	switch {
	case f.RefreshSessionFunc != nil:
		sess, err = f.RefreshSessionFunc(ctx)
	case f.CurrentSession() == nil:
		err = errors.New("no refresh token")
	default:
		cur := f.CurrentSession()
		sess = NewSession(cur.User.ID, cur.User.Email)
		sess.User = cur.User
	}
	if err != nil {
		return nil, err
	}
	f.setAndEmit(sess, domainauth.EventTokenRefreshed)
	return sess, nil
}

func (f *FakeBackend) SetSession(ctx context.Context, access, refresh string) (*domainauth.Session, error) {
	f.record("SetSession")
	var (
		sess *domainauth.Session
		err  error
	)
	if f.SetSessionFunc != nil {
		sess, err = f.SetSessionFunc(ctx, access, refresh)
	} else {
		sess = &domainauth.Session{
			User:  domainauth.User{ID: "adopted-user"},
			Token: &oauth2.Token{AccessToken: access, RefreshToken: refresh, Expiry: time.Now().Add(time.Hour)},
		}
	}
	if err != nil {
		return nil, err
	}
	f.setAndEmit(sess, domainauth.EventSignedIn)
	return sess, nil
}

func (f *FakeBackend) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	f.record("ResetPasswordForEmail")
	f.mu.Lock()
	f.resetTos = append(f.resetTos, redirectTo)
	f.mu.Unlock()
	if f.ResetPasswordFunc != nil {
		return f.ResetPasswordFunc(ctx, email, redirectTo)
	}
	return nil
}

func (f *FakeBackend) OnAuthStateChange(fn func(domainauth.AuthChange)) func() {
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[int]func(domainauth.AuthChange))
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Subscribers reports the number of active subscriptions.
func (f *FakeBackend) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Emit delivers change to every subscriber, as a remote notification would.
func (f *FakeBackend) Emit(change domainauth.AuthChange) {
	f.mu.Lock()
	fns := make([]func(domainauth.AuthChange), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

func (f *FakeBackend) setAndEmit(sess *domainauth.Session, ev domainauth.AuthEvent) {
	f.mu.Lock()
	f.session = sess
	f.mu.Unlock()
	f.Emit(domainauth.AuthChange{Event: ev, Session: sess})
}

// MemoryProfileStore is an in-memory profile table.
type MemoryProfileStore struct {
	// GetErr and InsertErr, when set, are returned instead of touching the table.
	GetErr    error
	InsertErr error

	mu       sync.Mutex
	profiles map[string]domainauth.Profile
	inserts  int
}

// NewMemoryProfileStore creates an empty store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domainauth.Profile)}
}

// Put seeds a profile row.
func (m *MemoryProfileStore) Put(p domainauth.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = make(map[string]domainauth.Profile)
	}
	m.profiles[p.ID] = p
}

// Inserts reports how many InsertProfile calls reached the table.
func (m *MemoryProfileStore) Inserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

func (m *MemoryProfileStore) GetProfile(_ context.Context, id string) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, ports.ErrProfileNotFound
	}
	return &p, nil
}

func (m *MemoryProfileStore) InsertProfile(_ context.Context, p domainauth.Profile) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	if m.profiles == nil {
		m.profiles = make(map[string]domainauth.Profile)
	}
	if _, exists := m.profiles[p.ID]; exists {
		return nil, ports.ErrProfileConflict
	}
	m.inserts++
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.profiles[p.ID] = p
	return &p, nil
}

// MemorySessionStore is an in-memory session record store for unit tests.
type MemorySessionStore struct {
	mu      sync.Mutex
	records map[string]domainauth.SessionRecord
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{records: make(map[string]domainauth.SessionRecord)}
}

func (m *MemorySessionStore) Save(_ context.Context, rec domainauth.SessionRecord) error {
	if rec.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || id == "" {
		return domainauth.SessionRecord{}, ports.ErrSessionNotFound
	}
	return rec, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Len reports the number of stored records.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// StaticVerifier accepts exactly the tokens in Valid.
type StaticVerifier struct {
	Valid map[string]ports.VerifiedToken
}

func (v StaticVerifier) Verify(_ context.Context, raw string) (ports.VerifiedToken, error) {
	tok, ok := v.Valid[raw]
	if !ok {
		return ports.VerifiedToken{}, errors.New("token rejected")
	}
	return tok, nil
}

// StubFunctions answers function invocations from canned replies.
type StubFunctions struct {
	Replies map[string][]byte
	Errors  map[string]error

	mu     sync.Mutex
	bodies map[string][]any
}

func (s *StubFunctions) Invoke(_ context.Context, name string, body any) ([]byte, error) {
	s.mu.Lock()
	if s.bodies == nil {
		s.bodies = make(map[string][]any)
	}
	s.bodies[name] = append(s.bodies[name], body)
	s.mu.Unlock()

	if err := s.Errors[name]; err != nil {
		return nil, err
	}
	if reply, ok := s.Replies[name]; ok {
		return reply, nil
	}
	return nil, errors.New("function not stubbed: " + name)
}

// Calls reports how many times name was invoked.
func (s *StubFunctions) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies[name])
}
