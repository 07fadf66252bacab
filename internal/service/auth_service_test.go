package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeals/blockdeals/internal/config"
	"github.com/blockdeals/blockdeals/internal/identity"
	"github.com/blockdeals/blockdeals/internal/models"
	"github.com/blockdeals/blockdeals/internal/security"
)

type fakeSessionStore struct {
	sessions map[string]models.Session
	saveErr  error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.Session)}
}

func (f *fakeSessionStore) Save(_ context.Context, session models.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (models.Session, error) {
	session, ok := f.sessions[id]
	if !ok {
		return models.Session{}, errors.New("not found")
	}
	return session, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func authTestConfig() *config.AppConfig {
	cfg := testConfig()
	cfg.Session = config.SessionConfig{
		CookieName:   "blockdeals_session",
		CookieSecret: "test-secret",
		TTL:          time.Hour,
	}
	return cfg
}

func TestHandleCallback_AuthorizedUser(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewAuthService(store, &fakeVerifier{status: identity.StatusAuthorized}, authTestConfig(), zerolog.Nop())

	result, err := svc.HandleCallback(context.Background(), "token-1", "alice", 3600)
	require.NoError(t, err)

	assert.True(t, result.Session.LoggedIn)
	assert.True(t, result.Session.Authorized)
	assert.Equal(t, "alice", result.Session.Username)
	assert.Equal(t, "token-1", result.Session.Token)

	// The session landed in the store and the cookie points at it.
	claims, err := security.ParseSessionToken(result.Cookie, "test-secret")
	require.NoError(t, err)
	stored, err := store.Get(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.Equal(t, result.Session.ID, stored.ID)
}

func TestHandleCallback_LoggedInWithoutDelegation(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewAuthService(store, &fakeVerifier{status: identity.StatusLoggedIn}, authTestConfig(), zerolog.Nop())

	result, err := svc.HandleCallback(context.Background(), "token-1", "alice", 3600)
	require.NoError(t, err)

	assert.True(t, result.Session.LoggedIn)
	assert.False(t, result.Session.Authorized)
}

func TestHandleCallback_RejectedToken(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewAuthService(store, &fakeVerifier{status: identity.StatusNotLoggedIn}, authTestConfig(), zerolog.Nop())

	_, err := svc.HandleCallback(context.Background(), "token-1", "alice", 3600)
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Empty(t, store.sessions, "no session is created for a rejected token")
}

func TestHandleCallback_VerifierError(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewAuthService(store, &fakeVerifier{err: errors.New("unreachable")}, authTestConfig(), zerolog.Nop())

	_, err := svc.HandleCallback(context.Background(), "token-1", "alice", 3600)
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Empty(t, store.sessions)
}

func TestReverify_UpdatesBothFlagsTogether(t *testing.T) {
	store := newFakeSessionStore()

	sess := models.Session{
		ID:         "sess-1",
		Username:   "alice",
		Token:      "token-1",
		LoggedIn:   true,
		Authorized: true,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(context.Background(), sess))

	// Delegation has been revoked upstream since login.
	svc := NewAuthService(store, &fakeVerifier{status: identity.StatusLoggedIn}, authTestConfig(), zerolog.Nop())

	updated, err := svc.Reverify(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, updated.LoggedIn)
	assert.False(t, updated.Authorized)

	stored, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, stored.Authorized)
}

func TestReverify_FailureClearsFlags(t *testing.T) {
	store := newFakeSessionStore()

	sess := models.Session{
		ID:        "sess-1",
		Username:  "alice",
		Token:     "token-1",
		LoggedIn:  true,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(context.Background(), sess))

	svc := NewAuthService(store, &fakeVerifier{status: identity.StatusNotLoggedIn}, authTestConfig(), zerolog.Nop())

	_, err := svc.Reverify(context.Background(), sess)
	require.ErrorIs(t, err, ErrNotAuthorized)

	stored, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, stored.LoggedIn)
	assert.False(t, stored.Authorized)
}

func TestReverify_RequiresExistingLogin(t *testing.T) {
	store := newFakeSessionStore()
	verifier := &fakeVerifier{status: identity.StatusAuthorized}
	svc := NewAuthService(store, verifier, authTestConfig(), zerolog.Nop())

	_, err := svc.Reverify(context.Background(), models.Session{})
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Zero(t, verifier.calls, "no upstream call without a logged-in session")
}

func TestLogout(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewAuthService(store, &fakeVerifier{status: identity.StatusAuthorized}, authTestConfig(), zerolog.Nop())

	sess := models.Session{ID: "sess-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(context.Background(), sess))

	require.NoError(t, svc.Logout(context.Background(), "sess-1"))
	assert.Empty(t, store.sessions)

	// Logging out an anonymous visitor is a no-op.
	require.NoError(t, svc.Logout(context.Background(), ""))
}
