package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/blockdeals/blockdeals/internal/config"
	"github.com/blockdeals/blockdeals/internal/identity"
	"github.com/blockdeals/blockdeals/internal/models"
	"github.com/blockdeals/blockdeals/internal/security"
)

// SessionStore is the persistence contract for visitor sessions.
type SessionStore interface {
	Save(ctx context.Context, session models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuthService owns the session lifecycle around the delegated identity
// flow: the OAuth callback, explicit re-verification, and logout.
type AuthService struct {
	sessions SessionStore
	verifier identity.Verifier
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(
	sessions SessionStore,
	verifier identity.Verifier,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		sessions: sessions,
		verifier: verifier,
		cfg:      cfg,
		log:      log,
	}
}

// LoginResult carries the stored session plus the signed cookie value that
// points at it.
type LoginResult struct {
	Session models.Session
	Cookie  string
}

// HandleCallback verifies the token handed back by the identity service
// and, when it checks out, creates a server-side session. Both session
// flags come from the single verification result.
func (s *AuthService) HandleCallback(ctx context.Context, token, username string, expiresIn int) (LoginResult, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.Identity.Timeout)
	defer cancel()

	status, err := s.verifier.Verify(verifyCtx, token, username)
	if err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("login verification failed")
		return LoginResult{}, ErrNotAuthorized
	}
	if status == identity.StatusNotLoggedIn {
		return LoginResult{}, ErrNotAuthorized
	}

	ttl := s.cfg.Session.TTL
	if expiresIn > 0 {
		ttl = time.Duration(expiresIn) * time.Second
	}

	now := time.Now()
	session := models.Session{
		ID:         ksuid.New().String(),
		Username:   username,
		Token:      token,
		LoggedIn:   true,
		Authorized: status == identity.StatusAuthorized,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return LoginResult{}, err
	}

	cookie, err := security.GenerateSessionToken(s.cfg.Session.CookieSecret, session.ID, ttl)
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info().Str("username", username).Bool("authorized", session.Authorized).Msg("login successful")
	return LoginResult{Session: session, Cookie: cookie}, nil
}

// Reverify re-runs the identity check for an existing session and rewrites
// both flags from the result. A failed check clears the flags and reports
// ErrNotAuthorized.
func (s *AuthService) Reverify(ctx context.Context, session models.Session) (models.Session, error) {
	if !session.LoggedIn {
		return session, ErrNotAuthorized
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.Identity.Timeout)
	defer cancel()

	status, err := s.verifier.Verify(verifyCtx, session.Token, session.Username)
	if err != nil || status == identity.StatusNotLoggedIn {
		session.LoggedIn = false
		session.Authorized = false
		if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
			s.log.Error().Err(saveErr).Msg("failed to clear session flags")
		}
		return session, ErrNotAuthorized
	}

	session.LoggedIn = true
	session.Authorized = status == identity.StatusAuthorized
	if err := s.sessions.Save(ctx, session); err != nil {
		return session, err
	}

	s.log.Info().Str("username", session.Username).Bool("authorized", session.Authorized).Msg("re-verification successful")
	return session, nil
}

// Logout drops the server-side session. The cookie becomes a dangling
// pointer and is cleared by the handler.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}
