package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/blockdeals/blockdeals/internal/config"
)

// Status is the outcome of a single verification call. LoggedIn and
// Authorized are never derived separately: one call to Verify decides both.
type Status int

const (
	// StatusNotLoggedIn covers every failure mode: bad token, upstream
	// error, or a token that belongs to a different account than claimed.
	StatusNotLoggedIn Status = iota
	// StatusLoggedIn means the token matches the claimed account but the
	// account has not delegated posting authority to the service account.
	StatusLoggedIn
	// StatusAuthorized means the token matches and posting authority is
	// delegated to the service account.
	StatusAuthorized
)

func (s Status) String() string {
	switch s {
	case StatusAuthorized:
		return "authorized"
	case StatusLoggedIn:
		return "logged_in"
	default:
		return "not_logged_in"
	}
}

// Verifier confirms that a bearer token belongs to a claimed user and that
// the user has delegated posting authority to the service account. Injected
// into the services so tests can swap in a fake.
type Verifier interface {
	Verify(ctx context.Context, token, username string) (Status, error)
}

// meResponse mirrors the identity service's /api/me payload, trimmed to the
// fields the verifier inspects.
type meResponse struct {
	ID      string `json:"_id"`
	Account struct {
		Posting struct {
			AccountAuths [][]json.RawMessage `json:"account_auths"`
		} `json:"posting"`
	} `json:"account"`
}

type Client struct {
	baseURL        string
	serviceAccount string
	http           *http.Client
	log            zerolog.Logger
}

func NewClient(cfg config.IdentityConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:        cfg.BaseURL,
		serviceAccount: cfg.ServiceAccount,
		http:           &http.Client{Timeout: cfg.Timeout},
		log:            log,
	}
}

// Verify calls the identity service's me endpoint with the bearer token.
// Any non-200 response, transport error, or subject mismatch resolves to
// StatusNotLoggedIn; callers must treat a non-nil error the same way.
func (c *Client) Verify(ctx context.Context, token, username string) (Status, error) {
	if token == "" || username == "" {
		return StatusNotLoggedIn, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return StatusNotLoggedIn, fmt.Errorf("build me request: %w", err)
	}
	req.Header.Set("Authorization", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return StatusNotLoggedIn, fmt.Errorf("identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("username", username).Msg("identity check rejected")
		return StatusNotLoggedIn, nil
	}

	var me meResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return StatusNotLoggedIn, fmt.Errorf("decode me response: %w", err)
	}

	if me.ID != username {
		c.log.Warn().Str("claimed", username).Str("actual", me.ID).Msg("token subject mismatch")
		return StatusNotLoggedIn, nil
	}

	for _, auth := range me.Account.Posting.AccountAuths {
		// Each entry is an [account, weight] pair.
		if len(auth) == 0 {
			continue
		}
		var account string
		if err := json.Unmarshal(auth[0], &account); err != nil {
			continue
		}
		if account == c.serviceAccount {
			c.log.Info().Str("username", username).Msg("confirmed token and posting authority")
			return StatusAuthorized, nil
		}
	}

	return StatusLoggedIn, nil
}
