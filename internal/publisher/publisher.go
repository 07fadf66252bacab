package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockdeals/blockdeals/internal/config"
	"github.com/blockdeals/blockdeals/internal/models"
)

// PublishError wraps whatever went wrong talking to the content network.
// Exactly one attempt is made per submission; the orchestrator never retries.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed: %v", e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Client posts formatted deals to the Steem content network through a
// broadcast endpoint, co-signed with service-held credentials. When the
// publisher is disabled it never touches the network and hands back a
// locally synthesized permlink instead.
type Client struct {
	cfg  config.SteemConfig
	http *http.Client
	log  zerolog.Logger

	// now is swapped in tests to pin the stub permlink.
	now func() time.Time
}

func New(cfg config.SteemConfig, log zerolog.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
		now:  time.Now,
	}
}

type commentOperation struct {
	ParentAuthor   string `json:"parent_author"`
	ParentPermlink string `json:"parent_permlink"`
	Author         string `json:"author"`
	Permlink       string `json:"permlink"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	JSONMetadata   string `json:"json_metadata"`
}

type beneficiary struct {
	Account string `json:"account"`
	Weight  int    `json:"weight"`
}

type commentOptionsOperation struct {
	Author               string `json:"author"`
	Permlink             string `json:"permlink"`
	MaxAcceptedPayout    string `json:"max_accepted_payout"`
	PercentSteemDollars  int    `json:"percent_steem_dollars"`
	AllowVotes           bool   `json:"allow_votes"`
	AllowCurationRewards bool   `json:"allow_curation_rewards"`
	Extensions           []any  `json:"extensions"`
}

type broadcastRequest struct {
	Operations []any `json:"operations"`
	SelfVote   bool  `json:"self_vote"`
}

type broadcastResponse struct {
	Operations []json.RawMessage `json:"operations"`
	Error      string            `json:"error,omitempty"`
}

type jsonMetadata struct {
	Community string   `json:"community"`
	App       string   `json:"app"`
	Format    string   `json:"format"`
	Tags      []string `json:"tags"`
}

// Publish formats and submits the deal as a post authored by the given
// user. The returned permlink is the stable identifier the deal is stored
// under. Disabled publishing yields a "testing-<unix>" permlink.
func (c *Client) Publish(ctx context.Context, deal models.Deal, author string) (string, error) {
	if !c.cfg.Enabled {
		permlink := fmt.Sprintf("testing-%d", c.now().Unix())
		c.log.Info().Str("permlink", permlink).Msg("publishing disabled, stored locally only")
		return permlink, nil
	}

	permlink := slugify(deal.Title)

	metadata, err := json.Marshal(jsonMetadata{
		Community: c.cfg.Community,
		App:       c.cfg.AppID,
		Format:    "markdown",
		Tags:      deal.Tags,
	})
	if err != nil {
		return "", &PublishError{Err: fmt.Errorf("marshal metadata: %w", err)}
	}

	comment := commentOperation{
		ParentPermlink: c.cfg.BaseTag,
		Author:         author,
		Permlink:       permlink,
		Title:          deal.Title,
		Body:           renderBody(deal),
		JSONMetadata:   string(metadata),
	}

	options := commentOptionsOperation{
		Author:               author,
		Permlink:             permlink,
		MaxAcceptedPayout:    c.cfg.MaxAcceptedPayout,
		PercentSteemDollars:  c.cfg.PercentSteemDollars,
		AllowVotes:           true,
		AllowCurationRewards: true,
		Extensions: []any{
			[]any{0, map[string]any{
				"beneficiaries": []beneficiary{
					{Account: c.cfg.BeneficiaryAccount, Weight: c.cfg.BeneficiaryWeight},
				},
			}},
		},
	}

	payload := broadcastRequest{
		Operations: []any{
			[]any{"comment", comment},
			[]any{"comment_options", options},
		},
		SelfVote: true,
	}

	result, err := c.broadcast(ctx, payload)
	if err != nil {
		return "", &PublishError{Err: err}
	}

	c.log.Info().Str("permlink", result).Str("author", author).Msg("posted to steem")
	return result, nil
}

func (c *Client) broadcast(ctx context.Context, payload broadcastRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal broadcast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BroadcastURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("broadcast: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read broadcast response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("broadcast returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var decoded broadcastResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode broadcast response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("broadcast rejected: %s", decoded.Error)
	}

	return extractPermlink(decoded)
}

// extractPermlink pulls the permanent link out of the first operation of
// the response, which arrives as an ["comment", {...}] pair.
func extractPermlink(resp broadcastResponse) (string, error) {
	if len(resp.Operations) == 0 {
		return "", fmt.Errorf("broadcast response has no operations")
	}

	var op []json.RawMessage
	if err := json.Unmarshal(resp.Operations[0], &op); err != nil {
		return "", fmt.Errorf("decode operation: %w", err)
	}
	if len(op) < 2 {
		return "", fmt.Errorf("operation record too short")
	}

	var fields struct {
		Permlink string `json:"permlink"`
	}
	if err := json.Unmarshal(op[1], &fields); err != nil {
		return "", fmt.Errorf("decode operation fields: %w", err)
	}
	if fields.Permlink == "" {
		return "", fmt.Errorf("operation response missing permlink")
	}

	return fields.Permlink, nil
}
