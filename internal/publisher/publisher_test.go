package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeals/blockdeals/internal/config"
	"github.com/blockdeals/blockdeals/internal/models"
)

func steemConfig(enabled bool, broadcastURL string) config.SteemConfig {
	return config.SteemConfig{
		Enabled:             enabled,
		BroadcastURL:        broadcastURL,
		AccessToken:         "service-token",
		Timeout:             2 * time.Second,
		Community:           "blockdeals",
		AppID:               "blockdeals/1.0.0",
		BaseTag:             "blockdeals",
		MaxAcceptedPayout:   "1000000.000 SBD",
		PercentSteemDollars: 10000,
		BeneficiaryAccount:  "blockdeals",
		BeneficiaryWeight:   1000,
		FallbackImageURL:    "https://blockdeals.org/assets/images/logo_round.png",
		ContentBaseURL:      "https://steemit.com",
	}
}

func sampleDeal() models.Deal {
	return models.Deal{
		Title:       "Half Price Widgets",
		Description: "All widgets half off",
		CouponCode:  "WIDGET50",
		URL:         "https://widgets.example.com/sale",
		ImageURL:    "https://example.com/widgets.png",
		Country:     "United States",
		CountryCode: "US",
		Freebie:     true,
		DealStart:   "2024-01-01",
		DealEnd:     "2024-02-01",
		DealExpires: "2024-02-01",
		Tags:        []string{"blockdeals", "blockdeals-US"},
	}
}

func TestPublish_DisabledSynthesizesPermlink(t *testing.T) {
	client := New(steemConfig(false, ""), zerolog.Nop())
	client.now = func() time.Time { return time.Unix(1700000000, 0) }

	permlink, err := client.Publish(context.Background(), sampleDeal(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "testing-1700000000", permlink)
}

func TestPublish_DistinctStubsPerInstant(t *testing.T) {
	client := New(steemConfig(false, ""), zerolog.Nop())

	instant := int64(1700000000)
	client.now = func() time.Time {
		instant++
		return time.Unix(instant, 0)
	}

	first, err := client.Publish(context.Background(), sampleDeal(), "alice")
	require.NoError(t, err)
	second, err := client.Publish(context.Background(), sampleDeal(), "alice")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestPublish_SendsStructuredPost(t *testing.T) {
	var captured broadcastRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "service-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{"operations": [["comment", {"permlink": "half-price-widgets"}]]}`))
	}))
	defer srv.Close()

	client := New(steemConfig(true, srv.URL), zerolog.Nop())

	permlink, err := client.Publish(context.Background(), sampleDeal(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "half-price-widgets", permlink)

	require.Len(t, captured.Operations, 2)
	assert.True(t, captured.SelfVote)

	// Re-decode the loosely typed operations.
	raw, err := json.Marshal(captured.Operations[0])
	require.NoError(t, err)
	var commentOp []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &commentOp))
	require.Len(t, commentOp, 2)

	var opName string
	require.NoError(t, json.Unmarshal(commentOp[0], &opName))
	assert.Equal(t, "comment", opName)

	var comment commentOperation
	require.NoError(t, json.Unmarshal(commentOp[1], &comment))
	assert.Equal(t, "alice", comment.Author)
	assert.Equal(t, "half-price-widgets", comment.Permlink)
	assert.Equal(t, "Half Price Widgets", comment.Title)
	assert.Equal(t, "blockdeals", comment.ParentPermlink)
	assert.Contains(t, comment.Body, "WIDGET50")
	assert.Contains(t, comment.Body, "US.png")
	assert.Contains(t, comment.Body, "&#128077;", "freebie deals carry the thumbs-up marker")

	var metadata jsonMetadata
	require.NoError(t, json.Unmarshal([]byte(comment.JSONMetadata), &metadata))
	assert.Equal(t, "blockdeals", metadata.Community)
	assert.Equal(t, "blockdeals/1.0.0", metadata.App)
	assert.Equal(t, "markdown", metadata.Format)
	assert.Equal(t, []string{"blockdeals", "blockdeals-US"}, metadata.Tags)

	raw, err = json.Marshal(captured.Operations[1])
	require.NoError(t, err)
	var optionsOp []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &optionsOp))
	require.Len(t, optionsOp, 2)

	var options commentOptionsOperation
	require.NoError(t, json.Unmarshal(optionsOp[1], &options))
	assert.Equal(t, "1000000.000 SBD", options.MaxAcceptedPayout)
	assert.Equal(t, 10000, options.PercentSteemDollars)
	assert.True(t, options.AllowVotes)
	assert.True(t, options.AllowCurationRewards)

	optionsJSON, err := json.Marshal(options.Extensions)
	require.NoError(t, err)
	assert.Contains(t, string(optionsJSON), `"account":"blockdeals"`)
	assert.Contains(t, string(optionsJSON), `"weight":1000`)
}

func TestPublish_UpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "node overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(steemConfig(true, srv.URL), zerolog.Nop())

	_, err := client.Publish(context.Background(), sampleDeal(), "alice")
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Contains(t, pubErr.Error(), "503")
}

func TestPublish_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"operations": []}`))
	}))
	defer srv.Close()

	client := New(steemConfig(true, srv.URL), zerolog.Nop())

	_, err := client.Publish(context.Background(), sampleDeal(), "alice")
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
}

func TestPublish_UnreachableNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := New(steemConfig(true, srv.URL), zerolog.Nop())

	_, err := client.Publish(context.Background(), sampleDeal(), "alice")
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
}

func TestShorten(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
	}{
		{"short stays", "Half Price Widgets", "Half Price Widgets"},
		{"exact width stays", "0123456789012345678901234567890123456789", "0123456789012345678901234567890123456789"},
		{"long is cut at word boundary", "This is a very long deal title that goes on and on forever", "This is a very long deal title that..."},
		{"whitespace collapsed", "Half   Price\tWidgets", "Half Price Widgets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shorten(tt.in, maxLinkLabelLen)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), maxLinkLabelLen)
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "half-price-widgets", slugify("Half Price Widgets"))
	assert.Equal(t, "50-off-everything", slugify("50% Off, Everything!"))
	assert.Equal(t, "sale", slugify("  Sale  "))
}
