package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeals/blockdeals/internal/models"
)

const (
	testFallbackImage = "https://blockdeals.org/assets/images/logo_round.png"
	testBaseTag       = "blockdeals"
)

func validForm() models.DealForm {
	return models.DealForm{
		Title:       "Sale",
		Description: "d",
		CouponCode:  "X1",
		URL:         "http://x",
		DealStart:   "2024-01-01",
		DealEnd:     "2024-02-01",
	}
}

func TestNormalizeDeal_ValidDates(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	deal, err := normalizeDeal(validForm(), now, testFallbackImage, testBaseTag)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", deal.DealStart)
	assert.Equal(t, "2024-02-01", deal.DealEnd)
	assert.Equal(t, "2024-02-01", deal.DealExpires)
}

func TestNormalizeDeal_DateDefaults(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

	form := validForm()
	form.DealStart = "not-a-date"
	form.DealEnd = "also-not-a-date"

	deal, err := normalizeDeal(form, now, testFallbackImage, testBaseTag)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-10", deal.DealStart, "unparseable start defaults to today")
	assert.Equal(t, "2024-04-24", deal.DealEnd, "unparseable end defaults to today+45d")
	assert.Equal(t, deal.DealEnd, deal.DealExpires)
}

func TestNormalizeDeal_ExpiresAlwaysTracksEnd(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	// Parsed end date: expires must still be set.
	deal, err := normalizeDeal(validForm(), now, testFallbackImage, testBaseTag)
	require.NoError(t, err)
	assert.Equal(t, deal.DealEnd, deal.DealExpires)
}

func TestNormalizeDeal_FlexibleDateLayouts(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want string
	}{
		{"2024-06-01", "2024-06-01"},
		{"2024/06/01", "2024-06-01"},
		{"06/01/2024", "2024-06-01"},
		{"Jun 1, 2024", "2024-06-01"},
		{"June 1, 2024", "2024-06-01"},
		{"1 Jun 2024", "2024-06-01"},
		{"2024-06-01T10:30:00Z", "2024-06-01"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			form := validForm()
			form.DealStart = tt.raw

			deal, err := normalizeDeal(form, now, testFallbackImage, testBaseTag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, deal.DealStart)
		})
	}
}

func TestNormalizeDeal_Freebie(t *testing.T) {
	now := time.Now()

	form := validForm()
	deal, err := normalizeDeal(form, now, testFallbackImage, testBaseTag)
	require.NoError(t, err)
	assert.False(t, deal.Freebie, "absent freebie field means false")

	form.Freebie = "on"
	deal, err = normalizeDeal(form, now, testFallbackImage, testBaseTag)
	require.NoError(t, err)
	assert.True(t, deal.Freebie, "any non-empty freebie value means true")
}

func TestNormalizeDeal_ImageFallback(t *testing.T) {
	now := time.Now()

	form := validForm()
	deal, err := normalizeDeal(form, now, testFallbackImage, testBaseTag)
	require.NoError(t, err)
	assert.Equal(t, testFallbackImage, deal.ImageURL)

	form.ImageURL = "https://example.com/pic.png"
	deal, err = normalizeDeal(form, now, testFallbackImage, testBaseTag)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pic.png", deal.ImageURL)
}

func TestNormalizeDeal_Tags(t *testing.T) {
	now := time.Now()

	form := validForm()
	deal, err := normalizeDeal(form, now, testFallbackImage, testBaseTag)
	require.NoError(t, err)
	assert.Equal(t, []string{"blockdeals"}, deal.Tags)

	form.CountryCode = "US"
	deal, err = normalizeDeal(form, now, testFallbackImage, testBaseTag)
	require.NoError(t, err)
	assert.Equal(t, []string{"blockdeals", "blockdeals-US"}, deal.Tags)
}

func TestNormalizeDeal_MissingFields(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		strip func(*models.DealForm)
		field string
	}{
		{"title", func(f *models.DealForm) { f.Title = "" }, "title"},
		{"description", func(f *models.DealForm) { f.Description = "" }, "description"},
		{"coupon_code", func(f *models.DealForm) { f.CouponCode = "" }, "coupon_code"},
		{"url", func(f *models.DealForm) { f.URL = "" }, "url"},
		{"deal_start", func(f *models.DealForm) { f.DealStart = "" }, "deal_start"},
		{"deal_end", func(f *models.DealForm) { f.DealEnd = "" }, "deal_end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.strip(&form)

			_, err := normalizeDeal(form, now, testFallbackImage, testBaseTag)
			require.Error(t, err)

			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field, missing.Field)
		})
	}
}
