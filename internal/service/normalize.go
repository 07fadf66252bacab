package service

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/blockdeals/blockdeals/internal/models"
)

// defaultDealDuration is how long a deal stays active when the submitted
// end date cannot be parsed.
const defaultDealDuration = 45 * 24 * time.Hour

// dateLayouts are tried in order when parsing submitted dates. Anything
// unparseable falls back to a default rather than rejecting the submission.
var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report errors under the form field names, not Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizeDeal validates the submitted form against its schema and turns
// it into a deal record with defaults filled in. now anchors the date
// defaults so the whole normalization is deterministic.
func normalizeDeal(form models.DealForm, now time.Time, fallbackImageURL, baseTag string) (models.Deal, error) {
	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return models.Deal{}, &MissingFieldError{Field: verrs[0].Field()}
		}
		return models.Deal{}, err
	}

	imageURL := form.ImageURL
	if imageURL == "" {
		imageURL = fallbackImageURL
	}

	dealStart := parseDate(form.DealStart, now)
	dealEnd := parseDate(form.DealEnd, now.Add(defaultDealDuration))

	tags := []string{baseTag}
	if form.CountryCode != "" {
		tags = append(tags, baseTag+"-"+form.CountryCode)
	}

	return models.Deal{
		Title:       form.Title,
		Description: form.Description,
		CouponCode:  form.CouponCode,
		URL:         form.URL,
		ImageURL:    imageURL,
		Brand:       form.Brand,
		Country:     form.Country,
		CountryCode: form.CountryCode,
		Freebie:     form.Freebie != "",
		DealStart:   dealStart,
		DealEnd:     dealEnd,
		// Always derived from the final end date, including when the end
		// date itself was defaulted.
		DealExpires: dealEnd,
		Tags:        tags,
	}, nil
}

// parseDate tries each accepted layout and falls back to the given default
// when none match, returning the canonical date form either way.
func parseDate(raw string, fallback time.Time) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	return fallback.Format(models.DateLayout)
}
