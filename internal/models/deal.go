package models

import "time"

// DateLayout is the canonical form for all deal dates. Dates are kept as
// ISO-8601 strings end to end, so lexicographic comparison in the store is
// also chronological comparison.
const DateLayout = "2006-01-02"

// Deal is a persisted promotional listing. Created once per submission,
// mutated only through the image patch endpoint.
type Deal struct {
	ID          int64  `json:"id"`
	Permlink    string `json:"permlink"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CouponCode  string `json:"coupon_code"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	Brand       string `json:"brand"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Freebie     bool   `json:"freebie"`
	DealStart   string `json:"deal_start"`
	DealEnd     string `json:"deal_end"`
	DealExpires string `json:"deal_expires"`
	SteemUser   string `json:"steem_user"`

	Tags []string `json:"tags"`

	CreatedAt time.Time `json:"created_at"`
}

// DealForm carries the raw submission fields. The six required fields are
// checked at the normalizer boundary before any dates are parsed.
type DealForm struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
	CouponCode  string `form:"coupon_code" validate:"required"`
	URL         string `form:"url" validate:"required"`
	DealStart   string `form:"deal_start" validate:"required"`
	DealEnd     string `form:"deal_end" validate:"required"`
	ImageURL    string `form:"image_url"`
	Brand       string `form:"brand"`
	Country     string `form:"country"`
	CountryCode string `form:"country_code"`
	Freebie     string `form:"freebie"`
}

// DealFilter narrows ListActive results.
type DealFilter struct {
	Brand       string
	CountryCode string
}
