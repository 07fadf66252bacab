package models

import "time"

// Session is the per-visitor state held server side. The browser only
// carries a signed cookie with the session ID.
//
// LoggedIn and Authorized are always written together from a single
// verification result; Authorized true implies LoggedIn was confirmed in
// the same call.
type Session struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Token      string    `json:"token"`
	LoggedIn   bool      `json:"logged_in"`
	Authorized bool      `json:"authorized"`
	Flash      string    `json:"flash,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
