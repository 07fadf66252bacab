package service

import (
	"errors"
	"fmt"
)

// ErrNotAuthorized means the live identity check did not come back
// logged-in-and-authorized. Nothing is persisted when this is returned.
var ErrNotAuthorized = errors.New("user not logged in or not authorized")

// MissingFieldError aborts normalization when a required submission field
// is absent. The handler turns it into a flash message on the form.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}
