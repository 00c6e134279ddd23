package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the AdvisorConnect application

// ErrUserNotFound is returned when no user exists for a given email
var ErrUserNotFound = errors.New("user not found")

// ErrLinkNotFound is returned when a scheduling link doesn't exist
var ErrLinkNotFound = errors.New("scheduling link not found")

// ErrSlugTaken is returned when creating a link whose slug already exists
var ErrSlugTaken = errors.New("slug already taken")

// ErrLinkExpired is returned when booking against a link whose
// expiration date is in the past
var ErrLinkExpired = errors.New("scheduling link has expired")

// ErrLinkExhausted is returned when booking against a link that has
// reached its maximum number of uses
var ErrLinkExhausted = errors.New("scheduling link has reached its maximum uses")

// ErrCredentialRefresh is returned when the credential provider cannot
// produce a usable bearer token. This is a session-level condition:
// booking proceeds without calendar sync.
var ErrCredentialRefresh = errors.New("failed to refresh access credential")

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// SideEffectError describes a failed post-commit side effect (calendar
// event creation or advisor notification). It is always caught at the
// booking workflow boundary and logged, never returned to the caller.
type SideEffectError struct {
	Kind   string // "calendar" or "email"
	Reason string
}

func (e SideEffectError) Error() string {
	return fmt.Sprintf("%s side effect failed: %s", e.Kind, e.Reason)
}
