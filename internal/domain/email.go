package domain

import (
	"regexp"
	"strings"

	"notifier/internal/types"
)

// emailRegexp is a pragmatic email format check: local part, "@", and a
// domain with at least a two-letter TLD. It intentionally does not attempt
// full RFC 5322 compliance; deliverability is the transport's problem.
var emailRegexp = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// EmailAddress is a validated, normalized (trimmed, lowercased) email address.
// The zero value is invalid; construct through NewEmailAddress.
type EmailAddress struct {
	value string
}

// NewEmailAddress validates and normalizes the raw input. The stored value is
// always trimmed and lowercased so that equality checks are case-insensitive.
func NewEmailAddress(raw string) (EmailAddress, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return EmailAddress{}, types.NewAppError(types.ErrCodeValidationEmptyValue,
			"email address must not be empty", nil)
	}
	if !emailRegexp.MatchString(normalized) {
		return EmailAddress{}, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidEmail,
			"invalid email address format", nil, map[string]any{"value": normalized})
	}
	return EmailAddress{value: normalized}, nil
}

// Value returns the normalized address.
func (e EmailAddress) Value() string { return e.value }

// String implements fmt.Stringer.
func (e EmailAddress) String() string { return e.value }

// IsZero reports whether the address was not constructed through NewEmailAddress.
func (e EmailAddress) IsZero() bool { return e.value == "" }

// LocalPart returns everything before the first "@".
func (e EmailAddress) LocalPart() string {
	local, _, _ := strings.Cut(e.value, "@")
	return local
}

// Domain returns everything after the first "@".
func (e EmailAddress) Domain() string {
	_, domain, _ := strings.Cut(e.value, "@")
	return domain
}
