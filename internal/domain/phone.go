package domain

import (
	"regexp"
	"strings"

	"notifier/internal/types"
)

// e164Regexp matches E.164 numbers: "+" followed by 7 to 15 digits with a
// non-zero leading digit.
var e164Regexp = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// phoneStripper removes the separator characters tolerated on input
// (spaces, dashes, parentheses) before validation.
var phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// singleDigitCountryCodes are the ITU country codes that consist of exactly
// one digit. Every other code is reported as two digits, which is a pragmatic
// default: three-digit codes exist, and disambiguating them requires a full
// numbering-plan table that this service deliberately does not carry.
var singleDigitCountryCodes = map[byte]bool{'1': true, '7': true}

// PhoneNumber is a validated phone number stored in E.164 format.
// The zero value is invalid; construct through NewPhoneNumber.
type PhoneNumber struct {
	value string
}

// NewPhoneNumber normalizes the raw input by stripping spaces, dashes, and
// parentheses, then validates the result against E.164.
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	normalized := phoneStripper.Replace(strings.TrimSpace(raw))
	if normalized == "" {
		return PhoneNumber{}, types.NewAppError(types.ErrCodeValidationEmptyValue,
			"phone number must not be empty", nil)
	}
	if !e164Regexp.MatchString(normalized) {
		return PhoneNumber{}, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidPhone,
			"phone number must be in E.164 format (+ followed by 7-15 digits)", nil,
			map[string]any{"value": normalized})
	}
	return PhoneNumber{value: normalized}, nil
}

// Value returns the E.164 formatted number, including the leading "+".
func (p PhoneNumber) Value() string { return p.value }

// String implements fmt.Stringer.
func (p PhoneNumber) String() string { return p.value }

// IsZero reports whether the number was not constructed through NewPhoneNumber.
func (p PhoneNumber) IsZero() bool { return p.value == "" }

// CountryCode returns the leading country code digits, without the "+".
// Single-digit codes (1, 7) are detected exactly; all other numbers report
// a two-digit code. See the package notes on the limits of this heuristic.
func (p PhoneNumber) CountryCode() string {
	digits := p.value[1:]
	if singleDigitCountryCodes[digits[0]] {
		return digits[:1]
	}
	return digits[:2]
}

// NationalNumber returns the subscriber number after the country code.
func (p PhoneNumber) NationalNumber() string {
	digits := p.value[1:]
	return digits[len(p.CountryCode()):]
}
