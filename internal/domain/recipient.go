package domain

import (
	"net/url"
	"strings"

	"notifier/internal/types"
)

// Recipient binds a delivery channel to a value that has been validated and
// normalized for that channel: a lowercased email address, an E.164 phone
// number, a trimmed opaque push token, or a canonicalized http(s) URL.
//
// Recipients are immutable and compare by (value, channel). They can only be
// constructed through the channel-specific factories or NewRecipient; the
// zero value is invalid and reports IsZero() == true.
type Recipient struct {
	value   string
	channel types.Channel
}

// RecipientForEmail validates raw as an email address and wraps it.
func RecipientForEmail(raw string) (Recipient, error) {
	addr, err := NewEmailAddress(raw)
	if err != nil {
		return Recipient{}, err
	}
	return Recipient{value: addr.Value(), channel: types.ChannelEmail}, nil
}

// RecipientForSMS validates raw as an E.164 phone number and wraps it.
func RecipientForSMS(raw string) (Recipient, error) {
	phone, err := NewPhoneNumber(raw)
	if err != nil {
		return Recipient{}, err
	}
	return Recipient{value: phone.Value(), channel: types.ChannelSMS}, nil
}

// RecipientForPush wraps an opaque push token. The token format is
// provider-specific, so the only requirement is that it is non-blank.
func RecipientForPush(raw string) (Recipient, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return Recipient{}, types.NewAppError(types.ErrCodeValidationEmptyValue,
			"push token must not be empty", nil)
	}
	return Recipient{value: token, channel: types.ChannelPush}, nil
}

// RecipientForWebhook validates raw as an absolute http or https URL and
// stores the canonicalized form.
func RecipientForWebhook(raw string) (Recipient, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Recipient{}, types.NewAppError(types.ErrCodeValidationEmptyValue,
			"webhook URL must not be empty", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return Recipient{}, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidWebhook,
			"webhook URL must be an absolute URI", err, map[string]any{"value": trimmed})
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Recipient{}, types.NewAppErrorWithDetails(types.ErrCodeValidationUnsupportedScheme,
			"webhook URL scheme must be http or https", nil,
			map[string]any{"scheme": parsed.Scheme})
	}
	return Recipient{value: parsed.String(), channel: types.ChannelWebhook}, nil
}

// NewRecipient dispatches to the channel-specific factory for the given
// channel. An unrecognized channel is rejected outright.
func NewRecipient(raw string, channel types.Channel) (Recipient, error) {
	switch channel {
	case types.ChannelEmail:
		return RecipientForEmail(raw)
	case types.ChannelSMS:
		return RecipientForSMS(raw)
	case types.ChannelPush:
		return RecipientForPush(raw)
	case types.ChannelWebhook:
		return RecipientForWebhook(raw)
	default:
		return Recipient{}, types.NewAppErrorWithDetails(types.ErrCodeValidationUnknownChannel,
			"unknown delivery channel", nil, map[string]any{"channel": string(channel)})
	}
}

// Value returns the validated, normalized recipient value.
func (r Recipient) Value() string { return r.value }

// Channel returns the delivery channel the value was validated for.
func (r Recipient) Channel() types.Channel { return r.channel }

// Equals reports value-object equality by (value, channel).
func (r Recipient) Equals(other Recipient) bool {
	return r.value == other.value && r.channel == other.channel
}

// IsZero reports whether the recipient was not constructed through a factory.
func (r Recipient) IsZero() bool { return r.value == "" }

// String implements fmt.Stringer.
func (r Recipient) String() string {
	return string(r.channel) + ":" + r.value
}
