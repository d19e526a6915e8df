package types

// Channel identifies a notification delivery medium.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
)

// AllChannels lists every supported delivery channel in a stable order. It is
// surfaced in validation error details so clients can discover the allowed
// values.
var AllChannels = []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelWebhook}

// Valid returns true if the channel is one of the supported delivery media.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelWebhook:
		return true
	}
	return false
}

// Priority is the business tier controlling how many delivery retries a
// notification is entitled to before it is abandoned.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid returns true if the priority is a recognized tier.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// NotificationStatus represents the lifecycle state of a Notification.
// Pending is the initial state; Sent, Failed, and Cancelled are terminal
// except for the Failed -> Pending return path taken by a retry.
type NotificationStatus string

const (
	StatusPending   NotificationStatus = "pending"
	StatusSent      NotificationStatus = "sent"
	StatusFailed    NotificationStatus = "failed"
	StatusCancelled NotificationStatus = "cancelled"
)

// Valid returns true if the status is a recognized lifecycle state.
func (s NotificationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// AttemptStatus represents the state of a single delivery attempt.
// An attempt starts in progress and completes exactly once.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSuccess    AttemptStatus = "success"
	AttemptFailed     AttemptStatus = "failed"
)
