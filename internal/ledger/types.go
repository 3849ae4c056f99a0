package ledger

import "time"

// Event is one row of the delivery ledger, keyed by the provider message id.
// The raw recipient phone never appears here, only its salted hash.
type Event struct {
	MessageID    string
	MessageType  string // otp | template | sms
	Channel      string
	Status       string
	PhoneHash    string
	CostCents    int
	ErrorCode    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatusUpdate is a webhook-driven status transition for an existing event.
type StatusUpdate struct {
	MessageID    string
	Status       string
	StatusRank   int
	ErrorCode    string
	ErrorMessage string
	Now          time.Time
}
