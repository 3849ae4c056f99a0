package messaging

import (
	"fmt"
	"time"

	"github.com/benjp009/loyeo/internal/phone"
)

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

type Status string

const (
	StatusQueued      Status = "queued"
	StatusSent        Status = "sent"
	StatusDelivered   Status = "delivered"
	StatusRead        Status = "read"
	StatusFailed      Status = "failed"
	StatusUndelivered Status = "undelivered"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusRead, StatusFailed, StatusUndelivered:
		return true
	}
	return false
}

// Rank orders the happy-path progression queued -> sent -> delivered -> read.
// Failure states rank above everything so a late "failed" webhook still lands.
func (s Status) Rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	case StatusFailed, StatusUndelivered:
		return 4
	}
	return 0
}

type SendError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendResult is the uniform outcome of one send attempt. Exactly one of
// MessageID (success) and Error (failure) is set.
type SendResult struct {
	Success            bool       `json:"success"`
	MessageID          string     `json:"messageId"`
	Channel            Channel    `json:"channel"`
	Status             Status     `json:"status"`
	Error              *SendError `json:"error,omitempty"`
	EstimatedCostCents int        `json:"estimatedCostCents"`
}

func failure(ch Channel, code, message string) SendResult {
	return SendResult{
		Success: false,
		Channel: ch,
		Status:  StatusFailed,
		Error:   &SendError{Code: code, Message: message},
	}
}

// CarrierError is a structured error reported by the carrier API.
// Code is the carrier-native numeric error code (e.g. 63001).
type CarrierError struct {
	Code    int
	Message string
}

func (e *CarrierError) Error() string {
	return fmt.Sprintf("carrier error %d: %s", e.Code, e.Message)
}

type OTPRequest struct {
	Phone          string `json:"phone"`
	Code           string `json:"code"`
	PreferWhatsApp *bool  `json:"preferWhatsApp,omitempty"` // default true
}

type TemplateRequest struct {
	Phone            string            `json:"phone"`
	Template         string            `json:"template"`
	Variables        map[string]string `json:"variables"`
	IsSessionMessage bool              `json:"isSessionMessage,omitempty"`
}

type SMSRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// DeliveryStatusWebhook is a parsed, signature-verified carrier callback.
type DeliveryStatusWebhook struct {
	MessageID    string
	Status       Status
	Channel      Channel
	ErrorCode    string
	ErrorMessage string
	Timestamp    time.Time
}

// WhatsAppMessage is one outbound WhatsApp send. Either Body (free-form,
// session window only) or ContentSID+Variables (pre-approved template) is set.
type WhatsAppMessage struct {
	To         phone.Number
	Body       string
	ContentSID string
	Variables  map[string]string
}

type SMSMessage struct {
	To   phone.Number
	Body string
}

// ProviderMessage is the carrier's acknowledgement of an accepted send.
type ProviderMessage struct {
	ID     string
	Status Status
}
