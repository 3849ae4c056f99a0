package messaging

import (
	"context"
	"net/url"
)

// Provider is the carrier-facing contract. Concrete implementations live in
// internal/providers; business policy (OTP fallback, session rules) lives in
// the Engine so it stays provider-agnostic.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	SendWhatsApp(ctx context.Context, msg WhatsAppMessage) (ProviderMessage, error)
	SendSMS(ctx context.Context, msg SMSMessage) (ProviderMessage, error)

	// ParseDeliveryWebhook returns nil when the payload does not match the
	// provider's delivery-status shape.
	ParseDeliveryWebhook(form url.Values) *DeliveryStatusWebhook

	// VerifyWebhookSignature reports whether signature is a valid keyed hash
	// of fullURL plus the canonicalized form parameters.
	VerifyWebhookSignature(signature, fullURL string, form url.Values) bool
}
