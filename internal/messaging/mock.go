package messaging

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"
)

// MockProvider logs sends without calling any carrier. Used by the factory
// when MESSAGING_PROVIDER=mock and by tests.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (*MockProvider) Name() string { return "mock" }

func (*MockProvider) SendWhatsApp(ctx context.Context, msg WhatsAppMessage) (ProviderMessage, error) {
	slog.Info("mock whatsapp send", "to", msg.To.E164(), "content_sid", msg.ContentSID)
	return ProviderMessage{ID: mockSID(), Status: StatusSent}, nil
}

func (*MockProvider) SendSMS(ctx context.Context, msg SMSMessage) (ProviderMessage, error) {
	slog.Info("mock sms send", "to", msg.To.E164())
	return ProviderMessage{ID: mockSID(), Status: StatusSent}, nil
}

func (*MockProvider) ParseDeliveryWebhook(form url.Values) *DeliveryStatusWebhook {
	return nil
}

func (*MockProvider) VerifyWebhookSignature(signature, fullURL string, form url.Values) bool {
	return true
}

func mockSID() string {
	t := time.Now().UTC()
	return "mock_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
