package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/benjp009/loyeo/internal/messaging"
)

// mapStatus maps the carrier status vocabulary onto ours. Unknown statuses
// stay "queued": treat unknown as still in flight, never as a terminal state.
func mapStatus(s string) messaging.Status {
	switch s {
	case "queued", "sending":
		return messaging.StatusQueued
	case "sent":
		return messaging.StatusSent
	case "delivered":
		return messaging.StatusDelivered
	case "read":
		return messaging.StatusRead
	case "failed":
		return messaging.StatusFailed
	case "undelivered":
		return messaging.StatusUndelivered
	}
	return messaging.StatusQueued
}

// VerifySignature checks the X-Twilio-Signature of a status callback:
// HMAC-SHA1 over the exact callback URL followed by the form parameters
// sorted by key and concatenated as key+value, base64 encoded.
// Missing inputs fail closed.
func VerifySignature(authToken, fullURL, provided string, form url.Values) bool {
	if authToken == "" || fullURL == "" || provided == "" {
		slog.Warn("webhook signature verification missing inputs",
			"have_token", authToken != "",
			"have_url", fullURL != "",
			"have_signature", provided != "",
		)
		return false
	}

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		// Twilio uses the first value for each key.
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}

// ParseDeliveryWebhook maps a status callback form onto our webhook type.
// Returns nil when the mandatory MessageSid/MessageStatus pair is absent.
func ParseDeliveryWebhook(form url.Values) *messaging.DeliveryStatusWebhook {
	sid := form.Get("MessageSid")
	status := form.Get("MessageStatus")
	if sid == "" || status == "" {
		return nil
	}

	channel := messaging.ChannelSMS
	if strings.HasPrefix(form.Get("From"), "whatsapp:") || strings.HasPrefix(form.Get("To"), "whatsapp:") {
		channel = messaging.ChannelWhatsApp
	}

	return &messaging.DeliveryStatusWebhook{
		MessageID:    sid,
		Status:       mapStatus(status),
		Channel:      channel,
		ErrorCode:    form.Get("ErrorCode"),
		ErrorMessage: form.Get("ErrorMessage"),
		Timestamp:    time.Now().UTC(),
	}
}
