package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"testing"

	"github.com/benjp009/loyeo/internal/messaging"
)

const testAuthToken = "12345678901234567890123456789012"

// sign builds the signature the way the carrier documents it, written
// separately from VerifySignature so the two check each other.
func sign(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := fullURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func statusForm() url.Values {
	return url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"delivered"},
		"To":            {"whatsapp:+33612345678"},
		"From":          {"whatsapp:+15551234567"},
	}
}

func TestVerifySignatureAccepts(t *testing.T) {
	form := statusForm()
	u := "https://webhooks.loyeo.fr/webhooks/twilio/status"
	sig := sign(testAuthToken, u, form)

	if !VerifySignature(testAuthToken, u, sig, form) {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	form := statusForm()
	u := "https://webhooks.loyeo.fr/webhooks/twilio/status"
	sig := sign(testAuthToken, u, form)

	form.Set("MessageStatus", "failed")
	if VerifySignature(testAuthToken, u, sig, form) {
		t.Fatal("tampered form accepted")
	}
}

func TestVerifySignatureRejectsWrongURL(t *testing.T) {
	form := statusForm()
	sig := sign(testAuthToken, "https://webhooks.loyeo.fr/webhooks/twilio/status", form)

	if VerifySignature(testAuthToken, "https://evil.example.com/webhooks/twilio/status", sig, form) {
		t.Fatal("signature bound to a different URL accepted")
	}
}

func TestVerifySignatureFailsClosed(t *testing.T) {
	form := statusForm()
	u := "https://webhooks.loyeo.fr/webhooks/twilio/status"
	sig := sign(testAuthToken, u, form)

	if VerifySignature("", u, sig, form) {
		t.Fatal("empty auth token accepted")
	}
	if VerifySignature(testAuthToken, "", sig, form) {
		t.Fatal("empty URL accepted")
	}
	if VerifySignature(testAuthToken, u, "", form) {
		t.Fatal("empty signature accepted")
	}
}

func TestParseDeliveryWebhook(t *testing.T) {
	wh := ParseDeliveryWebhook(statusForm())
	if wh == nil {
		t.Fatal("expected parsed webhook")
	}
	if wh.MessageID != "SM123" {
		t.Fatalf("unexpected message id %q", wh.MessageID)
	}
	if wh.Status != messaging.StatusDelivered {
		t.Fatalf("unexpected status %q", wh.Status)
	}
	if wh.Channel != messaging.ChannelWhatsApp {
		t.Fatalf("expected whatsapp channel, got %q", wh.Channel)
	}
}

func TestParseDeliveryWebhookSMSChannel(t *testing.T) {
	form := url.Values{
		"MessageSid":    {"SM456"},
		"MessageStatus": {"sent"},
		"To":            {"+33612345678"},
		"From":          {"+15551234567"},
	}
	wh := ParseDeliveryWebhook(form)
	if wh == nil || wh.Channel != messaging.ChannelSMS {
		t.Fatalf("expected sms channel, got %+v", wh)
	}
}

func TestParseDeliveryWebhookMissingFields(t *testing.T) {
	if wh := ParseDeliveryWebhook(url.Values{"MessageStatus": {"sent"}}); wh != nil {
		t.Fatalf("expected nil without MessageSid, got %+v", wh)
	}
	if wh := ParseDeliveryWebhook(url.Values{"MessageSid": {"SM1"}}); wh != nil {
		t.Fatalf("expected nil without MessageStatus, got %+v", wh)
	}
}

func TestParseDeliveryWebhookErrorFields(t *testing.T) {
	form := statusForm()
	form.Set("MessageStatus", "undelivered")
	form.Set("ErrorCode", "63016")
	form.Set("ErrorMessage", "message undeliverable")

	wh := ParseDeliveryWebhook(form)
	if wh.Status != messaging.StatusUndelivered {
		t.Fatalf("unexpected status %q", wh.Status)
	}
	if wh.ErrorCode != "63016" || wh.ErrorMessage != "message undeliverable" {
		t.Fatalf("error fields not carried: %+v", wh)
	}
}

func TestMapStatus(t *testing.T) {
	cases := map[string]messaging.Status{
		"queued":      messaging.StatusQueued,
		"sending":     messaging.StatusQueued,
		"sent":        messaging.StatusSent,
		"delivered":   messaging.StatusDelivered,
		"read":        messaging.StatusRead,
		"failed":      messaging.StatusFailed,
		"undelivered": messaging.StatusUndelivered,
		"accepted":    messaging.StatusQueued,
		"":            messaging.StatusQueued,
	}
	for in, want := range cases {
		if got := mapStatus(in); got != want {
			t.Errorf("mapStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
