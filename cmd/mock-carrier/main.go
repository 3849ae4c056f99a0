// mock-carrier is a local stand-in for the Twilio Messages API. It accepts
// message creation posts, hands back a SID, and optionally delivers signed
// status callbacks to the configured webhook URL, so the full send + webhook
// loop can be exercised without carrier credentials.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
	"github.com/oklog/ulid/v2"

	"github.com/benjp009/loyeo/internal/logging"
)

type mockConfig struct {
	Port      string `envconfig:"PORT" default:"4010"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	AuthToken string `envconfig:"TWILIO_AUTH_TOKEN" default:"mock_token"`

	// Error code to return instead of accepting sends; 0 accepts everything.
	// Set to 63001 to exercise the OTP SMS fallback against WhatsApp sends.
	WhatsAppErrorCode int `envconfig:"MOCK_WHATSAPP_ERROR_CODE" default:"0"`

	// Status callbacks. Disabled when the send carries no StatusCallback.
	WebhookDelay  time.Duration `envconfig:"MOCK_WEBHOOK_DELAY" default:"300ms"`
	FinalStatus   string        `envconfig:"MOCK_FINAL_STATUS" default:"delivered"`
	CallbackRetry int           `envconfig:"MOCK_CALLBACK_RETRIES" default:"3"`
}

type server struct {
	cfg  mockConfig
	http *http.Client
}

func main() {
	var cfg mockConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	logging.Init("mock-carrier", cfg.LogFormat)

	s := &server{cfg: cfg, http: &http.Client{Timeout: 5 * time.Second}}

	r := mux.NewRouter()
	r.HandleFunc("/2010-04-01/Accounts/{sid}/Messages.json", s.handleCreateMessage).
		Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	slog.Info("mock carrier listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("mock carrier failed", "err", err)
		os.Exit(1)
	}
}

func (s *server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	to := r.PostForm.Get("To")
	from := r.PostForm.Get("From")
	callback := r.PostForm.Get("StatusCallback")

	if s.cfg.WhatsAppErrorCode != 0 && strings.HasPrefix(to, "whatsapp:") {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    s.cfg.WhatsAppErrorCode,
			"message": "mock carrier: whatsapp rejected",
			"status":  http.StatusBadRequest,
		})
		return
	}

	sid := "SM" + ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
	slog.Info("message accepted", "sid", sid, "to", to, "callback", callback != "")

	if callback != "" {
		go s.deliverCallbacks(callback, sid, from, to)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"sid":    sid,
		"status": "queued",
	})
}

// deliverCallbacks posts sent then the final status, signed the way the real
// carrier signs, retrying each on non-2xx responses.
func (s *server) deliverCallbacks(callbackURL, sid, from, to string) {
	for _, status := range []string{"sent", s.cfg.FinalStatus} {
		time.Sleep(s.cfg.WebhookDelay)

		form := url.Values{}
		form.Set("MessageSid", sid)
		form.Set("MessageStatus", status)
		form.Set("From", from)
		form.Set("To", to)

		for attempt := 0; attempt <= s.cfg.CallbackRetry; attempt++ {
			req, err := http.NewRequest(http.MethodPost, callbackURL, strings.NewReader(form.Encode()))
			if err != nil {
				slog.Error("callback request build failed", "err", err)
				return
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("X-Twilio-Signature", sign(s.cfg.AuthToken, callbackURL, form))

			resp, err := s.http.Do(req)
			if err != nil {
				slog.Warn("callback delivery failed", "err", err, "sid", sid, "attempt", attempt)
				time.Sleep(500 * time.Millisecond)
				continue
			}
			resp.Body.Close()
			if resp.StatusCode < 300 {
				break
			}
			slog.Warn("callback rejected", "status", resp.StatusCode, "sid", sid, "attempt", attempt)
			time.Sleep(500 * time.Millisecond)
		}
	}
}

func sign(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
