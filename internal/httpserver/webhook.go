package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/benjp009/loyeo/internal/cache"
	"github.com/benjp009/loyeo/internal/ledger"
	"github.com/benjp009/loyeo/internal/messaging"
	"github.com/benjp009/loyeo/internal/observability"
)

type WebhookStore interface {
	UpdateStatus(ctx context.Context, in ledger.StatusUpdate) (bool, error)
}

// WebhookProvider is the slice of messaging.Provider the webhook needs.
type WebhookProvider interface {
	ParseDeliveryWebhook(form url.Values) *messaging.DeliveryStatusWebhook
	VerifyWebhookSignature(signature, fullURL string, form url.Values) bool
}

type Webhook struct {
	Provider WebhookProvider
	Store    WebhookStore
	// Dedup is optional; without it duplicate deliveries fall back to the
	// ledger's monotonic update, which is last-write-wins safe.
	Dedup     cache.DeliveryDedup
	PublicURL string
}

func (wh *Webhook) Register(r *mux.Router) {
	r.HandleFunc("/v1/webhooks/twilio/status", wh.handleStatus).Methods(http.MethodPost)
}

func (wh *Webhook) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrBadForm, http.StatusBadRequest)
		return
	}

	// Unverified updates must never reach the ledger.
	sig := r.Header.Get("X-Twilio-Signature")
	if !wh.Provider.VerifyWebhookSignature(sig, wh.PublicURL, r.PostForm) {
		slog.Warn("webhook rejected: invalid signature", "signature_present", sig != "")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": ErrInvalidSignature})
		return
	}

	ev := wh.Provider.ParseDeliveryWebhook(r.PostForm)
	if ev == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ErrMissingSid})
		return
	}

	observability.WebhookEvents.WithLabelValues(string(ev.Status)).Inc()

	if wh.Dedup != nil {
		seen, err := wh.Dedup.Seen(r.Context(), ev.MessageID, string(ev.Status))
		if err != nil {
			slog.Warn("webhook dedup lookup failed", "err", err, "message_id", ev.MessageID)
		} else if seen {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": ev.Status})
			return
		}
	}

	updated, err := wh.Store.UpdateStatus(r.Context(), ledger.StatusUpdate{
		MessageID:    ev.MessageID,
		Status:       string(ev.Status),
		StatusRank:   ev.Status.Rank(),
		ErrorCode:    ev.ErrorCode,
		ErrorMessage: ev.ErrorMessage,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		slog.Error("webhook ledger update failed", "err", err,
			"message_id", ev.MessageID, "status", ev.Status)
		// 500 signals the carrier to re-deliver this webhook.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "database update failed",
			"retry": true,
		})
		return
	}
	if !updated {
		slog.Info("webhook matched no ledger row or was stale",
			"message_id", ev.MessageID, "status", ev.Status)
	}

	if wh.Dedup != nil && updated {
		if err := wh.Dedup.Mark(r.Context(), ev.MessageID, string(ev.Status)); err != nil {
			slog.Warn("webhook dedup mark failed", "err", err, "message_id", ev.MessageID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": ev.Status})
}
