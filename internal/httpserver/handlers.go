package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/benjp009/loyeo/internal/ledger"
	"github.com/benjp009/loyeo/internal/messaging"
	"github.com/benjp009/loyeo/internal/observability"
	sqsqueue "github.com/benjp009/loyeo/internal/queue/sqs"
)

type Sender interface {
	SendOTP(ctx context.Context, req messaging.OTPRequest) messaging.SendResult
	SendWhatsAppTemplate(ctx context.Context, req messaging.TemplateRequest) messaging.SendResult
	SendSMS(ctx context.Context, req messaging.SMSRequest) messaging.SendResult
}

type CampaignQueue interface {
	Enqueue(ctx context.Context, job sqsqueue.NotificationJob) error
}

type EventStore interface {
	GetEvent(ctx context.Context, messageID string) (ledger.Event, bool, error)
}

type API struct {
	Engine Sender
	Queue  CampaignQueue
	Events EventStore
}

func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/v1/messages/otp", a.handleSendOTP).Methods(http.MethodPost)
	r.HandleFunc("/v1/messages/template", a.handleSendTemplate).Methods(http.MethodPost)
	r.HandleFunc("/v1/messages/sms", a.handleSendSMS).Methods(http.MethodPost)
	r.HandleFunc("/v1/messages/{id}", a.handleGetEvent).Methods(http.MethodGet)
	r.HandleFunc("/v1/campaigns/messages", a.handleCampaign).Methods(http.MethodPost)
}

func (a *API) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req messaging.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	writeSendResult(w, a.Engine.SendOTP(r.Context(), req))
}

func (a *API) handleSendTemplate(w http.ResponseWriter, r *http.Request) {
	var req messaging.TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	writeSendResult(w, a.Engine.SendWhatsAppTemplate(r.Context(), req))
}

func (a *API) handleSendSMS(w http.ResponseWriter, r *http.Request) {
	var req messaging.SMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	writeSendResult(w, a.Engine.SendSMS(r.Context(), req))
}

func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, ErrMissingID, http.StatusBadRequest)
		return
	}
	ev, found, err := a.Events.GetEvent(r.Context(), id)
	if err != nil {
		slog.Error("get messaging event failed", "err", err, "message_id", id)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messageId": ev.MessageID,
		"type":      ev.MessageType,
		"channel":   ev.Channel,
		"status":    ev.Status,
		"costCents": ev.CostCents,
		"errorCode": ev.ErrorCode,
		"updatedAt": ev.UpdatedAt,
	})
}

type CampaignRequest struct {
	Template         string            `json:"template"`
	Variables        map[string]string `json:"variables"`
	IsSessionMessage bool              `json:"isSessionMessage,omitempty"`
	Phones           []string          `json:"phones"`
}

// handleCampaign fans a template send out to many recipients through the
// notification queue; the worker performs the actual carrier calls.
func (a *API) handleCampaign(w http.ResponseWriter, r *http.Request) {
	var req CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if req.Template == "" || len(req.Phones) == 0 {
		http.Error(w, "missing template or phones", http.StatusBadRequest)
		return
	}

	queued := 0
	for _, p := range req.Phones {
		job := sqsqueue.NotificationJob{
			JobID:            uuid.NewString(),
			Phone:            p,
			Template:         req.Template,
			Variables:        req.Variables,
			IsSessionMessage: req.IsSessionMessage,
		}
		if err := a.Queue.Enqueue(r.Context(), job); err != nil {
			observability.Enqueues.WithLabelValues("error").Inc()
			slog.Error("campaign enqueue failed", "err", err, "template", req.Template)
			http.Error(w, ErrDependency, http.StatusBadGateway)
			return
		}
		observability.Enqueues.WithLabelValues("ok").Inc()
		queued++
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"queued": queued})
}

func writeSendResult(w http.ResponseWriter, res messaging.SendResult) {
	code := http.StatusOK
	if !res.Success {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, res)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
