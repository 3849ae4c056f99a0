package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/benjp009/loyeo/internal/ledger"
	"github.com/benjp009/loyeo/internal/messaging"
	sqsqueue "github.com/benjp009/loyeo/internal/queue/sqs"
)

type fakeSender struct {
	res     messaging.SendResult
	lastOTP messaging.OTPRequest
}

func (f *fakeSender) SendOTP(ctx context.Context, req messaging.OTPRequest) messaging.SendResult {
	f.lastOTP = req
	return f.res
}

func (f *fakeSender) SendWhatsAppTemplate(ctx context.Context, req messaging.TemplateRequest) messaging.SendResult {
	return f.res
}

func (f *fakeSender) SendSMS(ctx context.Context, req messaging.SMSRequest) messaging.SendResult {
	return f.res
}

type fakeQueue struct {
	jobs []sqsqueue.NotificationJob
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job sqsqueue.NotificationJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeEvents struct {
	ev    ledger.Event
	found bool
	err   error
}

func (f *fakeEvents) GetEvent(ctx context.Context, messageID string) (ledger.Event, bool, error) {
	return f.ev, f.found, f.err
}

func newTestRouter(api *API) *mux.Router {
	r := mux.NewRouter()
	api.Register(r)
	return r
}

func TestSendOTPSuccessResponse(t *testing.T) {
	sender := &fakeSender{res: messaging.SendResult{
		Success:            true,
		MessageID:          "SM1",
		Channel:            messaging.ChannelWhatsApp,
		Status:             messaging.StatusSent,
		EstimatedCostCents: 4,
	}}
	r := newTestRouter(&API{Engine: sender})

	body := `{"phone":"+33612345678","code":"482913"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/messages/otp", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["messageId"] != "SM1" || got["channel"] != "whatsapp" {
		t.Fatalf("unexpected body %v", got)
	}
	if got["estimatedCostCents"] != float64(4) {
		t.Fatalf("unexpected cost %v", got["estimatedCostCents"])
	}
	if sender.lastOTP.Phone != "+33612345678" || sender.lastOTP.Code != "482913" {
		t.Fatalf("request not decoded: %+v", sender.lastOTP)
	}
}

func TestSendOTPFailureIs400(t *testing.T) {
	sender := &fakeSender{res: messaging.SendResult{
		Success: false,
		Channel: messaging.ChannelWhatsApp,
		Error:   &messaging.SendError{Code: "INVALID_PHONE", Message: "invalid French phone number: 123"},
	}}
	r := newTestRouter(&API{Engine: sender})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/messages/otp", strings.NewReader(`{"phone":"123","code":"1"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var got map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	errObj, _ := got["error"].(map[string]any)
	if errObj["code"] != "INVALID_PHONE" {
		t.Fatalf("unexpected error body %v", got)
	}
}

func TestSendEndpointsRejectBadJSON(t *testing.T) {
	r := newTestRouter(&API{Engine: &fakeSender{}})
	for _, path := range []string{"/v1/messages/otp", "/v1/messages/template", "/v1/messages/sms"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader("{not json")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestGetEvent(t *testing.T) {
	events := &fakeEvents{
		ev: ledger.Event{
			MessageID:   "SM9",
			MessageType: "otp",
			Channel:     "sms",
			Status:      "delivered",
			CostCents:   5,
		},
		found: true,
	}
	r := newTestRouter(&API{Engine: &fakeSender{}, Events: events})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/messages/SM9", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["messageId"] != "SM9" || got["status"] != "delivered" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestGetEventNotFound(t *testing.T) {
	r := newTestRouter(&API{Engine: &fakeSender{}, Events: &fakeEvents{}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/messages/SMmissing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCampaignFansOut(t *testing.T) {
	q := &fakeQueue{}
	r := newTestRouter(&API{Engine: &fakeSender{}, Queue: q})

	body := `{"template":"marketing","variables":{"1":"Promo -20%"},"phones":["+33612345678","+33712345678"]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/campaigns/messages", strings.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var got map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["queued"] != float64(2) {
		t.Fatalf("expected queued=2, got %v", got)
	}
	if len(q.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(q.jobs))
	}
	if q.jobs[0].Template != "marketing" || q.jobs[0].Phone != "+33612345678" {
		t.Fatalf("unexpected job %+v", q.jobs[0])
	}
	if q.jobs[0].JobID == q.jobs[1].JobID || q.jobs[0].JobID == "" {
		t.Fatal("jobs need distinct non-empty ids")
	}
}

func TestCampaignValidation(t *testing.T) {
	r := newTestRouter(&API{Engine: &fakeSender{}, Queue: &fakeQueue{}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/campaigns/messages", strings.NewReader(`{"template":"","phones":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCampaignEnqueueFailure(t *testing.T) {
	r := newTestRouter(&API{Engine: &fakeSender{}, Queue: &fakeQueue{err: errors.New("sqs down")}})

	body := `{"template":"marketing","phones":["+33612345678"]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/campaigns/messages", strings.NewReader(body)))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}
