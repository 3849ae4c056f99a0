package worker

import (
	"context"
	"testing"

	"github.com/benjp009/loyeo/internal/messaging"
	sqsqueue "github.com/benjp009/loyeo/internal/queue/sqs"
)

type fakeSender struct {
	res  messaging.SendResult
	last messaging.TemplateRequest
}

func (f *fakeSender) SendWhatsAppTemplate(ctx context.Context, req messaging.TemplateRequest) messaging.SendResult {
	f.last = req
	return f.res
}

func job() sqsqueue.NotificationJob {
	return sqsqueue.NotificationJob{
		JobID:     "job-1",
		Phone:     "+33612345678",
		Template:  "marketing",
		Variables: map[string]string{"1": "Promo -20%"},
	}
}

func TestProcessSuccess(t *testing.T) {
	s := &fakeSender{res: messaging.SendResult{Success: true, MessageID: "SM1"}}
	p := &Processor{Engine: s}

	if err := p.Process(context.Background(), job()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if s.last.Phone != "+33612345678" || s.last.Template != "marketing" {
		t.Fatalf("request not mapped from job: %+v", s.last)
	}
}

func TestProcessNetworkFailureIsRetried(t *testing.T) {
	s := &fakeSender{res: messaging.SendResult{
		Success: false,
		Error:   &messaging.SendError{Code: messaging.ErrCodeNetwork, Message: "connection refused"},
	}}
	p := &Processor{Engine: s}

	if err := p.Process(context.Background(), job()); err == nil {
		t.Fatal("transport failures must surface so the queue redrives the job")
	}
}

func TestProcessTerminalRejectionIsNotRetried(t *testing.T) {
	cases := []string{"INVALID_PHONE", "TEMPLATE_NOT_CONFIGURED", "63001"}
	for _, code := range cases {
		s := &fakeSender{res: messaging.SendResult{
			Success: false,
			Error:   &messaging.SendError{Code: code, Message: "rejected"},
		}}
		p := &Processor{Engine: s}

		if err := p.Process(context.Background(), job()); err != nil {
			t.Errorf("code %s: retrying cannot help, expected nil, got %v", code, err)
		}
	}
}
