package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/benjp009/loyeo/internal/messaging"
	sqsqueue "github.com/benjp009/loyeo/internal/queue/sqs"
)

type Sender interface {
	SendWhatsAppTemplate(ctx context.Context, req messaging.TemplateRequest) messaging.SendResult
}

// Processor executes queued notification jobs through the delivery engine.
type Processor struct {
	Engine Sender
}

// Process returns an error only for transport-level failures, where delivery
// could not be confirmed and SQS redrive should retry the job. Input and
// carrier rejections are terminal: retrying cannot fix a bad phone number or
// an unconfigured template.
func (p *Processor) Process(ctx context.Context, job sqsqueue.NotificationJob) error {
	res := p.Engine.SendWhatsAppTemplate(ctx, messaging.TemplateRequest{
		Phone:            job.Phone,
		Template:         job.Template,
		Variables:        job.Variables,
		IsSessionMessage: job.IsSessionMessage,
	})
	if res.Success {
		return nil
	}

	if res.Error != nil && res.Error.Code == messaging.ErrCodeNetwork {
		return errors.New("carrier unreachable: " + res.Error.Message)
	}

	code := ""
	if res.Error != nil {
		code = res.Error.Code
	}
	slog.Warn("notification job rejected", "job_id", job.JobID,
		"template", job.Template, "error_code", code)
	return nil
}
