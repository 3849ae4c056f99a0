package sqsqueue

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// NotificationJob is one queued template send, executed by the worker.
type NotificationJob struct {
	JobID            string            `json:"jobId"`
	Phone            string            `json:"phone"`
	Template         string            `json:"template"`
	Variables        map[string]string `json:"vars,omitempty"`
	IsSessionMessage bool              `json:"isSessionMessage,omitempty"`
}

// Client is the slice of the SQS API this package uses. *sqs.Client
// satisfies it.
type Client interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, opts ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, opts ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type Producer struct {
	SQS      Client
	QueueURL string
}

func (p *Producer) Enqueue(ctx context.Context, job NotificationJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	// FIFO ordering per recipient; job id deduplicates producer retries.
	_, err = p.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               &p.QueueURL,
		MessageBody:            str(string(body)),
		MessageGroupId:         str(job.Phone),
		MessageDeduplicationId: str(job.JobID),
	})
	return err
}

func str(s string) *string { return &s }
