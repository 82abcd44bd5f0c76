package sink

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

// SQSAPI is the part of *sqs.Client the publisher and consumer use.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Publisher sends recorded events to SQS without blocking the request that
// recorded them.
type Publisher struct {
	client   SQSAPI
	queueURL string
	timeout  time.Duration
	now      func() time.Time
	wg       sync.WaitGroup
}

var _ tracking.EventSink = (*Publisher)(nil)

// NewPublisher creates a publisher for queueURL.
func NewPublisher(client SQSAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, timeout: 5 * time.Second, now: time.Now}
}

// Publish encodes evt and sends it in the background. Failures are logged.
func (p *Publisher) Publish(_ context.Context, evt domain.ConversionEvent) {
	body, err := encode(evt, p.now())
	if err != nil {
		sinkLog.Error("event not published", "event_id", evt.ID, "err", err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// detached from the request, which may finish first
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"event_type": {DataType: aws.String("String"), StringValue: aws.String(string(evt.EventType))},
			},
		})
		if err != nil {
			sinkLog.Error("sqs publish failed", "event_id", evt.ID, "err", err)
		}
	}()
}

// Wait blocks until in-flight sends finish.
func (p *Publisher) Wait() { p.wg.Wait() }

// Local hands events straight to a Handler in the background, for
// deployments without a queue.
type Local struct {
	handler Handler
	timeout time.Duration
	wg      sync.WaitGroup
}

var _ tracking.EventSink = (*Local)(nil)

// NewLocal creates an in-process sink over h.
func NewLocal(h Handler) *Local {
	return &Local{handler: h, timeout: 30 * time.Second}
}

func (l *Local) Publish(_ context.Context, evt domain.ConversionEvent) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.handler.Handle(ctx, evt); err != nil {
			sinkLog.Warn("local dispatch failed", "event_id", evt.ID, "err", err)
		}
	}()
}

// Wait blocks until in-flight dispatches finish.
func (l *Local) Wait() { l.wg.Wait() }
