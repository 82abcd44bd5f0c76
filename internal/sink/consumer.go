package sink

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Consumer long-polls the queue and hands each event to a Handler. A message
// is deleted once handled, or when it can never be handled (undecodable);
// otherwise it stays on the queue for redelivery.
type Consumer struct {
	client      SQSAPI
	queueURL    string
	handler     Handler
	batch       int32
	waitSeconds int32
	errBackoff  time.Duration
	done        chan struct{}
	stopOnce    sync.Once
}

// NewConsumer creates a consumer of queueURL.
func NewConsumer(client SQSAPI, queueURL string, h Handler) *Consumer {
	return &Consumer{
		client:      client,
		queueURL:    queueURL,
		handler:     h,
		batch:       10,
		waitSeconds: 20,
		errBackoff:  5 * time.Second,
		done:        make(chan struct{}),
	}
}

// Run polls until ctx is done or Stop is called.
func (c *Consumer) Run(ctx context.Context) {
	sinkLog.Info("sqs consumer started", "queue", c.queueURL)
	defer sinkLog.Info("sqs consumer stopped", "queue", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			sinkLog.Warn("sqs receive failed", "err", err)
			select {
			case <-time.After(c.errBackoff):
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}
}

// Stop ends Run after the current poll.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Poll receives one batch and processes it. It returns the number of
// messages handled successfully.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.batch,
		WaitTimeSeconds:     c.waitSeconds,
	})
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, msg := range out.Messages {
		m, err := decode(aws.ToString(msg.Body))
		if err != nil {
			sinkLog.Warn("dropping bad message", "message_id", aws.ToString(msg.MessageId), "err", err)
			c.delete(ctx, msg.ReceiptHandle)
			continue
		}
		if err := c.handler.Handle(ctx, m.Event); err != nil {
			sinkLog.Warn("event handling failed, leaving on queue", "event_id", m.Event.ID, "event_type", m.Event.EventType, "err", err)
			continue
		}
		c.delete(ctx, msg.ReceiptHandle)
		handled++
	}
	return handled, nil
}

func (c *Consumer) delete(ctx context.Context, handle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		sinkLog.Warn("sqs delete failed", "err", err)
	}
}
