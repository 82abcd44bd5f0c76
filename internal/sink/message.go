package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/pkg/logger"
)

const messageVersion = 1

var sinkLog = logger.Component("sink")

// Message is the queue payload of one recorded conversion event.
type Message struct {
	Version     int                    `json:"version"`
	Event       domain.ConversionEvent `json:"event"`
	PublishedAt time.Time              `json:"published_at"`
}

func encode(evt domain.ConversionEvent, now time.Time) ([]byte, error) {
	b, err := json.Marshal(Message{Version: messageVersion, Event: evt, PublishedAt: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return b, nil
}

func decode(body string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Version != messageVersion {
		return Message{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	if m.Event.EventType == "" {
		return Message{}, ErrEmptyEvent
	}
	return m, nil
}

// Handler processes one event taken off the queue.
type Handler interface {
	Handle(ctx context.Context, evt domain.ConversionEvent) error
}
