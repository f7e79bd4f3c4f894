// Package publish emits generated drafts to downstream systems once they are
// stored: a Kafka topic for consumers and a chat webhook for the reviewer.
package publish

import (
	"context"
	"creatorpulse/internal/config"
	"creatorpulse/internal/core"
	"creatorpulse/internal/logger"
	"errors"
	"fmt"
	"time"
)

// EventDraftCreated is the event type of a newly stored draft.
const EventDraftCreated = "draft.created"

// Event is the message body sent for a draft.
type Event struct {
	Type       string     `json:"type"`
	Draft      core.Draft `json:"draft"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// NewDraftEvent wraps a freshly created draft.
func NewDraftEvent(d core.Draft, now time.Time) Event {
	return Event{Type: EventDraftCreated, Draft: d, OccurredAt: now.UTC()}
}

// Publisher delivers draft events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Multi fans an event out to several publishers. Every publisher is tried;
// the returned error joins the individual failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the publishers enabled in the publish section. With nothing
// configured it returns Nop.
func New(cfg config.Publish) (Publisher, error) {
	var publishers Multi

	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := NewKafka(KafkaOptions{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		publishers = append(publishers, kp)
	}
	if cfg.Webhook.URL != "" {
		publishers = append(publishers, NewWebhook(WebhookOptions{
			URL:      cfg.Webhook.URL,
			Username: cfg.Webhook.Username,
			Timeout:  config.Duration(cfg.Webhook.Timeout, 10*time.Second),
		}))
	}

	switch len(publishers) {
	case 0:
		logger.Debug("No draft publishers configured")
		return Nop{}, nil
	case 1:
		return publishers[0], nil
	default:
		return publishers, nil
	}
}
