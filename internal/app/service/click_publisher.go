package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/ShortcutURL/internal/app/model"
)

// ClickPublisher publishes click events to NATS JetStream without waiting
// for the stream acknowledgement.
type ClickPublisher struct {
	js      nats.JetStreamContext
	subject string
}

// NewClickPublisher creates a new click event publisher
func NewClickPublisher(js nats.JetStreamContext) *ClickPublisher {
	return &ClickPublisher{js: js, subject: model.ClickStreamSubject}
}

// Publish enqueues event on the click stream subject.
func (p *ClickPublisher) Publish(ctx context.Context, event model.ClickEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal click event: %w", err)
	}

	if _, err := p.js.PublishAsync(p.subject, data, nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("publish click event: %w", err)
	}
	return nil
}
