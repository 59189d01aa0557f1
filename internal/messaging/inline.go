package messaging

import (
	"context"
	"encoding/json"
)

// InlinePublisher hands events straight to a handler in the same process.
// It is used when no broker is configured.
type InlinePublisher struct {
	handler Handler
}

func NewInlinePublisher(handler Handler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

func (p *InlinePublisher) Publish(ctx context.Context, _ string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.handler(ctx, data)
}
