// Package messaging moves receipt jobs from the storefront to the worker,
// over Kafka, RabbitMQ or in-process.
package messaging

import "context"

// Handler processes one message payload. A returned error stops the
// consumer without acknowledging the message.
type Handler func(ctx context.Context, payload []byte) error

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
