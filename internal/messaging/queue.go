package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter                 = otel.Meter("messaging")
	backgroundFailures, _ = meter.Int64Counter("background_publish_failures_total",
		metric.WithDescription("Background jobs that could not be published"))
)

// BackgroundQueue publishes events on their own goroutine. Delivery is at
// most once: a failed publish is logged and dropped, never retried and never
// reported to the submitter.
type BackgroundQueue struct {
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewBackgroundQueue(publisher Publisher, timeout time.Duration, logger *slog.Logger) *BackgroundQueue {
	return &BackgroundQueue{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
	}
}

// Submit returns immediately. The publish keeps the trace of ctx but not its
// cancellation, so it outlives the request that submitted it.
func (q *BackgroundQueue) Submit(ctx context.Context, key string, event any) {
	ctx = context.WithoutCancel(ctx)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, q.timeout)
		defer cancel()

		if err := q.publisher.Publish(ctx, key, event); err != nil {
			backgroundFailures.Add(ctx, 1)
			q.logger.Error("background publish failed", "error", err, "key", key)
			return
		}
		q.logger.Debug("background publish done", "key", key)
	}()
}

// Drain waits for in-flight publishes or until ctx is done.
func (q *BackgroundQueue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
