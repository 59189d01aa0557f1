package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// AMQPQueue is a durable RabbitMQ queue reached through the default
// exchange. It can both publish and consume.
type AMQPQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func DialAMQP(url, queue string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": "classic"},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare queue")
	}

	return &AMQPQueue{conn: conn, channel: ch, queue: queue}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "send "+q.queue,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(q.queue),
			semconv.MessagingMessageID(key),
		),
	)
	defer span.End()

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, AMQPCarrier(headers))

	err = q.channel.PublishWithContext(ctx,
		"",      // default exchange
		q.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    key,
			Timestamp:    time.Now(),
			Headers:      headers,
			Body:         data,
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Consume delivers messages to handler one at a time, acking each after
// handler returns nil. A handler error nacks the message without requeue
// and stops the consumer.
func (q *AMQPQueue) Consume(ctx context.Context, consumerTag string, handler Handler) error {
	if err := q.channel.Qos(1, 0, false); err != nil {
		return errors.Wrap(err, "set qos")
	}

	deliveries, err := q.channel.Consume(
		q.queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "register consumer")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			if err := q.process(ctx, d, handler); err != nil {
				_ = d.Nack(false, false)
				return err
			}
			if err := d.Ack(false); err != nil {
				return errors.Wrap(err, "ack")
			}
		}
	}
}

func (q *AMQPQueue) process(ctx context.Context, d amqp.Delivery, handler Handler) error {
	if d.Headers == nil {
		d.Headers = amqp.Table{}
	}
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, AMQPCarrier(d.Headers))

	spanCtx, span := tracer.Start(parentCtx, "process "+q.queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(q.queue),
			semconv.MessagingMessageID(d.MessageId),
		),
	)
	defer span.End()

	if err := handler(spanCtx, d.Body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (q *AMQPQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
