package messaging

import (
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// KafkaCarrier exposes Kafka message headers to the otel propagator.
type KafkaCarrier struct {
	msg *kafka.Message
}

func NewKafkaCarrier(msg *kafka.Message) *KafkaCarrier {
	return &KafkaCarrier{msg: msg}
}

func (c *KafkaCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *KafkaCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *KafkaCarrier) Keys() []string {
	keys := make([]string, len(c.msg.Headers))
	for i, h := range c.msg.Headers {
		keys[i] = h.Key
	}
	return keys
}

// AMQPCarrier does the same for AMQP message headers.
type AMQPCarrier amqp.Table

func (c AMQPCarrier) Get(key string) string {
	v, _ := c[key].(string)
	return v
}

func (c AMQPCarrier) Set(key, value string) {
	c[key] = value
}

func (c AMQPCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
