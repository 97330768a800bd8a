// Package broker publishes appended employee events to Kafka.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// KafkaPublisher is a fan-out sink that writes each event to one topic,
// keyed by employee id so an employee's events stay on one partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaPublisher returns nil when no brokers are configured.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	if len(brokers) == 0 {
		logger.Warn("kafka publisher disabled (no kafka brokers configured)")
		return nil
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	msg := buildMessage(ctx, event)
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event %d to %s: %w", event.Seq, p.topic, err)
	}
	p.logger.Debug("event published to kafka", "seq", event.Seq, "topic", p.topic)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// buildMessage carries the raw payload as the value and the event envelope
// as headers, plus W3C trace context.
func buildMessage(ctx context.Context, event domain.Event) kafka.Message {
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.EmployeeID, 10)),
		Value: event.Payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "seq", Value: []byte(strconv.FormatInt(event.Seq, 10))},
			{Key: "event_type", Value: []byte(event.Kind)},
			{Key: "employee_id", Value: []byte(strconv.FormatInt(event.EmployeeID, 10))},
		},
	}
	carrier := &headerCarrier{headers: msg.Headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	msg.Headers = carrier.headers
	return msg
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range c.headers {
		if h.Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
