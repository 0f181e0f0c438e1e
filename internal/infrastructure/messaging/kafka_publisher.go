package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const (
	writeTimeout = 5 * time.Second
	batchTimeout = 10 * time.Millisecond
)

// MessageWriter is the part of kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes domain events to a single topic, keyed so that
// every event of one order lands on the same partition.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher returns an EventPublisher for brokers. With no brokers it
// returns a publisher that drops events.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) service.EventPublisher {
	if len(brokers) == 0 {
		logger.Info("kafka brokers not configured, domain events are disabled")
		return service.NewNoopPublisher()
	}
	logger.Info("kafka publisher configured", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return NewKafkaPublisherWithWriter(newWriter(brokers, topic, logger), topic, logger)
}

// newWriter builds an async writer: WriteMessages only enqueues, so a slow or
// unreachable broker never holds up the request that emitted the event.
// Delivery failures are reported through Completion.
func newWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             completionLogger(topic, logger),
	}
}

func completionLogger(topic string, logger *zap.Logger) func([]kafka.Message, error) {
	return func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}
		keys := make([]string, 0, len(messages))
		for _, m := range messages {
			keys = append(keys, string(m.Key))
		}
		logger.Error("event delivery failed",
			zap.String("topic", topic),
			zap.Int("messages", len(messages)),
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
}

// NewKafkaPublisherWithWriter wraps an existing writer
func NewKafkaPublisherWithWriter(writer MessageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

// Publish writes the event as JSON with its type and the trace context in
// the message headers.
func (p *KafkaPublisher) Publish(ctx context.Context, event service.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	headers := headerCarrier{{Key: "event-type", Value: []byte(event.Type)}}
	otel.GetTextMapPropagator().Inject(ctx, &headers)

	msg := kafka.Message{
		Key:     []byte(event.Key),
		Value:   value,
		Headers: headers,
		Time:    event.OccurredAt,
	}

	// The request may already be finished; the event must still go out.
	// Against an async writer this only enqueues.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("write %s to %s: %w", event.Type, p.topic, err)
	}
	p.logger.Debug("event queued", zap.String("type", event.Type), zap.String("key", event.Key))
	return nil
}

// Close flushes pending messages
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// headerCarrier adapts kafka headers to a TextMapCarrier
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}
