package service

import (
	"context"
	"time"

	"github.com/sangkips/storefront-api/pkg/metrics"
	"go.uber.org/zap"
)

// Event types published by the order and receipt services
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
	EventReceiptGenerated   = "receipt.generated"
)

// Event is a domain event handed to the message broker
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// EventPublisher delivers domain events. Implementations must be safe for
// concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event
func NewNoopPublisher() EventPublisher { return noopPublisher{} }

func (noopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// publishEvent sends an event after the state change it describes has been
// committed. Failures are logged and counted, never returned.
func publishEvent(ctx context.Context, publisher EventPublisher, m *metrics.Registry, logger *zap.Logger, eventType, key string, payload interface{}) {
	err := publisher.Publish(ctx, Event{
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		m.EventsPublished.WithLabelValues(eventType, "failed").Inc()
		logger.Warn("failed to publish event", zap.String("type", eventType), zap.String("key", key), zap.Error(err))
		return
	}
	m.EventsPublished.WithLabelValues(eventType, "published").Inc()
}
