package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Routing keys published on the hotel events exchange
const (
	ReservationCreated   = "reservation.created"
	ReservationUpdated   = "reservation.updated"
	ReservationCancelled = "reservation.cancelled"
	ReservationDeleted   = "reservation.deleted"

	PaymentCompleted       = "payment.completed"
	PaymentCancelled       = "payment.cancelled"
	PaymentWebhookReceived = "payment.webhook_received"
)

// Publisher delivers domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, data interface{}) error
	Close() error
}

// Event is the envelope every message body carries
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NewEvent wraps data in an envelope for routingKey
func NewEvent(routingKey string, data interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// NoopPublisher discards events. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, routingKey string, data interface{}) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
