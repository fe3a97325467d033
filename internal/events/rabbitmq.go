package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const exchangeKind = "topic"

// RabbitPublisher publishes events to a durable topic exchange
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *logrus.Logger
	mu       sync.Mutex
}

// NewRabbitPublisher dials the broker and declares the exchange
func NewRabbitPublisher(url, exchange string, logger *logrus.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

// Publish sends data wrapped in an Event envelope under routingKey
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, data interface{}) error {
	event := NewEvent(routingKey, data)
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.OccurredAt,
			Type:         routingKey,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.WithFields(logrus.Fields{
		"exchange":    p.exchange,
		"routing_key": routingKey,
		"event_id":    event.ID,
	}).Debug("Event published")
	return nil
}

// Close closes the channel and the connection
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NewPublisher returns a RabbitPublisher when url is set and a NoopPublisher otherwise.
// A broker that cannot be reached at startup is logged and replaced by the no-op.
func NewPublisher(url, exchange string, logger *logrus.Logger) Publisher {
	if url == "" {
		logger.Info("RABBITMQ_URL not set, domain events disabled")
		return NoopPublisher{}
	}

	publisher, err := NewRabbitPublisher(url, exchange, logger)
	if err != nil {
		logger.WithError(err).Warn("RabbitMQ unavailable, domain events disabled")
		return NoopPublisher{}
	}

	logger.WithField("exchange", exchange).Info("Publishing domain events to RabbitMQ")
	return publisher
}
