// internal/infrastructure/messaging/rabbitmq/publisher.go
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
)

// Routing keys for order lifecycle events
const (
	routingOrderCreated = "order.created"
	routingOrderPaid    = "order.paid"
)

// Publisher pushes order events to a RabbitMQ topic exchange. The broker is
// optional infrastructure; construction fails only when a URL is configured
// and unreachable.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *logrus.Logger
}

// OrderEvent is the wire format of an order lifecycle event
type OrderEvent struct {
	OID           string    `json:"oid"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	Total         int64     `json:"total"`
	ItemCount     int       `json:"item_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewPublisher connects to RabbitMQ and declares the order exchange
func NewPublisher(cfg *config.Config, logger *logrus.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.Messaging.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Messaging.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.WithField("exchange", cfg.Messaging.Exchange).Info("connected to RabbitMQ")

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Messaging.Exchange,
		logger:   logger,
	}, nil
}

// Close shuts down the channel and connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishOrderCreated emits an order.created event
func (p *Publisher) PublishOrderCreated(o *order.Order) error {
	return p.publish(routingOrderCreated, o)
}

// PublishOrderPaid emits an order.paid event
func (p *Publisher) PublishOrderPaid(o *order.Order) error {
	return p.publish(routingOrderPaid, o)
}

func (p *Publisher) publish(routingKey string, o *order.Order) error {
	event := OrderEvent{
		OID:           o.OID,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.Total,
		ItemCount:     len(o.Items),
		OccurredAt:    time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.logger.WithFields(logrus.Fields{
		"routing_key": routingKey,
		"oid":         o.OID,
	}).Debug("order event published")
	return nil
}
