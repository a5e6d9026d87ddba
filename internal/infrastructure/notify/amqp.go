package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// AMQPConfig captures the broker settings.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// AMQPNotifier publishes order events to a durable topic exchange with the
// event type as routing key.
type AMQPNotifier struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(cfg AMQPConfig) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // args
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare exchange %s: %w", cfg.Exchange, err)
	}

	return &AMQPNotifier{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

// NotifyOrderCreated publishes a persistent order.created message. A closed
// channel is reopened once per call.
func (n *AMQPNotifier) NotifyOrderCreated(ctx context.Context, o domain.Order) error {
	body, err := json.Marshal(newOrderCreated(o))
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch == nil || n.ch.IsClosed() {
		ch, err := n.conn.Channel()
		if err != nil {
			return fmt.Errorf("amqp reopen channel: %w", err)
		}
		n.ch = ch
	}

	err = n.ch.PublishWithContext(
		ctx,
		n.exchange,        // exchange
		EventOrderCreated, // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    o.ID,
			Timestamp:    o.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish order %s: %w", o.ID, err)
	}
	return nil
}

// Ping reports whether the broker connection is still open.
func (n *AMQPNotifier) Ping(_ context.Context) error {
	if n.conn.IsClosed() {
		return fmt.Errorf("amqp connection closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	return n.conn.Close()
}
