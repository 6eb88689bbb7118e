package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher hands events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev InterventionEvent) error
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, InterventionEvent) error { return nil }

// AMQPPublisher dials the broker for every publish.  Events are rare
// (one per write request), so no connection is held between them.
type AMQPPublisher struct {
	URL string
}

// NewAMQPPublisher returns a publisher for url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url}
}

// Publish declares the durable events queue and sends ev as a persistent
// JSON message.  Errors are logged and returned; callers may ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev InterventionEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		slog.Warn("rabbitmq: dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.Warn("rabbitmq: channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		slog.Warn("rabbitmq: queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", QueueName, false, false, pub); err != nil {
		slog.Warn("rabbitmq: publish failed", "type", ev.Type, "err", err)
		return err
	}
	return nil
}
