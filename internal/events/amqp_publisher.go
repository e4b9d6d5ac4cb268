package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher forwards domain events to a durable RabbitMQ queue so
// external consumers can react to ticket activity. Publish failures are
// logged and swallowed; event delivery is best effort and must never
// interrupt the request flow.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *zap.Logger
}

// NewAMQPPublisher constructs a publisher. The connection is dialed per
// publish, which keeps the publisher stateless and reconnect-free.
func NewAMQPPublisher(url, queue string, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, logger: logger}
}

// HandleEvent is an EventHandler suitable for Dispatcher.Subscribe.
func (p *AMQPPublisher) HandleEvent(ctx context.Context, event Event) error {
	if err := p.publish(ctx, event); err != nil {
		p.logger.Warn("amqp publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, event Event) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
