package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome is the terminal result for one inbound request, published to the
// response queue.
type Outcome struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// ResponsePublisher publishes outcomes on a short-lived channel per call,
// which keeps it safe to use from any handler goroutine without locking.
type ResponsePublisher struct {
	conn  *amqp.Connection
	queue string
}

func NewResponsePublisher(conn *amqp.Connection, queue string) *ResponsePublisher {
	return &ResponsePublisher{conn: conn, queue: queue}
}

// Publish declares the response queue durable and sends the outcome with the
// persistence flag set. Delivery is best-effort relative to the database
// commit that preceded it.
func (p *ResponsePublisher) Publish(ctx context.Context, out Outcome) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, p.queue); err != nil {
		return err
	}

	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = ch.PublishWithContext(
		pubCtx,
		"", // default exchange
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish outcome: %w", err)
	}
	return nil
}
