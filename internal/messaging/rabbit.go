// Package messaging owns the RabbitMQ side of both workers: dialing the
// broker, the consumer loop with its redelivery policy, and the response
// queue publisher.
package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dial connects to the broker. The connection is shared by the consumer and
// the response publisher and is closed by the owning main.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}
