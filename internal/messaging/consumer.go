package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// HandlerFunc processes one message body and reports how the delivery should
// be settled. Handlers never see broker metadata; retry bookkeeping stays in
// the consumer.
type HandlerFunc func(ctx context.Context, body []byte) Decision

type ConsumerConfig struct {
	Queue    string
	Tag      string
	Prefetch int
}

// StartConsumer declares the queue, applies the prefetch limit and starts a
// goroutine that feeds deliveries through handle until ctx is cancelled or
// the channel closes. Every delivery is acked or nacked exactly once.
func StartConsumer(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, handle HandlerFunc, logger zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareQueue(ch, cfg.Queue); err != nil {
		_ = ch.Close()
		return err
	}

	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			_ = ch.Close()
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	msgs, err := ch.Consume(
		cfg.Queue,
		cfg.Tag,
		false, // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume: %w", err)
	}

	logger.Info().Str("queue", cfg.Queue).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info().Str("queue", cfg.Queue).Msg("stopping consumer")
				_ = ch.Close()
				return
			case d, ok := <-msgs:
				if !ok {
					logger.Warn().Str("queue", cfg.Queue).Msg("deliveries channel closed")
					return
				}
				settle(logger, &d, handle(ctx, d.Body))
			}
		}
	}()

	return nil
}

// settle issues the single ack/nack for a delivery. A Retry verdict gets one
// requeue; once the broker marks the message redelivered the next failure
// acks it away so a poison message cannot loop.
func settle(logger zerolog.Logger, d *amqp.Delivery, decision Decision) {
	switch {
	case decision == Retry && !d.Redelivered:
		if err := d.Nack(false, true); err != nil {
			logger.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("nack failed")
		}
	case decision == Retry:
		logger.Warn().Uint64("delivery_tag", d.DeliveryTag).Msg("message discarded after retry")
		if err := d.Ack(false); err != nil {
			logger.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("ack failed")
		}
	default:
		if err := d.Ack(false); err != nil {
			logger.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("ack failed")
		}
	}
}
