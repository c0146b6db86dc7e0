package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront/config"
	"storefront/notification"
)

// Relay drains the merchant notification queue into a Gateway. Messages
// that cannot be delivered are rejected without requeue so the broker moves
// them to the dead-letter queue.
type Relay struct {
	gateway notification.Gateway
	timeout time.Duration
	log     *slog.Logger
}

func NewRelay(gateway notification.Gateway, timeout time.Duration, log *slog.Logger) *Relay {
	return &Relay{
		gateway: gateway,
		timeout: timeout,
		log:     log.With(slog.String("component", "notification.relay")),
	}
}

// Consumer is the consuming half of *amqp.Channel.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Start registers consumers on the notification queue and the dead-letter
// queue. Both stop when ch is closed. ch should not be the channel the
// notifications are published on.
func (r *Relay) Start(ch Consumer, cfg *config.Config) error {
	msgs, err := ch.Consume(
		cfg.NotifyQueue,
		"storefront-relay", // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.NotifyQueue, err)
	}

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"storefront-relay-dlq",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.DeadLetterQueue, err)
	}

	go func() {
		for msg := range msgs {
			r.handle(msg)
		}
	}()
	go func() {
		for msg := range dlqMsgs {
			r.handleDeadLetter(msg)
		}
	}()
	return nil
}

func (r *Relay) handle(msg amqp.Delivery) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("relay panic", slog.Any("panic", rec))
			_ = msg.Nack(false, false)
		}
	}()

	var s notification.Summary
	if err := json.Unmarshal(msg.Body, &s); err != nil || s.CorrelationID == "" {
		r.log.Error("malformed notification message", slog.String("message_id", msg.MessageId))
		_ = msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.gateway.Send(ctx, s); err != nil {
		r.log.Error("relay delivery failed",
			slog.String("order_correlation_id", s.CorrelationID),
			slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}

	if err := msg.Ack(false); err != nil {
		r.log.Warn("ack failed", slog.String("order_correlation_id", s.CorrelationID), slog.String("error", err.Error()))
	}
}

// handleDeadLetter logs the full summary so the order can be reconciled by
// hand, then acknowledges it.
func (r *Relay) handleDeadLetter(msg amqp.Delivery) {
	var s notification.Summary
	if err := json.Unmarshal(msg.Body, &s); err != nil {
		r.log.Error("undeliverable notification", slog.String("body", string(msg.Body)))
	} else {
		r.log.Error("undeliverable notification",
			slog.String("order_correlation_id", s.CorrelationID),
			slog.Int64("deaths", deathCount(msg.Headers)),
			slog.String("summary", s.Text))
	}
	_ = msg.Ack(false)
}

func deathCount(headers amqp.Table) int64 {
	deaths, ok := headers["x-death"].([]any)
	if !ok {
		return 0
	}
	var total int64
	for _, d := range deaths {
		entry, ok := d.(amqp.Table)
		if !ok {
			continue
		}
		if n, ok := entry["count"].(int64); ok {
			total += n
		}
	}
	return total
}
