package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront/config"
	"storefront/notification"
)

var ErrNotConnected = errors.New("rabbitmq not connected")

const (
	priorityNormal = 5
	priorityUrgent = 9
)

// Publisher is the publishing half of *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQ publishes merchant notifications to the notification exchange.
// It satisfies notification.Gateway.
type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	mu        sync.Mutex
	publisher Publisher
	consumers []*amqp.Channel
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:      conn,
		Channel:   ch,
		Cfg:       cfg,
		publisher: ch,
	}, nil
}

func (r *RabbitMQ) deadLetterExchange() string {
	return r.Cfg.DeadLetterQueue + "_exchange"
}

// SetupQueues declares the notification exchange, the priority queue bound
// to it and the dead-letter queue that rejected notifications end up in.
func (r *RabbitMQ) SetupQueues() error {
	if err := r.Channel.ExchangeDeclare(
		r.deadLetterExchange(),
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": "classic"},
	); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}

	if err := r.Channel.QueueBind(
		r.Cfg.DeadLetterQueue,
		r.Cfg.DeadLetterQueue,
		r.deadLetterExchange(),
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	if err := r.Channel.ExchangeDeclare(
		r.Cfg.NotifyExchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare notification exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.NotifyQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-max-priority":            r.Cfg.MaxPriority,
			"x-dead-letter-exchange":    r.deadLetterExchange(),
			"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
		},
	); err != nil {
		return fmt.Errorf("declare notification queue: %w", err)
	}

	if err := r.Channel.QueueBind(
		r.Cfg.NotifyQueue,
		"",
		r.Cfg.NotifyExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind notification queue: %w", err)
	}
	return nil
}

// Priority ranks large orders and orders that did not reach the database
// ahead of the rest.
func (r *RabbitMQ) Priority(s notification.Summary) uint8 {
	if !s.Persisted || (r.Cfg.HighValueOrderTotal > 0 && s.TotalAmount >= r.Cfg.HighValueOrderTotal) {
		return priorityUrgent
	}
	return priorityNormal
}

func (r *RabbitMQ) Send(ctx context.Context, s notification.Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	msg := amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now(),
		ContentType:   "application/json",
		CorrelationId: s.CorrelationID,
		MessageId:     s.CorrelationID,
		Body:          body,
		Priority:      r.Priority(s),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.publisher.PublishWithContext(ctx,
		r.Cfg.NotifyExchange,
		"",
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// ConsumerChannel opens a channel used only for consuming, so broker flow
// control on the publishing channel does not hold up deliveries. prefetch
// bounds the unacknowledged deliveries in flight.
func (r *RabbitMQ) ConsumerChannel(prefetch int) (*amqp.Channel, error) {
	if r.Conn == nil {
		return nil, ErrNotConnected
	}
	ch, err := r.Conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(max(prefetch, 1), 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	r.mu.Lock()
	r.consumers = append(r.consumers, ch)
	r.mu.Unlock()
	return ch, nil
}

func (r *RabbitMQ) Close() {
	r.mu.Lock()
	for _, ch := range r.consumers {
		_ = ch.Close()
	}
	r.consumers = nil
	r.mu.Unlock()

	if r.Channel != nil {
		_ = r.Channel.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
}
