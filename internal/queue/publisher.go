package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// sendFunc delivers one message to the named queue.
type sendFunc func(ctx context.Context, url, queue string, pub amqp.Publishing) error

// Publisher publishes ledger events to a durable RabbitMQ queue. A circuit
// breaker stops dialing the broker after repeated failures.
type Publisher struct {
	url   string
	queue string
	cb    *gobreaker.CircuitBreaker
	log   *zap.Logger
	send  sendFunc
	now   func() time.Time
}

// NewPublisher returns a publisher for the given broker URL and queue.
func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	return &Publisher{
		url:   url,
		queue: queue,
		cb:    newBreaker("amqp-publisher", log),
		log:   log,
		send:  dialAndPublish,
		now:   time.Now,
	}
}

func newBreaker(name string, log *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// Publish sends ev. Errors are logged and returned so the caller can
// choose to ignore them; messages are marked persistent.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	now := p.now().UTC()
	body, err := Encode(ev, now)
	if err != nil {
		p.log.Error("rabbitmq: encode event failed", zap.String("type", ev.EventType()), zap.Error(err))
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    now,
		Type:         ev.EventType(),
		Body:         body,
	}
	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.send(ctx, p.url, p.queue, pub)
	})
	if err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.String("type", ev.EventType()), zap.Error(err))
		return err
	}
	return nil
}

func dialAndPublish(ctx context.Context, url, queue string, pub amqp.Publishing) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
