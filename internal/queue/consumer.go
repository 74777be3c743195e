package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer drains the ledger queue into an audit logger.
type Consumer struct {
	url   string
	queue string
	log   *zap.Logger
	audit *zap.Logger
}

// NewConsumer returns a consumer. log receives operational messages, audit
// receives one entry per ledger event.
func NewConsumer(url, queue string, log, audit *zap.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, log: log, audit: audit}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled. It runs a reconnect loop with exponential backoff and
// rejects messages that cannot be processed so the loop keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("ledger-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("ledger-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("ledger-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.Error("ledger-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message and writes it to the audit log.
func (c *Consumer) Handle(body []byte) error {
	env, ev, err := Decode(body)
	if err != nil {
		return err
	}
	fields := []zap.Field{zap.String("type", env.Type), zap.Time("occurred_at", env.OccurredAt)}
	switch e := ev.(type) {
	case PaymentsRecordedEvent:
		fields = append(fields,
			zap.String("or_number", e.ORNumber), zap.Uint64("rental_id", e.RentalID), zap.Uint64("user_id", e.UserID),
			zap.Int("count", e.Count), zap.Int64("total_cents", e.TotalCents), zap.String("source", e.Source))
	case BanPaidEvent:
		fields = append(fields,
			zap.Uint64("rental_id", e.RentalID), zap.Int64("amount_cents", e.AmountCents),
			zap.Int64("ban_paid_cents", e.BanPaidCents), zap.Int64("remaining_cents", e.RemainingCents))
	case RentalVacatedEvent:
		fields = append(fields,
			zap.Uint64("rental_id", e.RentalID), zap.Uint64("stall_id", e.StallID), zap.Time("end_date", e.EndDate))
	}
	c.audit.Info("ledger event", fields...)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
