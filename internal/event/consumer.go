package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nekogravitycat/room-booking-backend/internal/booking"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
	prefetch   = 50
)

// Consumer feeds committed events from the queue into a handler, typically
// the booking pass generator.
type Consumer struct {
	url     string
	queue   string
	handler booking.Notifier
	logger  *slog.Logger
}

func NewConsumer(url, queue string, handler booking.Notifier, logger *slog.Logger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{url: url, queue: queue, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("event consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("event consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.logger.Warn("event consumer: set QoS failed", "error", err)
	}
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", c.queue, err)
	}

	c.logger.Info("event consumer started", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acknowledges a delivery once the handler succeeds. Malformed
// messages are dropped; a failed handler gets one redelivery.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	evt, err := decode(d.Body)
	if err != nil {
		c.logger.Error("event consumer: dropping malformed message", "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := c.handler.Notify(ctx, evt); err != nil {
		requeue := !d.Redelivered
		c.logger.Error("event consumer: handler failed",
			"reservation_id", evt.ReservationID,
			"requeue", requeue,
			"error", err)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
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
