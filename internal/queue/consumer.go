package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/contact-book/internal/metrics"
)

// Mailer delivers one rendered mail event.
type Mailer interface {
	Send(ctx context.Context, ev MailEvent) error
}

// Consumer reads mail events from RabbitMQ and hands them to a Mailer.
type Consumer struct {
	url     string
	queue   string
	mailer  Mailer
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewConsumer builds a Consumer for the given broker URL and queue.  An
// empty queue name means DefaultMailQueue.
func NewConsumer(url, queue string, mailer Mailer, log *zap.Logger, m *metrics.Metrics) *Consumer {
	if queue == "" {
		queue = DefaultMailQueue
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, queue: queue, mailer: mailer, log: log.Named("mail-consumer"), metrics: m}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-established with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
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
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
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

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("consuming", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.log.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev MailEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.metrics.MailEvent("unknown", "rejected")
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := ev.Validate(); err != nil {
		c.metrics.MailEvent(string(ev.Kind), "rejected")
		return err
	}
	if err := c.mailer.Send(ctx, ev); err != nil {
		c.metrics.MailEvent(string(ev.Kind), "failed")
		return fmt.Errorf("send %s to %s: %w", ev.Kind, ev.Email, err)
	}
	c.metrics.MailEvent(string(ev.Kind), "delivered")
	c.log.Info("mail delivered", zap.String("kind", string(ev.Kind)), zap.String("email", ev.Email))
	return nil
}
