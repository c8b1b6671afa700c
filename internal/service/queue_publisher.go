package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/contact-book/internal/metrics"
	"github.com/iliyamo/contact-book/internal/queue"
)

// Notifier hands mail events to the delivery pipeline.  Callers treat a
// returned error as a warning only.
type Notifier interface {
	Notify(ctx context.Context, ev queue.MailEvent) error
}

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// dialChannel opens a connection and a channel.  Closing the returned closer
// releases both.
type dialChannel func(ctx context.Context, url string) (amqpChannel, io.Closer, error)

// dialTimeout bounds the TCP connect and the AMQP handshake of a publish.
var dialTimeout = 3 * time.Second

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (s amqpSession) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}

func dialAMQP(ctx context.Context, url string) (amqpChannel, io.Closer, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			c, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// cleared by the library once the handshake completes
			if err := c.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
				_ = c.Close()
				return nil, err
			}
			return c, nil
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, amqpSession{conn: conn, ch: ch}, nil
}

// Publisher publishes mail events to a durable RabbitMQ queue.  It opens a
// short-lived connection per event; mail volume is a handful of messages per
// signup or reset.
type Publisher struct {
	url     string
	queue   string
	dial    dialChannel
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewPublisher(url, queueName string, log *zap.Logger, m *metrics.Metrics) *Publisher {
	if queueName == "" {
		queueName = queue.DefaultMailQueue
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, queue: queueName, dial: dialAMQP, log: log.Named("mail-publisher"), metrics: m}
}

// Notify publishes ev as a persistent JSON message.
func (p *Publisher) Notify(ctx context.Context, ev queue.MailEvent) error {
	err := p.publish(ctx, ev)
	if err != nil {
		p.metrics.MailEvent(string(ev.Kind), "failed")
		p.log.Warn("publish failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		return err
	}
	p.metrics.MailEvent(string(ev.Kind), "published")
	return nil
}

func (p *Publisher) publish(ctx context.Context, ev queue.MailEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, closer, err := p.dial(ctx, p.url)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
