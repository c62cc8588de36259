package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ maps subjects onto routing keys of a single durable topic
// exchange. Each subscription gets its own durable queue named after the
// consumer group and subject, so separate processes in the same group share
// work while different groups each see every message.
type RabbitMQ struct {
	conn     *amqp.Connection
	pub      *amqp.Channel
	pubMu    sync.Mutex
	exchange string
	group    string
	prefetch int
	timeout  time.Duration
	logger   *slog.Logger
}

type RabbitMQConfig struct {
	URL            string
	Exchange       string
	Group          string
	Prefetch       int
	HandlerTimeout time.Duration
}

func DialRabbitMQ(cfg RabbitMQConfig, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("DialRabbitMQ: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("DialRabbitMQ: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("DialRabbitMQ: declare exchange: %w", err)
	}

	// publisher confirms: Publish waits for the broker to take ownership
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("DialRabbitMQ: confirm mode: %w", err)
	}

	return &RabbitMQ{
		conn:     conn,
		pub:      ch,
		exchange: cfg.Exchange,
		group:    cfg.Group,
		prefetch: max(cfg.Prefetch, 1),
		timeout:  cfg.HandlerTimeout,
		logger:   logger,
	}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, subject string, body []byte) error {
	r.pubMu.Lock()
	dc, err := r.pub.PublishWithDeferredConfirmWithContext(ctx,
		r.exchange,
		subject,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	r.pubMu.Unlock()
	if err != nil {
		return fmt.Errorf("Publish: %s: %w", subject, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("Publish: %s: wait confirm: %w", subject, err)
	}
	if !acked {
		return fmt.Errorf("Publish: %s: broker nacked message", subject)
	}
	return nil
}

func (r *RabbitMQ) Subscribe(ctx context.Context, subject string, h Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("Subscribe: open channel: %w", err)
	}
	if err := ch.Qos(r.prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("Subscribe: qos: %w", err)
	}

	queue := r.group + "." + subject
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("Subscribe: declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, subject, r.exchange, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("Subscribe: bind queue %s: %w", queue, err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("Subscribe: consume %s: %w", queue, err)
	}

	r.logger.Info("rabbitmq subscription started", "subject", subject, "queue", queue)
	go r.consume(ctx, ch, subject, deliveries, h)
	return nil
}

func (r *RabbitMQ) consume(ctx context.Context, ch *amqp.Channel, subject string, deliveries <-chan amqp.Delivery, h Handler) {
	defer ch.Close()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("rabbitmq subscription stopped", "subject", subject)
			return
		case d, ok := <-deliveries:
			if !ok {
				r.logger.Warn("rabbitmq delivery channel closed", "subject", subject)
				return
			}
			r.handle(ctx, d, h)
		}
	}
}

// Failed messages are rejected without requeue. Redelivery is not the
// transport's job here; handlers report and count their own failures.
func (r *RabbitMQ) handle(ctx context.Context, d amqp.Delivery, h Handler) {
	hctx, cancel := withOptionalTimeout(ctx, r.timeout)
	defer cancel()

	if err := h(hctx, Message{Subject: d.RoutingKey, Body: d.Body}); err != nil {
		r.logger.Error("message handling failed", "subject", d.RoutingKey, "error", err)
		if nerr := d.Nack(false, false); nerr != nil {
			r.logger.Error("failed to nack message", "subject", d.RoutingKey, "error", nerr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		r.logger.Error("failed to ack message", "subject", d.RoutingKey, "error", err)
	}
}

func (r *RabbitMQ) Ping(context.Context) error {
	if r.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if err := r.pub.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("Close: channel: %w", err)
	}
	if err := r.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("Close: connection: %w", err)
	}
	return nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
