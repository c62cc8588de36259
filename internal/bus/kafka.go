package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer the bus needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka maps each subject onto a topic of the same name. Subscriptions join
// the configured consumer group.
type Kafka struct {
	brokers []string
	group   string
	timeout time.Duration
	writer  Writer
	logger  *slog.Logger

	mu      sync.Mutex
	readers []*kafka.Reader
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

type KafkaConfig struct {
	Brokers        []string
	Group          string
	HandlerTimeout time.Duration
}

func NewKafka(cfg KafkaConfig, logger *slog.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewKafkaWithWriter(cfg, w, logger)
}

// NewKafkaWithWriter allows injecting a test writer.
func NewKafkaWithWriter(cfg KafkaConfig, w Writer, logger *slog.Logger) *Kafka {
	return &Kafka{
		brokers: cfg.Brokers,
		group:   cfg.Group,
		timeout: cfg.HandlerTimeout,
		writer:  w,
		logger:  logger,
	}
}

func (k *Kafka) Publish(ctx context.Context, subject string, body []byte) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic: subject,
		Value: body,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("Publish: %s: %w", subject, err)
	}
	return nil
}

func (k *Kafka) Subscribe(ctx context.Context, subject string, h Handler) error {
	if len(k.brokers) == 0 {
		return errors.New("Subscribe: no kafka brokers configured")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		GroupID:     k.group,
		Topic:       subject,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})

	// Close stops the subscription even when the caller's ctx lives on
	ctx, cancel := context.WithCancel(ctx)

	k.mu.Lock()
	k.readers = append(k.readers, reader)
	k.cancels = append(k.cancels, cancel)
	k.mu.Unlock()

	k.logger.Info("kafka subscription started", "subject", subject, "group", k.group)

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		k.consume(ctx, reader, subject, h)
	}()
	return nil
}

func (k *Kafka) consume(ctx context.Context, reader *kafka.Reader, subject string, h Handler) {
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				k.logger.Info("kafka subscription stopped", "subject", subject)
				return
			}
			k.logger.Warn("kafka fetch failed", "subject", subject, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		hctx, cancel := withOptionalTimeout(ctx, k.timeout)
		if err := h(hctx, Message{Subject: m.Topic, Body: m.Value}); err != nil {
			k.logger.Error("message handling failed", "subject", m.Topic, "offset", m.Offset, "error", err)
		}
		cancel()

		// committed either way; handlers own their failure reporting
		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			k.logger.Error("failed to commit offset", "subject", m.Topic, "offset", m.Offset, "error", err)
		}
	}
}

func (k *Kafka) Ping(ctx context.Context) error {
	if len(k.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", k.brokers[0])
	if err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return conn.Close()
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	readers, cancels := k.readers, k.cancels
	k.readers, k.cancels = nil, nil
	k.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	k.wg.Wait()

	if err := k.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("Close: %w", errors.Join(errs...))
	}
	return nil
}
