package bus

import (
	"fmt"
	"log/slog"
)

const (
	DriverRabbitMQ = "rabbitmq"
	DriverKafka    = "kafka"
	DriverMemory   = "memory"
)

type Options struct {
	Driver   string
	RabbitMQ RabbitMQConfig
	Kafka    KafkaConfig
}

// Open connects the transport named by opts.Driver.
func Open(opts Options, logger *slog.Logger) (Bus, error) {
	switch opts.Driver {
	case DriverRabbitMQ:
		r, err := DialRabbitMQ(opts.RabbitMQ, logger)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		return r, nil
	case DriverKafka:
		return NewKafka(opts.Kafka, logger), nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("Open: unknown driver %q", opts.Driver)
	}
}
