// Package events turns canonical domain records into bus messages.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/marketplace-payments/internal/bus"
	"github.com/josh-kwaku/marketplace-payments/internal/domain"
	"github.com/josh-kwaku/marketplace-payments/internal/metrics"
)

// PublishError keeps the subject and payload of a failed publish so the
// caller can log or replay it.
type PublishError struct {
	Subject string
	Payload any
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Subject, e.Err)
}

func (e *PublishError) Unwrap() []error {
	return []error{domain.ErrPublishFailed, e.Err}
}

type Publisher struct {
	bus     bus.Publisher
	timeout time.Duration
}

func NewPublisher(b bus.Publisher) *Publisher {
	return &Publisher{bus: b}
}

// WithTimeout bounds how long a single publish may wait for the transport.
// Zero means no bound beyond the caller's context.
func (p *Publisher) WithTimeout(d time.Duration) *Publisher {
	p.timeout = d
	return p
}

// Publish encodes payload as JSON and blocks until the transport accepts it.
// Each call is exactly one publish; nothing is buffered or retried.
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Publish: marshal: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.bus.Publish(ctx, subject, body); err != nil {
		metrics.Publishes.WithLabelValues(family(subject), "failed").Inc()
		return &PublishError{Subject: subject, Payload: payload, Err: err}
	}

	metrics.Publishes.WithLabelValues(family(subject), "ok").Inc()
	return nil
}

// family keeps metric cardinality bounded: per-producer subjects collapse
// into their prefix.
func family(subject string) string {
	if strings.HasPrefix(subject, domain.ProducerSubject("")) {
		return domain.ProducerSubject("*")
	}
	return subject
}
