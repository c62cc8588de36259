package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
	"github.com/josh-kwaku/marketplace-payments/internal/logging"
	"github.com/josh-kwaku/marketplace-payments/internal/metrics"
)

const releaseTimeout = 5 * time.Second

type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeAcknowledged Outcome = "acknowledged"
)

type verifier interface {
	Verify(rawBody []byte, signatureHeader, secret string) (domain.ProcessorEvent, error)
}

type idempotencyGuard interface {
	MarkIfNew(ctx context.Context, eventID string) (bool, error)
	FirstSeen(ctx context.Context, eventID string) (*domain.ProcessedEvent, error)
	Release(ctx context.Context, eventID string) error
}

type confirmationResolver interface {
	Resolve(ctx context.Context, event domain.ProcessorEvent) (domain.PaymentConfirmed, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// WebhookProcessor turns one processor callback into at most one
// payment.paid event.
type WebhookProcessor struct {
	verifier verifier
	guard    idempotencyGuard
	resolver confirmationResolver
	events   eventPublisher
	secret   string
}

func NewWebhookProcessor(
	verifier verifier,
	guard idempotencyGuard,
	resolver confirmationResolver,
	events eventPublisher,
	secret string,
) *WebhookProcessor {
	return &WebhookProcessor{
		verifier: verifier,
		guard:    guard,
		resolver: resolver,
		events:   events,
		secret:   secret,
	}
}

// Process runs verify, claim, resolve, publish. A returned error means the
// caller must answer with a failure status: client errors for rejected
// input, retryable ones for infrastructure. Every other case returns an
// Outcome that should be acknowledged.
func (p *WebhookProcessor) Process(ctx context.Context, rawBody []byte, signatureHeader string) (Outcome, error) {
	event, err := p.verifier.Verify(rawBody, signatureHeader, p.secret)
	if err != nil {
		metrics.WebhookOutcomes.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("Process: %w", err)
	}

	ctx = logging.With(ctx, "event_id", event.ID, "event_type", event.Type)
	log := logging.FromContext(ctx)

	if event.Kind != domain.ProcessorEventCheckoutCompleted {
		log.Info("ignoring unhandled processor event")
		metrics.WebhookOutcomes.WithLabelValues(string(OutcomeIgnored)).Inc()
		return OutcomeIgnored, nil
	}

	isNew, err := p.guard.MarkIfNew(ctx, event.ID)
	if err != nil {
		log.Error("idempotency check failed", "error", err)
		metrics.WebhookOutcomes.WithLabelValues("retry").Inc()
		return "", fmt.Errorf("Process: %w", err)
	}
	if !isNew {
		attrs := []any{}
		if rec, err := p.guard.FirstSeen(ctx, event.ID); err != nil {
			log.Warn("could not look up first delivery", "error", err)
		} else if rec != nil {
			attrs = append(attrs, "first_processed_at", rec.ProcessedAt)
		}
		log.Info("duplicate processor event", attrs...)
		metrics.WebhookOutcomes.WithLabelValues(string(OutcomeDuplicate)).Inc()
		return OutcomeDuplicate, nil
	}

	confirmed, err := p.resolver.Resolve(ctx, event)
	if err != nil {
		if errors.Is(err, domain.ErrMissingOrderCorrelation) {
			// retries cannot fix this; keep the claim and acknowledge
			log.Error("paid checkout without order correlation",
				"session_id", event.Checkout.SessionID,
				"error", err,
			)
			metrics.WebhookOutcomes.WithLabelValues(string(OutcomeAcknowledged)).Inc()
			return OutcomeAcknowledged, nil
		}
		p.release(ctx, event.ID)
		metrics.WebhookOutcomes.WithLabelValues("retry").Inc()
		return "", fmt.Errorf("Process: %w", err)
	}

	ctx = logging.With(ctx, "order_id", confirmed.OrderID, "session_id", confirmed.PaymentSessionID)
	log = logging.FromContext(ctx)

	if err := p.events.Publish(ctx, domain.SubjectPaymentPaid, confirmed); err != nil {
		log.Error("failed to publish payment confirmation", "subject", domain.SubjectPaymentPaid, "error", err)
		p.release(ctx, event.ID)
		metrics.WebhookOutcomes.WithLabelValues("retry").Inc()
		return "", fmt.Errorf("Process: %w", err)
	}

	log.Info("payment confirmed", "receipt_url", confirmed.ReceiptURL)
	metrics.WebhookOutcomes.WithLabelValues(string(OutcomeProcessed)).Inc()
	return OutcomeProcessed, nil
}

// release undoes the claim so the processor's retry is treated as new. If
// that fails too the event stays claimed but unpublished and needs a manual
// replay, hence the loud log.
func (p *WebhookProcessor) release(ctx context.Context, eventID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := p.guard.Release(ctx, eventID); err != nil {
		logging.FromContext(ctx).Error("failed to release idempotency claim; payment.paid needs manual replay",
			"error", err,
		)
	}
}
