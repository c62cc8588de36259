// Package processor adapts the external payment processor (Stripe) to the
// domain: it authenticates webhook callbacks and looks up receipts.
package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
)

const (
	SignatureHeader = "Stripe-Signature"

	DefaultTolerance   = webhook.DefaultTolerance
	DefaultMetadataKey = "orderId"
)

type Verifier struct {
	tolerance   time.Duration
	metadataKey string
}

func NewVerifier(tolerance time.Duration, metadataKey string) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if metadataKey == "" {
		metadataKey = DefaultMetadataKey
	}
	return &Verifier{tolerance: tolerance, metadataKey: metadataKey}
}

// Verify authenticates rawBody against the signature header and returns the
// parsed event. An empty header or secret counts as absent.
func (v *Verifier) Verify(rawBody []byte, signatureHeader, secret string) (domain.ProcessorEvent, error) {
	if signatureHeader == "" || secret == "" {
		return domain.ProcessorEvent{}, fmt.Errorf("Verify: %w", domain.ErrMissingCredentials)
	}

	if err := webhook.ValidatePayloadWithTolerance(rawBody, signatureHeader, secret, v.tolerance); err != nil {
		return domain.ProcessorEvent{}, fmt.Errorf("Verify: %w: %v", domain.ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return domain.ProcessorEvent{}, fmt.Errorf("Verify: %w: %v", domain.ErrMalformedEvent, err)
	}
	if event.ID == "" {
		return domain.ProcessorEvent{}, fmt.Errorf("Verify: %w: missing event id", domain.ErrMalformedEvent)
	}

	out := domain.ProcessorEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: domain.ProcessorEventIgnored,
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return out, nil
	}

	checkout, err := v.parseCheckout(event)
	if err != nil {
		return domain.ProcessorEvent{}, fmt.Errorf("Verify: %w", err)
	}
	out.Kind = domain.ProcessorEventCheckoutCompleted
	out.Checkout = checkout
	return out, nil
}

func (v *Verifier) parseCheckout(event stripe.Event) (*domain.CheckoutCompleted, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: checkout event without data object", domain.ErrMalformedEvent)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: checkout session without id", domain.ErrMalformedEvent)
	}

	return &domain.CheckoutCompleted{
		SessionID:  session.ID,
		ReceiptURL: inlineReceiptURL(&session),
		OrderID:    session.Metadata[v.metadataKey],
	}, nil
}

// The receipt is only inline when the session was delivered with its
// payment intent and latest charge expanded.
func inlineReceiptURL(session *stripe.CheckoutSession) string {
	if session.PaymentIntent == nil || session.PaymentIntent.LatestCharge == nil {
		return ""
	}
	return session.PaymentIntent.LatestCharge.ReceiptURL
}

// IsClientError reports whether err came from untrusted input rather than
// from our own infrastructure.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrMissingCredentials) ||
		errors.Is(err, domain.ErrInvalidSignature) ||
		errors.Is(err, domain.ErrMalformedEvent)
}
