package service

import (
	"context"
	"fmt"
	"time"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
	"github.com/josh-kwaku/marketplace-payments/internal/logging"
	"github.com/josh-kwaku/marketplace-payments/internal/metrics"
)

const DefaultReceiptTimeout = 3 * time.Second

type ReceiptLookup interface {
	GetReceipt(ctx context.Context, sessionID string) (string, error)
}

// Resolver builds the canonical PaymentConfirmed record for a completed
// checkout. A nil lookup means receipts are never fetched and fall back to
// the sentinel.
type Resolver struct {
	receipts ReceiptLookup
	timeout  time.Duration
}

func NewResolver(receipts ReceiptLookup, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultReceiptTimeout
	}
	return &Resolver{receipts: receipts, timeout: timeout}
}

func (r *Resolver) Resolve(ctx context.Context, event domain.ProcessorEvent) (domain.PaymentConfirmed, error) {
	if event.Kind != domain.ProcessorEventCheckoutCompleted || event.Checkout == nil {
		return domain.PaymentConfirmed{}, fmt.Errorf("Resolve: %s: %w", event.Type, domain.ErrUnroutedEvent)
	}
	checkout := event.Checkout

	if checkout.OrderID == "" {
		return domain.PaymentConfirmed{}, fmt.Errorf("Resolve: session %s: %w", checkout.SessionID, domain.ErrMissingOrderCorrelation)
	}

	receipt := checkout.ReceiptURL
	if receipt == "" {
		receipt = r.lookupReceipt(ctx, checkout.SessionID)
	}

	return domain.PaymentConfirmed{
		PaymentSessionID: checkout.SessionID,
		OrderID:          checkout.OrderID,
		ReceiptURL:       receipt,
	}, nil
}

// lookupReceipt makes a single bounded attempt. Any failure degrades to the
// sentinel; the payment itself is already captured.
func (r *Resolver) lookupReceipt(ctx context.Context, sessionID string) string {
	log := logging.FromContext(ctx)
	if r.receipts == nil {
		return domain.ReceiptUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	url, err := r.receipts.GetReceipt(ctx, sessionID)
	if err == nil && url == "" {
		err = domain.ErrReceiptUnavailable
	}
	if err != nil {
		metrics.ReceiptLookupDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		log.Warn("receipt lookup failed, using placeholder", "session_id", sessionID, "error", err)
		return domain.ReceiptUnavailable
	}

	metrics.ReceiptLookupDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return url
}
