package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
)

type stubReceipts struct {
	url   string
	err   error
	delay time.Duration
	calls int
}

func (s *stubReceipts) GetReceipt(ctx context.Context, _ string) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.url, s.err
}

func checkoutEvent(orderID, inlineReceipt string) domain.ProcessorEvent {
	return domain.ProcessorEvent{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Kind: domain.ProcessorEventCheckoutCompleted,
		Checkout: &domain.CheckoutCompleted{
			SessionID:  "cs_1",
			OrderID:    orderID,
			ReceiptURL: inlineReceipt,
		},
	}
}

func TestResolve_LooksUpReceipt(t *testing.T) {
	receipts := &stubReceipts{url: "https://receipts/abc"}
	r := NewResolver(receipts, time.Second)

	got, err := r.Resolve(context.Background(), checkoutEvent("order-123", ""))
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentConfirmed{
		PaymentSessionID: "cs_1",
		OrderID:          "order-123",
		ReceiptURL:       "https://receipts/abc",
	}, got)
	assert.Equal(t, 1, receipts.calls)
}

func TestResolve_InlineReceiptSkipsLookup(t *testing.T) {
	receipts := &stubReceipts{url: "https://receipts/other"}
	r := NewResolver(receipts, time.Second)

	got, err := r.Resolve(context.Background(), checkoutEvent("order-1", "https://receipts/inline"))
	require.NoError(t, err)
	assert.Equal(t, "https://receipts/inline", got.ReceiptURL)
	assert.Zero(t, receipts.calls)
}

func TestResolve_LookupFailureDegrades(t *testing.T) {
	tests := []struct {
		name     string
		receipts ReceiptLookup
	}{
		{"lookup error", &stubReceipts{err: errors.New("stripe 500")}},
		{"lookup timeout", &stubReceipts{url: "https://late", delay: time.Second}},
		{"empty url", &stubReceipts{}},
		{"no lookup configured", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(tc.receipts, 20*time.Millisecond)

			got, err := r.Resolve(context.Background(), checkoutEvent("order-5", ""))
			require.NoError(t, err)
			assert.Equal(t, "order-5", got.OrderID)
			assert.Equal(t, domain.ReceiptUnavailable, got.ReceiptURL)
			assert.NotEmpty(t, got.ReceiptURL)
		})
	}
}

func TestResolve_MissingOrderCorrelation(t *testing.T) {
	receipts := &stubReceipts{url: "https://receipts/abc"}
	r := NewResolver(receipts, time.Second)

	_, err := r.Resolve(context.Background(), checkoutEvent("", ""))
	assert.ErrorIs(t, err, domain.ErrMissingOrderCorrelation)
	assert.Zero(t, receipts.calls)
}

func TestResolve_RejectsOtherKinds(t *testing.T) {
	r := NewResolver(nil, 0)
	_, err := r.Resolve(context.Background(), domain.ProcessorEvent{ID: "evt", Kind: domain.ProcessorEventIgnored, Type: "invoice.paid"})
	assert.ErrorIs(t, err, domain.ErrUnroutedEvent)
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewResolver(&stubReceipts{url: "https://receipts/abc"}, time.Second)
	ev := checkoutEvent("order-9", "")

	first, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
