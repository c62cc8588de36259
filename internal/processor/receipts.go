package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
	"github.com/josh-kwaku/marketplace-payments/internal/logging"
)

type ReceiptClient struct {
	api *client.API
}

func NewReceiptClient(apiKey string) *ReceiptClient {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &ReceiptClient{api: sc}
}

// NewReceiptClientWithAPI allows pointing the client at a stubbed backend.
func NewReceiptClientWithAPI(api *client.API) *ReceiptClient {
	return &ReceiptClient{api: api}
}

// GetReceipt returns the receipt URL of the charge behind a checkout session.
func (c *ReceiptClient) GetReceipt(ctx context.Context, sessionID string) (string, error) {
	log := logging.FromContext(ctx)

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent.latest_charge")

	start := time.Now()
	session, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", fmt.Errorf("GetReceipt: %w", err)
	}

	log.Info("processor session retrieved",
		"session_id", sessionID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	url := inlineReceiptURL(session)
	if url == "" {
		return "", fmt.Errorf("GetReceipt: session %s: %w", sessionID, domain.ErrReceiptUnavailable)
	}
	return url, nil
}
