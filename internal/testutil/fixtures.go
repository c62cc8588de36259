package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// CheckoutCompletedBody builds a checkout.session.completed callback body.
// An empty orderID leaves the session metadata without a correlation id.
func CheckoutCompletedBody(t *testing.T, eventID, sessionID, orderID string) []byte {
	t.Helper()

	metadata := map[string]string{}
	if orderID != "" {
		metadata["orderId"] = orderID
	}

	b, err := json.Marshal(map[string]any{
		"id":     eventID,
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"object":         "checkout.session",
				"payment_status": "paid",
				"payment_intent": "pi_" + sessionID,
				"metadata":       metadata,
			},
		},
	})
	require.NoError(t, err)
	return b
}

func EventBody(t *testing.T, eventID, eventType string) []byte {
	t.Helper()

	b, err := json.Marshal(map[string]any{
		"id":     eventID,
		"object": "event",
		"type":   eventType,
		"data":   map[string]any{"object": map[string]any{"id": "obj_" + eventID}},
	})
	require.NoError(t, err)
	return b
}
