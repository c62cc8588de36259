package processor

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

// Sign produces a signature header for body in the processor's format. It is
// used by the local mock processor and by tests; production callbacks are
// signed by the processor itself.
func Sign(body []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, body, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}
