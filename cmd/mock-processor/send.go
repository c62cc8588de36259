package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/marketplace-payments/internal/processor"
)

type checkoutOptions struct {
	eventID    string
	eventType  string
	sessionID  string
	orderID    string
	receiptURL string
}

func sendCmd() *cobra.Command {
	var (
		opts   checkoutOptions
		url    string
		secret string
		skew   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "POST a signed checkout.session.completed event to the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.eventID == "" {
				opts.eventID = "evt_" + uuid.NewString()
			}
			if opts.sessionID == "" {
				opts.sessionID = "cs_" + uuid.NewString()
			}

			body, err := checkoutEvent(opts)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			if secret != "" {
				req.Header.Set(processor.SignatureHeader, processor.Sign(body, secret, time.Now().Add(-skew)))
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
			defer resp.Body.Close()

			out, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n%s", opts.eventID, resp.Status, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/webhooks/processor", "Webhook endpoint")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "Signing secret; empty sends no signature header")
	cmd.Flags().DurationVar(&skew, "skew", 0, "Backdate the signature timestamp, e.g. 10m to trip the tolerance check")
	cmd.Flags().StringVar(&opts.eventID, "event-id", "", "Event id; repeat one to exercise duplicate handling")
	cmd.Flags().StringVar(&opts.eventType, "type", "checkout.session.completed", "Event type")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Checkout session id")
	cmd.Flags().StringVar(&opts.orderID, "order", "", "Order id carried in session metadata")
	cmd.Flags().StringVar(&opts.receiptURL, "receipt-url", "", "Inline receipt URL on the latest charge")

	return cmd
}

// checkoutEvent renders the event the way the processor serializes it.
func checkoutEvent(opts checkoutOptions) ([]byte, error) {
	metadata := map[string]string{}
	if opts.orderID != "" {
		metadata["orderId"] = opts.orderID
	}

	session := map[string]any{
		"id":             opts.sessionID,
		"object":         "checkout.session",
		"payment_status": "paid",
		"metadata":       metadata,
	}
	if opts.receiptURL != "" {
		session["payment_intent"] = map[string]any{
			"id":     "pi_" + opts.sessionID,
			"object": "payment_intent",
			"latest_charge": map[string]any{
				"id":          "ch_" + opts.sessionID,
				"object":      "charge",
				"receipt_url": opts.receiptURL,
			},
		}
	}

	body, err := json.Marshal(map[string]any{
		"id":      opts.eventID,
		"object":  "event",
		"type":    opts.eventType,
		"created": time.Now().Unix(),
		"data":    map[string]any{"object": session},
	})
	if err != nil {
		return nil, fmt.Errorf("checkoutEvent: %w", err)
	}
	return body, nil
}

func signCmd() *cobra.Command {
	var (
		secret string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print a signature header for a body read from --file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				body []byte
				err  error
			)
			if file != "" {
				body, err = os.ReadFile(file)
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}
			if secret == "" {
				return fmt.Errorf("sign: --secret is required")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", processor.SignatureHeader, processor.Sign(body, secret, time.Now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "Signing secret")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Body file; stdin when empty")

	return cmd
}
