package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/josh-kwaku/marketplace-payments/internal/logging"
	"github.com/josh-kwaku/marketplace-payments/internal/processor"
	"github.com/josh-kwaku/marketplace-payments/internal/service"
)

const maxWebhookBody = 1 << 20

type webhookProcessor interface {
	Process(ctx context.Context, rawBody []byte, signatureHeader string) (service.Outcome, error)
}

type WebhookHandler struct {
	processor webhookProcessor
}

func NewWebhookHandler(p webhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: p}
}

// ReceiveProcessorWebhook hands the raw, unparsed body to the pipeline; the
// signature covers the exact bytes received.
func (h *WebhookHandler) ReceiveProcessorWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("webhook body too large", "limit_bytes", tooLarge.Limit)
			RespondAppError(w, ErrInvalidRequest, map[string]any{"limitBytes": tooLarge.Limit})
			return
		}
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	outcome, err := h.processor.Process(r.Context(), body, r.Header.Get(processor.SignatureHeader))
	if err != nil {
		if processor.IsClientError(err) {
			log.Warn("webhook rejected", "error", err)
		} else {
			log.Error("webhook processing failed", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": string(outcome)})
}
