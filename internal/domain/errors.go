package domain

import "errors"

var (
	ErrMissingCredentials      = errors.New("missing webhook signature or secret")
	ErrInvalidSignature        = errors.New("invalid webhook signature")
	ErrMalformedEvent          = errors.New("malformed processor event")
	ErrStoreUnavailable        = errors.New("idempotency store unavailable")
	ErrMissingOrderCorrelation = errors.New("checkout session has no order correlation id")
	ErrReceiptUnavailable      = errors.New("receipt unavailable")
	ErrPublishFailed           = errors.New("publish failed")
	ErrUnroutedEvent           = errors.New("event kind not routable to resolver")
)
