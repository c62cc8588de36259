package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest         = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrMissingCredentials     = &AppError{http.StatusBadRequest, "MISSING_CREDENTIALS", "Webhook signature or secret is missing"}
	ErrInvalidSignature       = &AppError{http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature is invalid"}
	ErrInternalError          = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrTemporarilyUnavailable = &AppError{http.StatusServiceUnavailable, "TEMPORARILY_UNAVAILABLE", "Temporarily unable to process, retry later"}
)
