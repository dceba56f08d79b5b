package domain

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidInstallments = errors.New("installments must be at least 1")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRecordNotFound      = errors.New("payment record not found")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrSignatureInvalid    = errors.New("invalid signature")
	ErrMissingCorrelation  = errors.New("correlation id missing")
)
