package service

import "errors"

// Sentinel errors returned by the checkout, confirmation and webhook flows.
// Handlers map them to HTTP status codes with errors.Is.
var (
	ErrMissingSessionID  = errors.New("missing or invalid session_id")
	ErrPaymentIncomplete = errors.New("payment not completed")
	ErrNotConfirmed      = errors.New("session not yet confirmed")
	ErrMissingRole       = errors.New("no role found in session")
	ErrUnknownRole       = errors.New("unknown role")
	ErrSignatureMissing  = errors.New("webhook signature or secret missing")
	ErrSignatureInvalid  = errors.New("webhook signature verification failed")
)
