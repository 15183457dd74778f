// Package payment adapts the hosted-checkout payment provider.  Callers work
// with the small Session and Event types defined here and never see the
// provider SDK directly.
package payment

import (
	"context"
	"errors"
)

// EventCheckoutCompleted is the only webhook event type that records a
// fulfillment.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	ErrNotConfigured        = errors.New("payment: provider is not configured")
	ErrWebhookSecretMissing = errors.New("payment: webhook secret is not configured")
	ErrInvalidSignature     = errors.New("payment: invalid webhook signature")
	ErrSessionNotFound      = errors.New("payment: checkout session not found")
)

// CheckoutRequest describes one purchase attempt.
type CheckoutRequest struct {
	Role           string
	Email          string
	IdempotencyKey string
}

// Checkout is a created hosted checkout session.
type Checkout struct {
	ID  string
	URL string
}

// Session is the provider's authoritative view of a checkout session.  Role
// is the raw metadata value and may be empty.
type Session struct {
	ID            string
	Paid          bool
	PaymentStatus string
	Role          string
	Email         string
}

// Event is a verified webhook event.  Session is set for checkout session
// events only.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

// Provider is implemented by StripeProvider and by test fakes.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
