package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// StripeConfig carries the Stripe credentials and the public base URL used
// to build the success and cancel redirects.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	BaseURL       string
}

// StripeProvider implements Provider on Stripe Checkout.
type StripeProvider struct {
	cfg StripeConfig
	sc  *client.API
}

// NewStripeProvider returns a provider for cfg.  backends may be nil; tests
// pass backends pointed at a local server.  SDK log output goes to log.
func NewStripeProvider(cfg StripeConfig, backends *stripe.Backends, log *zap.Logger) *StripeProvider {
	if log == nil {
		log = zap.NewNop()
	}
	if backends == nil {
		bc := &stripe.BackendConfig{
			MaxNetworkRetries: stripe.Int64(2),
			LeveledLogger:     log.Named("stripe").Sugar(),
		}
		backends = &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, bc),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, bc),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, bc),
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &StripeProvider{cfg: cfg, sc: client.New(cfg.SecretKey, backends)}
}

// SuccessURL is where Stripe sends the buyer after payment.  Stripe fills in
// the {CHECKOUT_SESSION_ID} placeholder.
func (p *StripeProvider) SuccessURL() string {
	return p.cfg.BaseURL + "/success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL is where Stripe sends the buyer after abandoning checkout.
func (p *StripeProvider) CancelURL() string {
	return p.cfg.BaseURL + "/stripe/cancel"
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if p.cfg.SecretKey == "" || p.cfg.PriceID == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(p.cfg.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(p.SuccessURL()),
		CancelURL:  stripe.String(p.CancelURL()),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata("role", req.Role)
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	s, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if s.URL == "" {
		return nil, errors.New("stripe: checkout session has no url")
	}
	return &Checkout{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	if p.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("stripe: retrieve checkout session: %w", err)
	}
	return sessionFrom(s), nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if p.cfg.WebhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && ev.Data != nil {
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		out.Session = sessionFrom(&s)
	}
	return out, nil
}

// sessionFrom maps the SDK object.  Email prefers customer_email and falls
// back to the address collected on the hosted page.
func sessionFrom(s *stripe.CheckoutSession) *Session {
	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	status := string(s.PaymentStatus)
	return &Session{
		ID:            s.ID,
		Paid:          s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		PaymentStatus: status,
		Role:          s.Metadata["role"],
		Email:         email,
	}
}
