package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/catalog"
	"github.com/iliyamo/blueprint-paywall/internal/logger"
	"github.com/iliyamo/blueprint-paywall/internal/metrics"
	"github.com/iliyamo/blueprint-paywall/internal/payment"
)

// Checkout starts hosted checkout sessions.
type Checkout struct {
	provider payment.Provider
	catalog  *catalog.Catalog
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewCheckout(p payment.Provider, c *catalog.Catalog, log *zap.Logger, m *metrics.Metrics) *Checkout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checkout{provider: p, catalog: c, log: log.Named("checkout"), metrics: m}
}

// Start creates a checkout session for role and returns the hosted page URL.
// The role travels in the session metadata; nothing is stored locally.
func (s *Checkout) Start(ctx context.Context, role, email string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return "", ErrMissingRole
	}
	if s.catalog != nil && !s.catalog.Has(role) {
		return "", ErrUnknownRole
	}

	co, err := s.provider.CreateCheckout(ctx, payment.CheckoutRequest{
		Role:           role,
		Email:          strings.TrimSpace(email),
		IdempotencyKey: "checkout-" + uuid.NewString(),
	})
	if err != nil {
		s.metrics.Checkout("failed")
		s.log.Error("create checkout session failed",
			logger.CtxField(ctx), zap.String("role", role), zap.Error(err))
		return "", fmt.Errorf("create checkout: %w", err)
	}
	s.metrics.Checkout("created")
	s.log.Info("checkout session created",
		logger.CtxField(ctx), zap.String("role", role), zap.String("session_id", co.ID))
	return co.URL, nil
}
