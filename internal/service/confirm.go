package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/ledger"
	"github.com/iliyamo/blueprint-paywall/internal/logger"
	"github.com/iliyamo/blueprint-paywall/internal/metrics"
	"github.com/iliyamo/blueprint-paywall/internal/payment"
	"github.com/iliyamo/blueprint-paywall/internal/queue"
	"github.com/iliyamo/blueprint-paywall/internal/token"
)

const publishTimeout = 3 * time.Second

// Confirmation is the outcome of a successful confirmation.  Token is only
// set on the synchronous success path.
type Confirmation struct {
	SessionID string
	Role      string
	Email     string
	Token     string
}

// WebhookResult describes what a verified webhook delivery did.
type WebhookResult struct {
	EventID   string
	Type      string
	SessionID string
	Recorded  bool
}

// ConfirmerOptions configures a Confirmer.  DefaultRole is used when session
// metadata carries no role; leave it empty to treat that as ErrMissingRole.
type ConfirmerOptions struct {
	DefaultRole string
	Publisher   EventPublisher
	Log         *zap.Logger
	Metrics     *metrics.Metrics
}

// Confirmer drives the unconfirmed -> confirmed transition from all three
// entry points.  Every path is safe to repeat: the ledger write is an
// overwrite keyed by session id.
type Confirmer struct {
	provider    payment.Provider
	ledger      *ledger.Ledger
	codec       *token.Codec
	defaultRole string
	publisher   EventPublisher
	log         *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewConfirmer(p payment.Provider, l *ledger.Ledger, c *token.Codec, opts ConfirmerOptions) *Confirmer {
	if opts.Publisher == nil {
		opts.Publisher = NopPublisher{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Confirmer{
		provider:    p,
		ledger:      l,
		codec:       c,
		defaultRole: strings.ToLower(strings.TrimSpace(opts.DefaultRole)),
		publisher:   opts.Publisher,
		log:         opts.Log.Named("confirm"),
		metrics:     opts.Metrics,
		now:         time.Now,
	}
}

func (s *Confirmer) resolveRole(meta string) (string, error) {
	role := strings.ToLower(strings.TrimSpace(meta))
	if role == "" {
		role = s.defaultRole
	}
	if role == "" {
		return "", ErrMissingRole
	}
	return role, nil
}

// record writes the ledger and announces the write.  Publishing never fails
// the caller.
func (s *Confirmer) record(ctx context.Context, source, sessionID, role, email string) error {
	if err := s.ledger.Record(ctx, sessionID, role, email); err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := queue.FulfillmentRecorded{
		SessionID:  sessionID,
		Role:       role,
		Email:      email,
		Source:     source,
		RecordedAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(pctx, ev); err != nil {
		s.log.Warn("fulfillment event not published",
			logger.CtxField(ctx), zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// Confirm is the synchronous path taken when the buyer returns from the
// hosted page: it checks the session is paid, records it and mints the
// access token for the cookie.
func (s *Confirmer) Confirm(ctx context.Context, sessionID string) (*Confirmation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	sess, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		s.metrics.Confirmation(queue.SourceSuccess, "error")
		return nil, fmt.Errorf("retrieve session: %w", err)
	}
	if !sess.Paid {
		s.metrics.Confirmation(queue.SourceSuccess, "unpaid")
		return nil, ErrPaymentIncomplete
	}
	role, err := s.resolveRole(sess.Role)
	if err != nil {
		s.metrics.Confirmation(queue.SourceSuccess, "no_role")
		return nil, err
	}
	if err := s.record(ctx, queue.SourceSuccess, sessionID, role, sess.Email); err != nil {
		return nil, err
	}
	tok, err := s.codec.Issue(role, sessionID)
	if err != nil {
		s.metrics.Confirmation(queue.SourceSuccess, "error")
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	s.metrics.Confirmation(queue.SourceSuccess, "recorded")
	s.log.Info("payment confirmed",
		logger.CtxField(ctx), zap.String("session_id", sessionID), zap.String("role", role))
	return &Confirmation{SessionID: sessionID, Role: role, Email: sess.Email, Token: tok}, nil
}

// Verify re-validates a session without issuing a token.  When the provider
// reports the session paid but the ledger has no record yet (the webhook has
// not arrived), it records the fulfillment itself.
func (s *Confirmer) Verify(ctx context.Context, sessionID string) (*Confirmation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	sess, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		s.metrics.Confirmation(queue.SourceVerify, "error")
		return nil, fmt.Errorf("retrieve session: %w", err)
	}
	if !sess.Paid {
		s.metrics.Confirmation(queue.SourceVerify, "unpaid")
		return nil, ErrPaymentIncomplete
	}

	outcome := "found"
	f := s.ledger.Get(ctx, sessionID)
	if f == nil {
		role, err := s.resolveRole(sess.Role)
		if err != nil {
			s.metrics.Confirmation(queue.SourceVerify, "no_role")
			return nil, err
		}
		if err := s.record(ctx, queue.SourceVerify, sessionID, role, sess.Email); err != nil {
			return nil, err
		}
		outcome = "recorded"
		if f = s.ledger.Get(ctx, sessionID); f == nil {
			s.metrics.Confirmation(queue.SourceVerify, "unconfirmed")
			return nil, ErrNotConfirmed
		}
	}

	role := f.Role
	if role == "" {
		role = sess.Role
	}
	if role == "" {
		return nil, ErrMissingRole
	}
	s.metrics.Confirmation(queue.SourceVerify, outcome)
	return &Confirmation{SessionID: sessionID, Role: strings.ToLower(role), Email: sess.Email}, nil
}

// HandleWebhook verifies a provider delivery and records completed checkout
// sessions.  Only signature problems are returned as errors; anything that
// goes wrong afterwards is logged and the delivery is still acknowledged.
func (s *Confirmer) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if signature == "" {
		s.metrics.Confirmation(queue.SourceWebhook, "unsigned")
		return nil, ErrSignatureMissing
	}
	ev, err := s.provider.ParseWebhook(payload, signature)
	switch {
	case errors.Is(err, payment.ErrWebhookSecretMissing):
		s.metrics.Confirmation(queue.SourceWebhook, "unsigned")
		return nil, ErrSignatureMissing
	case errors.Is(err, payment.ErrInvalidSignature):
		s.metrics.Confirmation(queue.SourceWebhook, "bad_signature")
		s.log.Warn("webhook signature verification failed", logger.CtxField(ctx))
		return nil, ErrSignatureInvalid
	case err != nil:
		s.metrics.Confirmation(queue.SourceWebhook, "error")
		s.log.Error("webhook event could not be decoded", logger.CtxField(ctx), zap.Error(err))
		return &WebhookResult{}, nil
	}

	res := &WebhookResult{EventID: ev.ID, Type: ev.Type}
	s.log.Info("webhook event received",
		logger.CtxField(ctx), zap.String("event_id", ev.ID), zap.String("type", ev.Type))
	if ev.Type != payment.EventCheckoutCompleted || ev.Session == nil {
		s.metrics.Confirmation(queue.SourceWebhook, "ignored")
		return res, nil
	}

	sess := ev.Session
	res.SessionID = sess.ID
	if !sess.Paid && sess.PaymentStatus != "no_payment_required" {
		s.metrics.Confirmation(queue.SourceWebhook, "unpaid")
		s.log.Warn("completed session is not paid",
			logger.CtxField(ctx), zap.String("session_id", sess.ID), zap.String("payment_status", sess.PaymentStatus))
		return res, nil
	}
	role, err := s.resolveRole(sess.Role)
	if err != nil {
		s.metrics.Confirmation(queue.SourceWebhook, "no_role")
		s.log.Error("completed session has no role",
			logger.CtxField(ctx), zap.String("session_id", sess.ID))
		return res, nil
	}
	if err := s.record(ctx, queue.SourceWebhook, sess.ID, role, sess.Email); err != nil {
		s.metrics.Confirmation(queue.SourceWebhook, "error")
		s.log.Error("failed to record fulfillment",
			logger.CtxField(ctx), zap.String("session_id", sess.ID), zap.Error(err))
		return res, nil
	}
	res.Recorded = true
	s.metrics.Confirmation(queue.SourceWebhook, "recorded")
	s.log.Info("fulfillment recorded",
		logger.CtxField(ctx), zap.String("session_id", sess.ID), zap.String("role", role))
	return res, nil
}
