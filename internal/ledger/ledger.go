// Package ledger records which checkout sessions were confirmed paid.
//
// A Ledger writes to a durable Store (Redis) when one is configured and keeps
// an in-process MemoryStore as fallback.  With no durable store the ledger is
// in degraded mode: every record lives only in this process.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/logger"
	"github.com/iliyamo/blueprint-paywall/internal/metrics"
	"github.com/iliyamo/blueprint-paywall/internal/model"
)

// TTL is how long the durable store keeps a record.
const TTL = 90 * 24 * time.Hour

var (
	ErrMissingSessionID = errors.New("ledger: session id is required")
	ErrMissingRole      = errors.New("ledger: role is required")
)

type Ledger struct {
	durable  Store
	fallback *MemoryStore
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New builds a Ledger.  durable may be nil (degraded mode); a nil fallback or
// logger is replaced with a fresh MemoryStore or a no-op logger.
func New(durable Store, fallback *MemoryStore, log *zap.Logger, m *metrics.Metrics) *Ledger {
	if fallback == nil {
		fallback = NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		durable:  durable,
		fallback: fallback,
		log:      log.Named("ledger"),
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock replaces the time source used to stamp CreatedAt.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Durable reports whether a durable store is configured.
func (l *Ledger) Durable() bool {
	return l.durable != nil
}

// Record upserts the fulfillment for sessionID.  Durable write failures fall
// back to memory and are logged; only invalid input is returned as an error.
func (l *Ledger) Record(ctx context.Context, sessionID, role, email string) error {
	if sessionID == "" {
		return ErrMissingSessionID
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrMissingRole
	}
	f := model.Fulfillment{
		SessionID: sessionID,
		Role:      role,
		Email:     email,
		CreatedAt: l.now().UnixMilli(),
	}

	if l.durable != nil {
		err := l.durable.Set(ctx, f, TTL)
		if err == nil {
			return nil
		}
		l.log.Warn("durable write failed, using in-memory fallback",
			logger.CtxField(ctx),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		l.metrics.LedgerFallback("set")
	}
	_ = l.fallback.Set(ctx, f, TTL)
	return nil
}

// Get returns the record for sessionID, or nil.  The in-memory store is only
// consulted when the durable store errors, never after a legitimate miss.
func (l *Ledger) Get(ctx context.Context, sessionID string) *model.Fulfillment {
	if sessionID == "" {
		return nil
	}
	if l.durable == nil {
		f, _ := l.fallback.Get(ctx, sessionID)
		return f
	}
	f, err := l.durable.Get(ctx, sessionID)
	if err == nil {
		return f
	}
	l.log.Warn("durable read failed, using in-memory fallback",
		logger.CtxField(ctx),
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
	l.metrics.LedgerFallback("get")
	f, _ = l.fallback.Get(ctx, sessionID)
	return f
}

// Has reports whether sessionID is recorded for role (case-insensitive).
func (l *Ledger) Has(ctx context.Context, sessionID, role string) bool {
	f := l.Get(ctx, sessionID)
	return f != nil && f.Role == strings.ToLower(strings.TrimSpace(role))
}
