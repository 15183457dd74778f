package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/ledger"
	"github.com/iliyamo/blueprint-paywall/internal/logger"
	"github.com/iliyamo/blueprint-paywall/internal/metrics"
	"github.com/iliyamo/blueprint-paywall/internal/token"
)

// How access was granted.
const (
	MethodCookie         = "cookie"
	MethodCookieDegraded = "cookie_degraded"
	MethodSessionID      = "session_id"
)

// Decision is the access gate's answer.  Method is empty when access is
// denied.
type Decision struct {
	Granted bool
	Method  string
}

// Gate decides whether a visitor may see a role's full content.
type Gate struct {
	codec   *token.Codec
	ledger  *ledger.Ledger
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewGate(c *token.Codec, l *ledger.Ledger, log *zap.Logger, m *metrics.Metrics) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{codec: c, ledger: l, log: log.Named("gate"), metrics: m}
}

// Decide checks the access cookie first, then the legacy session_id query
// parameter.  A verified cookie for the requested role is corroborated with
// the ledger; only when no durable ledger is configured is the signature
// alone trusted (degraded mode).
func (g *Gate) Decide(ctx context.Context, role, cookie, sessionID string) Decision {
	d := g.decide(ctx, strings.ToLower(strings.TrimSpace(role)), cookie, strings.TrimSpace(sessionID))
	g.metrics.AccessDecision(d.Method, d.Granted)
	return d
}

func (g *Gate) decide(ctx context.Context, role, cookie, sessionID string) Decision {
	if role == "" {
		return Decision{}
	}
	if cookie != "" {
		if acc, err := g.codec.Verify(cookie); err == nil && strings.EqualFold(acc.Role, role) {
			if g.ledger.Has(ctx, acc.SessionID, role) {
				return Decision{Granted: true, Method: MethodCookie}
			}
			if !g.ledger.Durable() {
				return Decision{Granted: true, Method: MethodCookieDegraded}
			}
			g.log.Debug("cookie not corroborated by ledger",
				logger.CtxField(ctx), zap.String("session_id", acc.SessionID))
		}
	}
	if sessionID != "" && g.ledger.Has(ctx, sessionID, role) {
		return Decision{Granted: true, Method: MethodSessionID}
	}
	return Decision{}
}
