package service_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blueprint-paywall/internal/metrics"
	"github.com/iliyamo/blueprint-paywall/internal/service"
)

func TestGate_CookieCorroboratedByLedger(t *testing.T) {
	e := newEnv(t, true, "")
	ctx := context.Background()
	require.NoError(t, e.ledger.Record(ctx, "cs_1", "architect", ""))
	cookie, err := e.codec.Issue("architect", "cs_1")
	require.NoError(t, err)

	g := service.NewGate(e.codec, e.ledger, nil, nil)
	assert.Equal(t, service.Decision{Granted: true, Method: service.MethodCookie},
		g.Decide(ctx, "Architect", cookie, ""))
}

func TestGate_RoleMismatchDenied(t *testing.T) {
	e := newEnv(t, true, "")
	ctx := context.Background()
	require.NoError(t, e.ledger.Record(ctx, "cs_1", "driver", ""))
	cookie, err := e.codec.Issue("driver", "cs_1")
	require.NoError(t, err)

	g := service.NewGate(e.codec, e.ledger, nil, nil)
	assert.False(t, g.Decide(ctx, "architect", cookie, "").Granted)
}

func TestGate_CookieWithoutLedgerRecordDenied(t *testing.T) {
	e := newEnv(t, true, "")
	cookie, err := e.codec.Issue("architect", "cs_unknown")
	require.NoError(t, err)

	g := service.NewGate(e.codec, e.ledger, nil, nil)
	assert.False(t, g.Decide(context.Background(), "architect", cookie, "").Granted)
}

func TestGate_DegradedTrustsCookie(t *testing.T) {
	e := newEnv(t, false, "")
	cookie, err := e.codec.Issue("architect", "cs_issued_elsewhere")
	require.NoError(t, err)

	g := service.NewGate(e.codec, e.ledger, nil, nil)
	assert.Equal(t, service.Decision{Granted: true, Method: service.MethodCookieDegraded},
		g.Decide(context.Background(), "architect", cookie, ""))

	// a matching in-memory record is reported as a regular cookie grant
	require.NoError(t, e.ledger.Record(context.Background(), "cs_issued_elsewhere", "architect", ""))
	assert.Equal(t, service.MethodCookie, g.Decide(context.Background(), "architect", cookie, "").Method)
}

func TestGate_TamperedCookieDenied(t *testing.T) {
	e := newEnv(t, false, "")
	cookie, err := e.codec.Issue("driver", "cs_1")
	require.NoError(t, err)
	forged := "architect" + cookie[len("driver"):]

	g := service.NewGate(e.codec, e.ledger, nil, nil)
	assert.False(t, g.Decide(context.Background(), "architect", forged, "").Granted)
	assert.False(t, g.Decide(context.Background(), "architect", "garbage", "").Granted)
}

func TestGate_SessionIDQuery(t *testing.T) {
	e := newEnv(t, true, "")
	ctx := context.Background()
	require.NoError(t, e.ledger.Record(ctx, "cs_q", "builder", ""))

	g := service.NewGate(e.codec, e.ledger, nil, nil)
	assert.Equal(t, service.Decision{Granted: true, Method: service.MethodSessionID},
		g.Decide(ctx, "builder", "", "cs_q"))
	assert.False(t, g.Decide(ctx, "guide", "", "cs_q").Granted)
	assert.False(t, g.Decide(ctx, "builder", "", "cs_unrecorded").Granted)
}

func TestGate_SessionIDAfterRejectedCookie(t *testing.T) {
	e := newEnv(t, true, "")
	ctx := context.Background()
	require.NoError(t, e.ledger.Record(ctx, "cs_q", "builder", ""))
	other, err := e.codec.Issue("driver", "cs_other")
	require.NoError(t, err)

	g := service.NewGate(e.codec, e.ledger, nil, nil)
	assert.Equal(t, service.MethodSessionID, g.Decide(ctx, "builder", other, "cs_q").Method)
}

func TestGate_NothingPresented(t *testing.T) {
	e := newEnv(t, false, "")
	m := metrics.New()
	g := service.NewGate(e.codec, e.ledger, nil, m)

	assert.Equal(t, service.Decision{}, g.Decide(context.Background(), "architect", "", ""))
	assert.Equal(t, service.Decision{}, g.Decide(context.Background(), "", "x", "y"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AccessDecisions.WithLabelValues("none", "false")))
}
