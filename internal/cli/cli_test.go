package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blueprint-paywall/internal/ledger"
	"github.com/iliyamo/blueprint-paywall/internal/model"
	"github.com/iliyamo/blueprint-paywall/internal/token"
	"github.com/iliyamo/blueprint-paywall/internal/utils"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenIssueAndVerify(t *testing.T) {
	t.Setenv("GRQ_COOKIE_SECRET", "")

	out, err := run(t, "token", "issue", "--cookie-secret", "s", "--role", "Driver", "--session", "cs_1")
	require.NoError(t, err)
	raw := strings.TrimSpace(out)
	acc, err := token.New("s").Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "driver", acc.Role)

	out, err = run(t, "token", "verify", "--cookie-secret", "s", raw)
	require.NoError(t, err)
	assert.Equal(t, "valid role=driver session_id=cs_1\n", out)

	_, err = run(t, "token", "verify", "--cookie-secret", "other", raw)
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = run(t, "token", "issue", "--role", "driver", "--session", "cs_1")
	assert.ErrorContains(t, err, "cookie secret")
}

func TestTokenIssueLegacyFromEnv(t *testing.T) {
	t.Setenv("GRQ_COOKIE_SECRET", "env-secret")

	out, err := run(t, "token", "issue", "--legacy", "--ttl", "1h", "--role", "guide", "--session", "cs_2")
	require.NoError(t, err)
	raw := strings.TrimSpace(out)
	assert.NotContains(t, raw, "|")
	acc, err := token.New("env-secret").Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "cs_2", acc.SessionID)
}

func TestLedgerGet(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	created := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, ledger.NewRedisStore(rdb, "prod").Set(context.Background(), model.Fulfillment{
		SessionID: "cs_9", Role: "builder", Email: "b@example.com", CreatedAt: created.UnixMilli(),
	}, ledger.TTL))

	out, err := run(t, "ledger", "get", "--kv-url", "redis://"+mr.Addr(), "--namespace", "prod", "cs_9")
	require.NoError(t, err)
	assert.Contains(t, out, `"role": "builder"`)
	assert.Contains(t, out, `"created_at": "2026-05-01T09:30:00Z"`)
	assert.Contains(t, out, `"expires_in": "2160h0m0s"`)

	_, err = run(t, "ledger", "get", "--kv-url", "redis://"+mr.Addr(), "cs_9")
	assert.ErrorContains(t, err, "no fulfillment recorded")
}

func TestLedgerGetRequiresEndpoint(t *testing.T) {
	for _, k := range []string{"KV_URL", "KV_REST_API_URL", "REDIS_URL"} {
		t.Setenv(k, "")
	}
	_, err := run(t, "ledger", "get", "cs_1")
	assert.ErrorContains(t, err, "ledger endpoint is not set")
}

func TestAdminCommands(t *testing.T) {
	out, err := run(t, "admin", "hash-password", "--cost", "4", "pw")
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(strings.TrimSpace(out), "pw"))

	_, err = run(t, "admin", "hash-password", "--cost", "99", "pw")
	assert.ErrorIs(t, err, utils.ErrBcryptCost)

	out, err = run(t, "admin", "token", "--jwt-secret", "j", "--admin-user", "ops", "--ttl", "5")
	require.NoError(t, err)
	parsed, err := jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (interface{}, error) { return []byte("j"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "ops", claims["sub"])
	assert.Equal(t, utils.AdminRole, claims["role"])
}
