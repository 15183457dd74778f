package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/blueprint-paywall/internal/config"
	"github.com/iliyamo/blueprint-paywall/internal/handler"
	"github.com/iliyamo/blueprint-paywall/internal/ledger"
	"github.com/iliyamo/blueprint-paywall/internal/metrics"
	"github.com/iliyamo/blueprint-paywall/internal/utils"
)

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	m := metrics.New()
	RegisterRoutes(e, ledger.New(nil, nil, nil, nil), m)
	m.Checkout("created")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grq_checkout_sessions_total")
}

func TestRegisterAdmin_RequiresToken(t *testing.T) {
	hash, err := utils.HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{AdminUser: "admin", AdminPasswordHash: hash, AdminJWTSecret: "jwt", AdminTokenTTLMin: 5}

	e := echo.New()
	RegisterAdmin(e, handler.NewAdminHandler(cfg, ledger.New(nil, nil, nil, nil), nil, nil), cfg.AdminJWTSecret, passthrough)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/fulfillments", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"username":"admin","password":"pw"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	tok, err := utils.NewAccessToken("jwt", "admin", utils.AdminRole, 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/admin/fulfillments", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
