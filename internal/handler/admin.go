package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/config"
	"github.com/iliyamo/blueprint-paywall/internal/ledger"
	"github.com/iliyamo/blueprint-paywall/internal/logger"
	"github.com/iliyamo/blueprint-paywall/internal/model"
	"github.com/iliyamo/blueprint-paywall/internal/repository"
	"github.com/iliyamo/blueprint-paywall/internal/utils"
)

// AdminHandler bundles dependencies for the operator endpoints.
type AdminHandler struct {
	Cfg     config.Config
	Ledger  *ledger.Ledger
	Archive *repository.AuditRepo
	Log     *zap.Logger
}

func NewAdminHandler(cfg config.Config, l *ledger.Ledger, archive *repository.AuditRepo, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Cfg: cfg, Ledger: l, Archive: archive, Log: log.Named("admin")}
}

type adminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type fulfillmentResp struct {
	SessionID string             `json:"session_id"`
	Ledger    *model.Fulfillment `json:"ledger"`
	Archive   *model.AuditEntry  `json:"archive"`
}

// Login: POST /api/admin/login
func (h *AdminHandler) Login(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.Cfg.AdminUser)) == 1
	if !utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password) || !userOK {
		h.Log.Warn("admin login rejected", logger.CtxField(c.Request().Context()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.AdminJWTSecret, h.Cfg.AdminUser, utils.AdminRole, h.Cfg.AdminTokenTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": access.Token, "expires": access.Exp})
}

// ListFulfillments: GET /api/admin/fulfillments?limit=
func (h *AdminHandler) ListFulfillments(c echo.Context) error {
	if !h.Archive.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": repository.ErrArchiveDisabled.Error()})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Archive.List(ctx, limit)
	if err != nil {
		h.Log.Error("list archive failed", logger.CtxField(ctx), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if items == nil {
		items = []model.AuditEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetFulfillment: GET /api/admin/fulfillments/:session_id
// Combines the live ledger record with the archived row, if any.
func (h *AdminHandler) GetFulfillment(c echo.Context) error {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp := fulfillmentResp{SessionID: sessionID, Ledger: h.Ledger.Get(ctx, sessionID)}
	if h.Archive.Enabled() {
		e, err := h.Archive.GetBySession(ctx, sessionID)
		switch {
		case err == nil:
			resp.Archive = &e
		case !errors.Is(err, repository.ErrNotFound):
			h.Log.Error("archive lookup failed", logger.CtxField(ctx), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}
	if resp.Ledger == nil && resp.Archive == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "fulfillment not found"})
	}
	return c.JSON(http.StatusOK, resp)
}
