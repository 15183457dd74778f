package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/logger"
	"github.com/iliyamo/blueprint-paywall/internal/service"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 1 << 20

// PaymentHandler serves checkout start, confirmation and webhook endpoints.
type PaymentHandler struct {
	Checkout  *service.Checkout
	Confirmer *service.Confirmer
	Cookie    CookieOptions
	Log       *zap.Logger
}

func NewPaymentHandler(co *service.Checkout, cf *service.Confirmer, cookie CookieOptions, log *zap.Logger) *PaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{Checkout: co, Confirmer: cf, Cookie: cookie, Log: log.Named("payment")}
}

type checkoutReq struct {
	Role  string `json:"role"`
	Email string `json:"email"`
}

type sessionReq struct {
	SessionID string `json:"session_id"`
}

type confirmResp struct {
	Success bool   `json:"success"`
	Role    string `json:"role"`
	Email   string `json:"email,omitempty"`
}

// CreateCheckoutSession: POST /api/create-checkout-session
func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	url, err := h.Checkout.Start(c.Request().Context(), req.Role, req.Email)
	switch {
	case errors.Is(err, service.ErrMissingRole):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role is required"})
	case errors.Is(err, service.ErrUnknownRole):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create checkout session"})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// Success: POST /api/stripe/success
// Confirms the session, records the fulfillment and sets the access cookie.
func (h *PaymentHandler) Success(c echo.Context) error {
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	res, err := h.Confirmer.Confirm(ctx, req.SessionID)
	switch {
	case errors.Is(err, service.ErrMissingSessionID):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing or invalid session_id"})
	case errors.Is(err, service.ErrPaymentIncomplete):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment not completed"})
	case errors.Is(err, service.ErrMissingRole):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no role found in session"})
	case err != nil:
		h.Log.Error("success confirmation failed", logger.CtxField(ctx), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process payment confirmation"})
	}
	c.SetCookie(h.Cookie.access(res.Token))
	return c.JSON(http.StatusOK, confirmResp{Success: true, Role: res.Role, Email: res.Email})
}

// VerifySession: POST /api/stripe/verify-session
func (h *PaymentHandler) VerifySession(c echo.Context) error {
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	res, err := h.Confirmer.Verify(ctx, req.SessionID)
	switch {
	case errors.Is(err, service.ErrMissingSessionID):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing or invalid session_id"})
	case errors.Is(err, service.ErrPaymentIncomplete):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "payment not completed"})
	case errors.Is(err, service.ErrNotConfirmed):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session not yet confirmed"})
	case errors.Is(err, service.ErrMissingRole):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no role found in session"})
	case err != nil:
		h.Log.Error("session verification failed", logger.CtxField(ctx), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to verify session"})
	}
	return c.JSON(http.StatusOK, confirmResp{Success: true, Role: res.Role, Email: res.Email})
}

// Webhook: POST /api/stripe/webhook
// The raw body is needed for signature verification, so it is read directly
// instead of bound.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	_, err = h.Confirmer.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, service.ErrSignatureMissing):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing signature or webhook secret"})
	case errors.Is(err, service.ErrSignatureInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "webhook handling failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// WebhookInfo: GET /api/stripe/webhook
func (h *PaymentHandler) WebhookInfo(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderAllow, http.MethodPost)
	return c.String(http.StatusMethodNotAllowed,
		"Stripe webhook endpoint. POST only. Configure this URL in your Stripe Dashboard under Developers > Webhooks.")
}
