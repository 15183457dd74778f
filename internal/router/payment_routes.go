package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blueprint-paywall/internal/handler"
)

// RegisterPayments registers checkout, confirmation and webhook endpoints.
// limiter guards the endpoints a browser can hammer; the webhook is left
// unthrottled so provider retries are never rejected.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, limiter echo.MiddlewareFunc) {
	e.POST("/api/create-checkout-session", h.CreateCheckoutSession, limiter)

	g := e.Group("/api/stripe")
	g.POST("/success", h.Success, limiter)
	g.POST("/verify-session", h.VerifySession, limiter)
	g.POST("/webhook", h.Webhook)
	g.GET("/webhook", h.WebhookInfo)
}
