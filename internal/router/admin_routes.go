package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blueprint-paywall/internal/handler"
	"github.com/iliyamo/blueprint-paywall/internal/middleware"
	"github.com/iliyamo/blueprint-paywall/internal/utils"
)

// RegisterAdmin registers the operator API.  Login is rate limited; the rest
// requires a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.POST("/api/admin/login", a.Login, limiter)

	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.AdminRole),
	)
	g.GET("/fulfillments", a.ListFulfillments)
	g.GET("/fulfillments/:session_id", a.GetFulfillment)
}
