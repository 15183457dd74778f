// Package router defines how HTTP routes are registered for the site.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blueprint-paywall/internal/handler"
	"github.com/iliyamo/blueprint-paywall/internal/ledger"
	"github.com/iliyamo/blueprint-paywall/internal/metrics"
)

// RegisterRoutes registers the operational endpoints: the health check and
// the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, l *ledger.Ledger, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health(l))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterPages registers the HTML pages and the public catalog.  cache is
// applied to the catalog listing only; gated responses are never cached.
func RegisterPages(e *echo.Echo, p *handler.PageHandler, cache echo.MiddlewareFunc) {
	e.GET("/success", p.Success)
	e.GET("/stripe/cancel", p.Cancel)
	e.GET("/blueprint/:role", p.Blueprint)

	e.GET("/api/blueprints", p.ListBlueprints, cache)
	e.GET("/api/blueprints/:role", p.BlueprintJSON)
}
