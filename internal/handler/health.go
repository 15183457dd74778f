package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blueprint-paywall/internal/ledger"
)

// Health is used by load balancers and monitoring.  It reports whether the
// fulfillment ledger runs on the durable store or in degraded (in-memory)
// mode; both are healthy.
func Health(l *ledger.Ledger) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode := "degraded"
		if l.Durable() {
			mode = "durable"
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "ledger": mode})
	}
}
