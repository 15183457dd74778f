package middleware

// identity.go holds the caller identification shared by the rate limiter and
// the request logger.

import "github.com/labstack/echo/v4"

// subject returns the authenticated admin subject set by JWTAuth, or "anon"
// for the anonymous buyers that make up almost all traffic.
func subject(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return "anon"
}
