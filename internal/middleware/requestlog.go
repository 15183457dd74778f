package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/blueprint-paywall/internal/logger"
)

// RequestIDHeader carries the trace id in both directions.
const RequestIDHeader = echo.HeaderXRequestID

// RequestLogger assigns every request a trace id (reusing an incoming
// X-Request-ID), stores it on the request context for downstream logging,
// echoes it in the response and writes one log line when the request ends.
// Query strings are not logged: they can carry checkout session ids.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	log = log.Named("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			traceID := req.Header.Get(RequestIDHeader)
			if traceID == "" || len(traceID) > 128 {
				traceID = uuid.NewString()
			}
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), traceID)))
			c.Response().Header().Set(RequestIDHeader, traceID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			lvl := zapcore.InfoLevel
			switch {
			case status >= 500:
				lvl = zapcore.ErrorLevel
			case status >= 400:
				lvl = zapcore.WarnLevel
			}
			log.Check(lvl, "request").Write(
				zap.String("trace_id", traceID),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.String("subject", subject(c)),
			)
			return nil
		}
	}
}
