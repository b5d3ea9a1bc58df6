package middleware

import (
	"priceSense/pkg/tracing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const traceIDKey = "trace_id"

// RequestID propagates X-Request-ID, minting one when absent, and stores it
// as the request's trace id.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, id)
			c.Set(traceIDKey, id)
			c.SetRequest(req.WithContext(tracing.WithTraceID(req.Context(), id)))

			return next(c)
		}
	}
}
