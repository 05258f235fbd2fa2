// Package middleware holds the echo middleware shared by every route:
// request identification, structured request logging, panic recovery, a
// per-client rate limit, and a request deadline.
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderRequestID is the inbound/outbound correlation header.
const HeaderRequestID = "X-Request-ID"

// RequestID assigns each request a correlation id, honoring one supplied by
// the caller. The id is stored on the context for the logger and echoed back
// in the response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(HeaderRequestID, rid)
			return next(c)
		}
	}
}
