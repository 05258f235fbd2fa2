package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger emits one structured line per request. Search endpoints carry their
// filters in the query string, so the raw query is logged alongside the path.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("query", req.URL.RawQuery).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
