package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// Timeout puts a deadline on each request context. A search that blows past
// the deadline gets a 504 OperationOutcome; the database round trips observe
// the same cancellation through the request context.
func Timeout(limit time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), limit)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded && !c.Response().Committed {
					return fhir.JSON(c, http.StatusGatewayTimeout,
						fhir.NewOperationOutcome("error", "timeout", "request processing exceeded the allowed time limit"))
				}
				return ctx.Err()
			}
		}
	}
}
