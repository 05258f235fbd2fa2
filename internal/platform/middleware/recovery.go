package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// Recovery converts a handler panic into a 500 OperationOutcome and logs the
// stack. The panic value is never echoed to the client.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					rid, _ := c.Get("request_id").(string)
					logger.Error().
						Str("request_id", rid).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					if !c.Response().Committed {
						err = fhir.JSON(c, http.StatusInternalServerError,
							fhir.ErrorOutcome("internal server error"))
					}
				}
			}()
			return next(c)
		}
	}
}
