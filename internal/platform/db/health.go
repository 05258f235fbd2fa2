package db

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is what the health check needs from the pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthStatus struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// HealthHandler reports whether the directory database is reachable. It
// answers 200 with a connected payload on success and 502 when the round
// trip fails, so load balancers can pull the instance without parsing the
// body.
func HealthHandler(pinger Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status := healthStatus{
			Status:    "healthy",
			Database:  "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK

		if err := pinger.Ping(ctx); err != nil {
			status.Status = "unhealthy"
			status.Database = "disconnected"
			code = http.StatusBadGateway
		}

		return c.JSON(code, status)
	}
}
