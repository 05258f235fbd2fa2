// Package auth identifies API callers without gating them. The directory
// serves public provider data, so a missing or invalid bearer token never
// blocks a request; a valid one attaches a principal for logging and rate
// accounting.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// PrincipalKey is the echo context key the principal is stored under.
const PrincipalKey = "principal"

// Anonymous is the principal recorded when no usable token is presented.
const Anonymous = "anonymous"

// Config scopes token acceptance. Empty fields disable the corresponding
// check, matching how the directory is deployed behind a trusted gateway.
type Config struct {
	Issuer   string
	Audience string
	// SigningKey verifies HMAC-signed tokens issued by the gateway.
	SigningKey []byte
}

type Claims struct {
	jwt.RegisteredClaims
	ClientName string `json:"client_name"`
}

// Principal returns the caller identity recorded for the request.
func Principal(c echo.Context) string {
	if p, ok := c.Get(PrincipalKey).(string); ok && p != "" {
		return p
	}
	return Anonymous
}

// Identify parses an optional Authorization bearer token and records the
// subject as the request principal. Parse failures degrade to anonymous.
func Identify(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(PrincipalKey, principalFromHeader(cfg, c.Request().Header.Get(echo.HeaderAuthorization)))
			return next(c)
		}
	}
}

func principalFromHeader(cfg Config, header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return Anonymous
	}
	raw := strings.TrimSpace(header[len(prefix):])
	if raw == "" || len(cfg.SigningKey) == 0 {
		return Anonymous
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Anonymous
	}

	if claims.ClientName != "" {
		return claims.ClientName
	}
	if claims.Subject != "" {
		return claims.Subject
	}
	return Anonymous
}
