package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("directory-test-key")

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func identify(t *testing.T, cfg Config, authorization string) string {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/fhir/Organization", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got string
	h := Identify(cfg)(func(c echo.Context) error {
		got = Principal(c)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return got
}

func TestIdentifyAnonymousWithoutHeader(t *testing.T) {
	if got := identify(t, Config{SigningKey: testKey}, ""); got != Anonymous {
		t.Fatalf("principal = %q, want anonymous", got)
	}
}

func TestIdentifyValidToken(t *testing.T) {
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "svc-lookup",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	if got := identify(t, Config{SigningKey: testKey}, "Bearer "+token); got != "svc-lookup" {
		t.Fatalf("principal = %q, want svc-lookup", got)
	}
}

func TestIdentifyPrefersClientName(t *testing.T) {
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "abc123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		ClientName: "appointment-scheduler",
	})

	if got := identify(t, Config{SigningKey: testKey}, "Bearer "+token); got != "appointment-scheduler" {
		t.Fatalf("principal = %q, want appointment-scheduler", got)
	}
}

func TestIdentifyDegradesOnBadToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := identify(t, Config{SigningKey: testKey}, tc.header); got != Anonymous {
				t.Fatalf("principal = %q, want anonymous", got)
			}
		})
	}
}

func TestIdentifyRejectsExpiredToken(t *testing.T) {
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "svc-lookup",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	if got := identify(t, Config{SigningKey: testKey}, "Bearer "+token); got != Anonymous {
		t.Fatalf("principal = %q, want anonymous for expired token", got)
	}
}

func TestIdentifyChecksIssuer(t *testing.T) {
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "svc-lookup",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	cfg := Config{SigningKey: testKey, Issuer: "directory-gateway"}
	if got := identify(t, cfg, "Bearer "+token); got != Anonymous {
		t.Fatalf("principal = %q, want anonymous for wrong issuer", got)
	}
}
