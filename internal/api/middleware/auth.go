// Package middleware provides HTTP middleware for the couchkit API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/logger"
)

// APIKeyHeader is an alternative to the Authorization header
const APIKeyHeader = "X-API-Key"

// APIKeyAuth validates the API key sent as a Bearer token or in X-API-Key.
// The upload feed may pass it as ?api_key= since browsers cannot set
// headers on a websocket handshake. An empty apiKey disables the check.
func APIKeyAuth(apiKey string, security *logger.SecurityLogger) echo.MiddlewareFunc {
	if apiKey == "" && security != nil {
		security.Logger().Warn("API_KEY not set - API is UNSECURED")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if apiKey == "" || isProbe(path) {
				return next(c)
			}

			token := presentedKey(c)
			if token == "" {
				return deny(c, security, "missing API key")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				return deny(c, security, "invalid API key")
			}
			return next(c)
		}
	}
}

func isProbe(path string) bool {
	return strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/ready")
}

func presentedKey(c echo.Context) string {
	req := c.Request()
	if auth := req.Header.Get(echo.HeaderAuthorization); auth != "" {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if key := req.Header.Get(APIKeyHeader); key != "" {
		return strings.TrimSpace(key)
	}
	if strings.HasPrefix(c.Path(), "/ws/") {
		return c.QueryParam("api_key")
	}
	return ""
}

func deny(c echo.Context, security *logger.SecurityLogger, reason string) error {
	if security != nil {
		security.AuthFailure(c.RealIP(), c.Path(), reason)
	}
	return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
		"error": reason,
		"code":  apperrors.CodeUnauthorized,
	})
}
