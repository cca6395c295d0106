package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultOrigin = "http://localhost:3000"

// SecureCORS returns CORS middleware restricted to the given origins.
// A wildcard origin is dropped in production.
func SecureCORS(origins []string, production bool) echo.MiddlewareFunc {
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "" || (production && origin == "*") {
			continue
		}
		allowed = append(allowed, origin)
	}
	if len(allowed) == 0 {
		allowed = []string{defaultOrigin}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowed,
		AllowMethods: []string{echo.GET, echo.HEAD, echo.POST, echo.PUT, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, APIKeyHeader,
		},
		ExposeHeaders:    []string{echo.HeaderContentDisposition, "ETag"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
