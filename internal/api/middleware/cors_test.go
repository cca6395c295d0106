package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serveWithCORS(mw echo.MiddlewareFunc, method, origin string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(mw)
	e.GET("/api/attachments", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	req := httptest.NewRequest(method, "/api/attachments", nil)
	req.Header.Set(echo.HeaderOrigin, origin)
	if method == http.MethodOptions {
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPut)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSecureCORS_AllowedOrigin(t *testing.T) {
	mw := SecureCORS([]string{"http://localhost:3000", "http://example.com"}, false)

	rec := serveWithCORS(mw, http.MethodGet, "http://example.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestSecureCORS_DisallowedOrigin(t *testing.T) {
	mw := SecureCORS([]string{"http://localhost:3000"}, false)

	rec := serveWithCORS(mw, http.MethodGet, "http://malicious.com")

	// Request still succeeds but without CORS headers for disallowed origin
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestSecureCORS_PreflightAllowsUploadMethod(t *testing.T) {
	mw := SecureCORS([]string{"http://localhost:3000"}, false)

	rec := serveWithCORS(mw, http.MethodOptions, "http://localhost:3000")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPut)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), APIKeyHeader)
}

func TestSecureCORS_DefaultsToLocalhost(t *testing.T) {
	mw := SecureCORS(nil, false)

	rec := serveWithCORS(mw, http.MethodGet, defaultOrigin)

	assert.Equal(t, defaultOrigin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestSecureCORS_ProductionDropsWildcard(t *testing.T) {
	mw := SecureCORS([]string{"*"}, true)

	rec := serveWithCORS(mw, http.MethodGet, "http://anything.example")

	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serveWithCORS(mw, http.MethodGet, defaultOrigin)
	assert.Equal(t, defaultOrigin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestSecureCORS_WildcardOutsideProduction(t *testing.T) {
	mw := SecureCORS([]string{"*"}, false)

	rec := serveWithCORS(mw, http.MethodGet, "http://anything.example")

	assert.NotEmpty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
