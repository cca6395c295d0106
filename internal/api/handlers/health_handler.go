package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Pinger reports whether an upstream dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db    *gorm.DB
	couch Pinger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *gorm.DB, couch Pinger) *HealthHandler {
	return &HealthHandler{db: db, couch: couch}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (h *HealthHandler) pingDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	services := map[string]string{"database": "healthy", "couchdb": "healthy"}
	status := "healthy"

	if err := h.pingDatabase(ctx); err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	}
	if err := h.couch.Ping(ctx); err != nil {
		services["couchdb"] = "unhealthy"
		status = "unhealthy"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.pingDatabase(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
	}

	if err := h.couch.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "couchdb unreachable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}
