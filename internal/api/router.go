package api

import (
	"context"
	"log/slog"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/couchkit/internal/api/handlers"
	"github.com/welldanyogia/couchkit/internal/api/middleware"
	"github.com/welldanyogia/couchkit/internal/logger"
	"github.com/welldanyogia/couchkit/internal/storage"
	"github.com/welldanyogia/couchkit/internal/websocket"
	"gorm.io/gorm"
)

// CouchAdapter is everything the router needs from the CouchDB adapter
type CouchAdapter interface {
	handlers.AttachmentAdapter
	handlers.DocumentFetcher
	Ping(ctx context.Context) error
}

// Store is everything the router needs from the host record store
type Store interface {
	handlers.RecordStore
	handlers.DocumentIndexer
}

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB       *gorm.DB
	Adapter  CouchAdapter
	Store    Store
	Registry handlers.TypeRegistry
	Hub      *websocket.Hub
	Staging  storage.StagingArea
	Upgrader gorillaws.Upgrader
	Logger   *slog.Logger
	Security *logger.SecurityLogger

	// Security configuration
	APIKey         string                    // API key for authentication (empty = disabled)
	AllowedOrigins []string                  // Allowed CORS origins
	Production     bool                      // Drops wildcard CORS origins
	Limiter        *middleware.IPRateLimiter // nil disables rate limiting
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true

	// Order matters: the request logger sees the status Recover produces
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))
	if cfg.Limiter != nil {
		e.Use(middleware.RateLimiter(cfg.Limiter, cfg.Security))
	}

	auth := middleware.APIKeyAuth(cfg.APIKey, cfg.Security)

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Adapter)
	attachmentHandler := handlers.NewAttachmentHandler(cfg.Adapter, cfg.Store, cfg.Staging, cfg.Hub, cfg.Registry, cfg.Security, log)
	documentHandler := handlers.NewDocumentHandler(cfg.Adapter, cfg.Store, cfg.Registry, log)
	feedHandler := handlers.NewUploadFeedHandler(cfg.Hub, cfg.Upgrader, log)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	api := e.Group("/api", auth)

	// Attachment ids are "<doc_id>/<name>", so both halves are path params
	attachments := api.Group("/attachments")
	attachments.GET("", attachmentHandler.List)
	attachments.GET("/:doc_id/:name", attachmentHandler.Get)
	attachments.PUT("/:doc_id/:name", attachmentHandler.Upload)
	attachments.GET("/:doc_id/:name/download", attachmentHandler.Download)

	documents := api.Group("/documents")
	documents.POST("/:doc_type/:id/index", documentHandler.Index)

	e.GET("/ws/uploads", feedHandler.Serve, auth)

	return e
}
