package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/welldanyogia/couchkit/internal/adapter"
	"github.com/welldanyogia/couchkit/internal/api"
	"github.com/welldanyogia/couchkit/internal/api/middleware"
	"github.com/welldanyogia/couchkit/internal/config"
	"github.com/welldanyogia/couchkit/internal/database"
	"github.com/welldanyogia/couchkit/internal/logger"
	"github.com/welldanyogia/couchkit/internal/registry"
	"github.com/welldanyogia/couchkit/internal/repository"
	"github.com/welldanyogia/couchkit/internal/serializer"
	"github.com/welldanyogia/couchkit/internal/storage"
	"github.com/welldanyogia/couchkit/internal/store"
	"github.com/welldanyogia/couchkit/internal/websocket"
	"golang.org/x/time/rate"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup logger
	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)
	security := logger.NewSecurityLogger(log)

	log.Info("starting couchkit")
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local attachment index
	production := cfg.AppEnv == "production"
	dbLogLevel := gormlogger.Warn
	if logger.ParseLevel(cfg.LogLevel) == slog.LevelDebug {
		dbLogLevel = gormlogger.Info
	}
	db, err := database.Open(cfg.DatabaseURL, database.Options{Production: production, LogLevel: dbLogLevel})
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("failed to close index", slog.Any("error", err))
		}
	}()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate index: %w", err)
	}

	// Repositories and the document-type registry
	attachmentRepo := repository.NewAttachmentRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	reg := registry.New()
	for _, docType := range cfg.DocTypes {
		reg.Register(docType, documentRepo.Loader(docType))
	}

	// Serializer, adapter and host store
	ser := serializer.New(reg)
	couch := adapter.New(adapter.Config{
		BaseURL:    cfg.CouchDBURL,
		Database:   cfg.CouchDBDatabase,
		Username:   cfg.CouchDBUser,
		Password:   cfg.CouchDBPassword,
		Timeout:    cfg.UploadTimeout,
		HTTPClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
	}, ser, attachmentRepo, log)
	records := store.New(ser, attachmentRepo, documentRepo, log)

	if err := couch.Ping(ctx); err != nil {
		// Not fatal: /ready reports it until CouchDB comes up
		log.Warn("couchdb not reachable at startup", slog.Any("error", err))
	}

	// Upload staging
	staging, err := storage.NewLocalStaging(cfg.StagingPath, cfg.MaxPayloadBytes)
	if err != nil {
		return fmt.Errorf("init staging: %w", err)
	}

	// Upload progress hub
	hub := websocket.NewHub(log)
	go hub.Run()

	// Rate limiting
	var limiter *middleware.IPRateLimiter
	if cfg.RateLimitRequests > 0 {
		limiter = middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitBurst)
		go limiter.RunJanitor(ctx, 10*time.Minute, 30*time.Minute)
	}

	// HTTP server
	e := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Adapter:        couch,
		Store:          records,
		Registry:       reg,
		Hub:            hub,
		Staging:        staging,
		Upgrader:       websocket.NewSecureUpgrader(cfg.Origins(), security),
		Logger:         log,
		Security:       security,
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.Origins(),
		Production:     production,
		Limiter:        limiter,
	})

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("http server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
