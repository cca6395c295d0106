package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/welldanyogia/couchkit/internal/validator"
)

// Config holds all configuration for the application
type Config struct {
	// CouchDB
	CouchDBURL      string
	CouchDBDatabase string
	CouchDBUser     string
	CouchDBPassword string

	// Local attachment index
	DatabaseURL string

	// Server
	APIPort int

	// Uploads
	StagingPath     string
	MaxPayloadBytes int64
	UploadTimeout   time.Duration

	// Document types served by the registry
	DocTypes []string

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// Required: COUCHDB_URL
	cfg.CouchDBURL = strings.TrimRight(os.Getenv("COUCHDB_URL"), "/")
	if cfg.CouchDBURL == "" {
		return nil, fmt.Errorf("COUCHDB_URL is required but not set")
	}

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	// COUCHDB_DATABASE (default: docs)
	cfg.CouchDBDatabase = os.Getenv("COUCHDB_DATABASE")
	if cfg.CouchDBDatabase == "" {
		cfg.CouchDBDatabase = "docs"
	}
	cfg.CouchDBUser = os.Getenv("COUCHDB_USER")
	cfg.CouchDBPassword = os.Getenv("COUCHDB_PASSWORD")

	// API_PORT (default: 8080)
	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		cfg.APIPort = 8080
	} else {
		port, err := strconv.Atoi(apiPort)
		if err != nil {
			return nil, fmt.Errorf("API_PORT must be a valid integer: %w", err)
		}
		cfg.APIPort = port
	}

	// STAGING_PATH (default: ./staging)
	cfg.StagingPath = os.Getenv("STAGING_PATH")
	if cfg.StagingPath == "" {
		cfg.StagingPath = "./staging"
	}

	// MAX_PAYLOAD_BYTES (default: 0, staging applies its own limit)
	if raw := os.Getenv("MAX_PAYLOAD_BYTES"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("MAX_PAYLOAD_BYTES must be a valid integer: %w", err)
		}
		cfg.MaxPayloadBytes = v
	}

	// UPLOAD_TIMEOUT (default: none)
	if raw := os.Getenv("UPLOAD_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("UPLOAD_TIMEOUT must be a valid duration: %w", err)
		}
		cfg.UploadTimeout = d
	}

	// DOC_TYPES (default: task)
	cfg.DocTypes = splitList(os.Getenv("DOC_TYPES"))
	if len(cfg.DocTypes) == 0 {
		cfg.DocTypes = []string{"task"}
	}

	// LOG_LEVEL (default: info)
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	// Rate limiting configuration
	cfg.RateLimitRequests = 10.0
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	}

	cfg.RateLimitBurst = 20
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.CouchDBURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("COUCHDB_URL must be an http(s) URL")
	}
	if err := validator.ValidateDatabaseName(c.CouchDBDatabase); err != nil {
		return fmt.Errorf("COUCHDB_DATABASE %q: %w", c.CouchDBDatabase, err)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.StagingPath == "" {
		return fmt.Errorf("StagingPath cannot be empty")
	}
	if c.UploadTimeout < 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT cannot be negative")
	}
	for _, docType := range c.DocTypes {
		if err := validator.ValidateDocType(docType); err != nil {
			return fmt.Errorf("DOC_TYPES entry %q: %w", docType, err)
		}
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if strings.HasPrefix(c.CouchDBURL, "http://") {
		return fmt.Errorf("COUCHDB_URL must use https in production")
	}

	return nil
}

// Origins returns the configured allowed origins as a trimmed list
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("couchdb_url", c.CouchDBURL),
		slog.String("couchdb_database", c.CouchDBDatabase),
		slog.Bool("couchdb_auth_set", c.CouchDBUser != ""),
		slog.Int("api_port", c.APIPort),
		slog.String("staging_path", c.StagingPath),
		slog.Int64("max_payload_bytes", c.MaxPayloadBytes),
		slog.Duration("upload_timeout", c.UploadTimeout),
		slog.Any("doc_types", c.DocTypes),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
	)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
