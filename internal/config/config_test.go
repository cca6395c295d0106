package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("COUCHDB_URL", "http://localhost:5984/")
	t.Setenv("DATABASE_URL", "sqlite://couchkit.db")
}

func validConfig() *Config {
	return &Config{
		CouchDBURL:      "https://couch.example.com",
		CouchDBDatabase: "docs",
		DatabaseURL:     "postgres://localhost/test",
		APIPort:         8080,
		StagingPath:     "./staging",
		DocTypes:        []string{"task"},
		AppEnv:          "production",
		APIKey:          "test-key",
		AllowedOrigins:  "https://app.example.com",
	}
}

func TestLoad_RequiredCouchDBURL(t *testing.T) {
	t.Setenv("COUCHDB_URL", "")
	t.Setenv("DATABASE_URL", "sqlite://couchkit.db")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COUCHDB_URL is required")
}

func TestLoad_RequiredDatabaseURL(t *testing.T) {
	t.Setenv("COUCHDB_URL", "http://localhost:5984")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5984", cfg.CouchDBURL)
	assert.Equal(t, "docs", cfg.CouchDBDatabase)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, "./staging", cfg.StagingPath)
	assert.Zero(t, cfg.MaxPayloadBytes)
	assert.Zero(t, cfg.UploadTimeout)
	assert.Equal(t, []string{"task"}, cfg.DocTypes)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 10.0, cfg.RateLimitRequests)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("COUCHDB_DATABASE", "projects")
	t.Setenv("COUCHDB_USER", "admin")
	t.Setenv("COUCHDB_PASSWORD", "secret")
	t.Setenv("API_PORT", "9090")
	t.Setenv("MAX_PAYLOAD_BYTES", "1048576")
	t.Setenv("UPLOAD_TIMEOUT", "30s")
	t.Setenv("DOC_TYPES", "task, note ,")
	t.Setenv("RATE_LIMIT_REQUESTS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "projects", cfg.CouchDBDatabase)
	assert.Equal(t, "admin", cfg.CouchDBUser)
	assert.Equal(t, "secret", cfg.CouchDBPassword)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, int64(1048576), cfg.MaxPayloadBytes)
	assert.Equal(t, 30*time.Second, cfg.UploadTimeout)
	assert.Equal(t, []string{"task", "note"}, cfg.DocTypes)
	assert.Equal(t, 2.5, cfg.RateLimitRequests)
	assert.Equal(t, 5, cfg.RateLimitBurst)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		env      string
		value    string
		contains string
	}{
		{"API_PORT", "abc", "API_PORT must be a valid integer"},
		{"MAX_PAYLOAD_BYTES", "lots", "MAX_PAYLOAD_BYTES must be a valid integer"},
		{"UPLOAD_TIMEOUT", "soon", "UPLOAD_TIMEOUT must be a valid duration"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.env, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		contains string
	}{
		{"bad couch scheme", func(c *Config) { c.CouchDBURL = "ftp://couch" }, "COUCHDB_URL"},
		{"bad database name", func(c *Config) { c.CouchDBDatabase = "Docs" }, "COUCHDB_DATABASE"},
		{"invalid port", func(c *Config) { c.APIPort = 70000 }, "APIPort"},
		{"empty staging", func(c *Config) { c.StagingPath = "" }, "StagingPath"},
		{"negative timeout", func(c *Config) { c.UploadTimeout = -time.Second }, "UPLOAD_TIMEOUT"},
		{"bad doc type", func(c *Config) { c.DocTypes = []string{"Task"} }, "DOC_TYPES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidateProduction(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		contains string
	}{
		{"requires api key", func(c *Config) { c.APIKey = "" }, "API_KEY is required"},
		{"requires origins", func(c *Config) { c.AllowedOrigins = "" }, "ALLOWED_ORIGINS is required"},
		{"no wildcard", func(c *Config) { c.AllowedOrigins = "*" }, "wildcard"},
		{"no sslmode disable", func(c *Config) { c.DatabaseURL = "postgres://h/db?sslmode=disable" }, "sslmode=disable"},
		{"couch over https", func(c *Config) { c.CouchDBURL = "http://couch:5984" }, "https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateProduction()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}

	assert.NoError(t, validConfig().ValidateProduction())
}

func TestLoadWithValidation_FailFast(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_KEY", "")

	_, err := LoadWithValidation()
	assert.Error(t, err)
}

func TestLoadWithValidation_DevelopmentAllowsInsecure(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "development")

	cfg, err := LoadWithValidation()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.example , ,http://b.example"}

	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Origins())
	assert.Empty(t, (&Config{}).Origins())
}

func TestLogConfig_OmitsSecrets(t *testing.T) {
	var buf bytes.Buffer
	cfg := validConfig()
	cfg.CouchDBUser = "admin"
	cfg.CouchDBPassword = "hunter2"

	cfg.LogConfig(slog.New(slog.NewJSONHandler(&buf, nil)))

	assert.Contains(t, buf.String(), `"couchdb_auth_set":true`)
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "test-key")
}
