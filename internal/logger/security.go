package logger

import (
	"log/slog"
	"time"
)

// SecurityLogger records security-relevant events. It never logs
// credentials or payload contents.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger wraps an existing logger
func NewSecurityLogger(logger *slog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger}
}

// NewSecurityLoggerWithHandler creates a SecurityLogger with a custom handler
func NewSecurityLoggerWithHandler(handler slog.Handler) *SecurityLogger {
	return &SecurityLogger{logger: slog.New(handler)}
}

// AuthFailure logs a failed authentication attempt
func (s *SecurityLogger) AuthFailure(ip, path, reason string) {
	s.logger.Warn("authentication_failure",
		slog.String("event_type", "auth_failure"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// RateLimitExceeded logs when a client exceeds rate limits
func (s *SecurityLogger) RateLimitExceeded(ip, path string) {
	s.logger.Warn("rate_limit_exceeded",
		slog.String("event_type", "rate_limit"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// InvalidOrigin logs a rejected WebSocket connection
func (s *SecurityLogger) InvalidOrigin(ip, origin string) {
	s.logger.Warn("invalid_origin",
		slog.String("event_type", "invalid_origin"),
		slog.String("ip", ip),
		slog.String("origin", origin),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// BlockedUpload logs an attachment upload refused before it reached CouchDB
func (s *SecurityLogger) BlockedUpload(ip, attachmentID, reason string) {
	s.logger.Warn("blocked_upload",
		slog.String("event_type", "blocked_upload"),
		slog.String("ip", ip),
		slog.String("attachment_id", attachmentID),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// Logger returns the underlying slog.Logger
func (s *SecurityLogger) Logger() *slog.Logger {
	return s.logger
}
