package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/couchkit/internal/logger"
)

// NewSecureUpgrader creates a WebSocket upgrader that only accepts the given
// origins. An empty list falls back to http://localhost:3000.
func NewSecureUpgrader(allowedOrigins []string, security *logger.SecurityLogger) websocket.Upgrader {
	filtered := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			filtered = append(filtered, origin)
		}
	}
	if len(filtered) == 0 {
		filtered = []string{"http://localhost:3000"}
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Same-origin requests carry no Origin header
			if origin == "" {
				return true
			}

			for _, allowed := range filtered {
				if allowed == origin {
					return true
				}
			}

			if security != nil {
				security.InvalidOrigin(r.RemoteAddr, origin)
			}
			return false
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// DefaultUpgrader returns an upgrader that allows all origins (for development)
func DefaultUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}
