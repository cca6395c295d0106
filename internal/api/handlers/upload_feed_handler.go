package handlers

import (
	"log/slog"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/couchkit/internal/websocket"
)

// UploadFeedHandler streams upload progress over WebSocket
type UploadFeedHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	logger   *slog.Logger
}

// NewUploadFeedHandler creates a new UploadFeedHandler
func NewUploadFeedHandler(hub *websocket.Hub, upgrader gorillaws.Upgrader, log *slog.Logger) *UploadFeedHandler {
	return &UploadFeedHandler{hub: hub, upgrader: upgrader, logger: log}
}

// Serve handles GET /ws/uploads
func (h *UploadFeedHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error
		if h.logger != nil {
			h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		}
		return nil
	}

	client := websocket.NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return nil
}
