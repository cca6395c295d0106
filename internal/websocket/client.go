package websocket

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Attachment ids are document id plus file name
	maxMessageSize = 2048

	// Attachments one connection may follow at once
	maxSubscriptions = 64
)

// Client is one upload feed connection. It tracks the attachments it
// follows so the feed can answer unsubscribes it never asked for and cap
// what one connection may watch.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	// owned by the read pump
	following map[string]struct{}
}

// NewClient creates a new Client instance
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		logger:    logger,
		following: make(map[string]struct{}),
	}
}

// ReadPump reads feed commands until the connection drops, then releases
// the client's subscriptions
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.logger != nil {
				c.logger.Warn("upload feed closed unexpectedly",
					slog.Int("following", len(c.following)),
					slog.Any("error", err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// WritePump delivers queued feed messages and keeps the connection alive
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage applies one feed command. Subscribing twice is answered
// with a fresh ack; the hub sends acks so they carry its progress snapshot.
func (c *Client) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		if !c.validAttachmentID(msg.AttachmentID) {
			return
		}
		if _, ok := c.following[msg.AttachmentID]; !ok {
			if len(c.following) >= maxSubscriptions {
				c.sendError("too many subscriptions")
				return
			}
			c.following[msg.AttachmentID] = struct{}{}
		}
		c.hub.Subscribe(c, msg.AttachmentID)

	case MessageTypeUnsubscribe:
		if !c.validAttachmentID(msg.AttachmentID) {
			return
		}
		if _, ok := c.following[msg.AttachmentID]; !ok {
			c.sendError("not subscribed to " + msg.AttachmentID)
			return
		}
		delete(c.following, msg.AttachmentID)
		c.hub.Unsubscribe(c, msg.AttachmentID)

	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) validAttachmentID(id string) bool {
	if id == "" {
		c.sendError("attachment_id is required")
		return false
	}
	docID, name, ok := strings.Cut(id, "/")
	if !ok || docID == "" || name == "" {
		c.sendError("attachment_id must be <doc_id>/<name>")
		return false
	}
	return true
}

func (c *Client) sendError(errMsg string) {
	c.queue(WSMessage{Type: MessageTypeError, Error: errMsg})
}

// queue hands msg to the write pump, dropping it when the buffer is full
func (c *Client) queue(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case c.send <- data:
	default:
	}
}
