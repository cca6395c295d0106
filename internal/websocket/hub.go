package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/welldanyogia/couchkit/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe      MessageType = "subscribe"
	MessageTypeUnsubscribe    MessageType = "unsubscribe"
	MessageTypeSubscribed     MessageType = "subscribed"
	MessageTypeUnsubscribed   MessageType = "unsubscribed"
	MessageTypeUploadStarted  MessageType = "upload_started"
	MessageTypeUploadProgress MessageType = "upload_progress"
	MessageTypeError          MessageType = "error"
)

const (
	// Uploads that stop reporting are forgotten after this long
	progressTTL   = 10 * time.Minute
	progressSweep = time.Minute
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type         MessageType `json:"type"`
	AttachmentID string      `json:"attachment_id,omitempty"`
	Percent      *float64    `json:"percent,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// Hub maintains the set of active clients and fans upload events out to
// the clients subscribed to an attachment. It remembers the last percent of
// every upload in flight so a late subscriber starts from it.
type Hub struct {
	clients map[*Client]bool

	// attachmentID -> set of clients
	subscriptions map[string]map[*Client]bool

	// attachmentID -> last reported progress
	progress map[string]progressEntry

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest
	broadcast   chan *broadcastMessage

	mu sync.RWMutex

	logger *slog.Logger
}

type progressEntry struct {
	percent float64
	at      time.Time
}

type subscriptionRequest struct {
	client       *Client
	attachmentID string
}

type broadcastMessage struct {
	attachmentID string
	kind         MessageType
	percent      float64
	message      []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		progress:      make(map[string]progressEntry),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscribe:     make(chan *subscriptionRequest),
		unsubscribe:   make(chan *subscriptionRequest),
		broadcast:     make(chan *broadcastMessage, 256),
		logger:        logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	sweep := time.NewTicker(progressSweep)
	defer sweep.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.debug("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				for id, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, id)
					}
				}
			}
			h.mu.Unlock()
			h.debug("client unregistered")

		case req := <-h.subscribe:
			h.addSubscription(req)

		case req := <-h.unsubscribe:
			h.removeSubscription(req)

		case msg := <-h.broadcast:
			h.mu.Lock()
			h.track(msg)
			for client := range h.subscriptions[msg.attachmentID] {
				select {
				case client.send <- msg.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.Unlock()

		case now := <-sweep.C:
			h.mu.Lock()
			for id, entry := range h.progress {
				if now.Sub(entry.at) > progressTTL {
					delete(h.progress, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// addSubscription subscribes a registered client and acknowledges with the
// upload's last known percent, if any. The ack is queued before any event
// broadcast after it, since both run on the hub loop.
func (h *Hub) addSubscription(req *subscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[req.client] {
		return
	}
	if h.subscriptions[req.attachmentID] == nil {
		h.subscriptions[req.attachmentID] = make(map[*Client]bool)
	}
	h.subscriptions[req.attachmentID][req.client] = true

	ack := WSMessage{Type: MessageTypeSubscribed, AttachmentID: req.attachmentID}
	if entry, ok := h.progress[req.attachmentID]; ok {
		percent := entry.percent
		ack.Percent = &percent
	}
	req.client.queue(ack)
	h.debug("client subscribed to attachment", slog.String("attachment_id", req.attachmentID))
}

func (h *Hub) removeSubscription(req *subscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[req.client] {
		return
	}
	if subscribers, ok := h.subscriptions[req.attachmentID]; ok {
		delete(subscribers, req.client)
		if len(subscribers) == 0 {
			delete(h.subscriptions, req.attachmentID)
		}
	}
	req.client.queue(WSMessage{Type: MessageTypeUnsubscribed, AttachmentID: req.attachmentID})
	h.debug("client unsubscribed from attachment", slog.String("attachment_id", req.attachmentID))
}

// track updates the progress snapshot; callers hold h.mu
func (h *Hub) track(msg *broadcastMessage) {
	switch msg.kind {
	case MessageTypeUploadStarted:
		h.progress[msg.attachmentID] = progressEntry{at: time.Now()}
	case MessageTypeUploadProgress:
		if msg.percent >= 100 {
			delete(h.progress, msg.attachmentID)
			return
		}
		h.progress[msg.attachmentID] = progressEntry{percent: msg.percent, at: time.Now()}
	}
}

func (h *Hub) debug(msg string, attrs ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, attrs...)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe subscribes a client to an attachment's upload events
func (h *Hub) Subscribe(client *Client, attachmentID string) {
	h.subscribe <- &subscriptionRequest{client: client, attachmentID: attachmentID}
}

// Unsubscribe unsubscribes a client from an attachment's upload events
func (h *Hub) Unsubscribe(client *Client, attachmentID string) {
	h.unsubscribe <- &subscriptionRequest{client: client, attachmentID: attachmentID}
}

// Subscribers returns the number of clients subscribed to an attachment
func (h *Hub) Subscribers(attachmentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[attachmentID])
}

// Progress returns the last percent reported for an upload in flight
func (h *Hub) Progress(attachmentID string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.progress[attachmentID]
	return entry.percent, ok
}

// View returns an upload view that publishes progress for one attachment
func (h *Hub) View(attachmentID string) models.UploadView {
	return &uploadView{hub: h, attachmentID: attachmentID}
}

// publish queues a message for the attachment's subscribers. Progress is
// lossy: when the broadcast queue is full the event is dropped rather than
// stalling the upload.
func (h *Hub) publish(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	event := &broadcastMessage{attachmentID: msg.AttachmentID, kind: msg.Type, message: data}
	if msg.Percent != nil {
		event.percent = *msg.Percent
	}

	select {
	case h.broadcast <- event:
	default:
		h.debug("broadcast queue full, dropping event",
			slog.String("attachment_id", msg.AttachmentID),
			slog.String("type", string(msg.Type)))
	}
}

type uploadView struct {
	hub          *Hub
	attachmentID string
}

func (v *uploadView) StartUpload() {
	v.hub.publish(WSMessage{Type: MessageTypeUploadStarted, AttachmentID: v.attachmentID})
}

func (v *uploadView) UpdateUpload(percent float64) {
	v.hub.publish(WSMessage{Type: MessageTypeUploadProgress, AttachmentID: v.attachmentID, Percent: &percent})
}
