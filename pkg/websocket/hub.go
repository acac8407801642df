package websocket

import (
	"sync"

	"github.com/richxcame/ride-board/pkg/logger"
	"go.uber.org/zap"
)

// Message is the wire format exchanged with connected browsers
type Message struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// MessageHandler processes an inbound message from a client
type MessageHandler func(client *Client, msg *Message)

// Hub maintains the set of connected clients and routes messages to them
type Hub struct {
	clients map[string]*Client

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *Message

	handlers map[string]MessageHandler

	mu sync.RWMutex
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Message, 256),
		handlers:   make(map[string]MessageHandler),
	}
}

// Run processes register/unregister/broadcast events until the channels close
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case msg := <-h.Broadcast:
			h.SendToAll(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Replace an existing connection for the same client ID
	if existing, ok := h.clients[client.ID]; ok {
		close(existing.Send)
	}
	h.clients[client.ID] = client

	logger.Debug("websocket client registered", zap.String("client_id", client.ID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[client.ID]; ok && existing == client {
		delete(h.clients, client.ID)
		close(client.Send)
	}
}

// GetClient returns the client with the given ID, if connected
func (h *Hub) GetClient(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[id]
	return client, ok
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToUser sends a message to one client; unknown IDs are ignored
func (h *Hub) SendToUser(id string, msg *Message) {
	h.mu.RLock()
	client, ok := h.clients[id]
	h.mu.RUnlock()

	if ok {
		client.SendMessage(msg)
	}
}

// SendToAll delivers a message to every connected client. The client list
// is snapshotted first so delivery runs without the lock: dropping a slow
// consumer mid-broadcast needs the write lock and must not wait on us.
func (h *Hub) SendToAll(msg *Message) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.SendMessage(msg)
	}
}

// CloseAll disconnects every client. Used when the live subscription dies
// and the session cannot continue without a full reconnect.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.Send)
		delete(h.clients, id)
	}
}

// RegisterHandler registers a handler for an inbound message type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// HandleMessage dispatches an inbound message to its registered handler
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	handler, ok := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !ok {
		logger.Debug("no handler for message type", zap.String("type", msg.Type))
		return
	}

	handler(client, msg)
}
