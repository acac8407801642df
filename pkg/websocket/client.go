package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one connected browser session
type Client struct {
	ID   string
	Send chan *Message

	conn   *websocket.Conn
	hub    *Hub
	logger *zap.Logger
}

// NewClient creates a client for an upgraded connection
func NewClient(id string, conn *websocket.Conn, hub *Hub, logger *zap.Logger) *Client {
	return &Client{
		ID:     id,
		Send:   make(chan *Message, sendBuffer),
		conn:   conn,
		hub:    hub,
		logger: logger,
	}
}

// SendMessage queues a message for delivery, dropping the client if its
// buffer is full (slow consumer). The drop is synchronous rather than a
// handoff to the hub loop, which may itself be mid-broadcast.
func (c *Client) SendMessage(msg *Message) {
	defer func() {
		// Send channel may already be closed by the hub
		_ = recover()
	}()

	select {
	case c.Send <- msg:
	default:
		c.logger.Warn("client send buffer full, disconnecting",
			zap.String("client_id", c.ID))
		c.hub.unregisterClient(c)
	}
}

// ReadPump reads inbound messages and dispatches them to hub handlers.
// It unregisters the client when the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			return
		}

		c.hub.HandleMessage(c, &msg)
	}
}

// WritePump writes queued messages and keepalive pings to the connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
