package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/richxcame/ride-board/internal/rides"
	"github.com/richxcame/ride-board/pkg/logger"
	"github.com/richxcame/ride-board/pkg/websocket"
)

const searchTimeout = 10 * time.Second

// HubRenderer delivers controller renders through the websocket hub
type HubRenderer struct {
	hub *websocket.Hub
}

// NewHubRenderer creates a renderer backed by the given hub
func NewHubRenderer(hub *websocket.Hub) *HubRenderer {
	return &HubRenderer{hub: hub}
}

// BroadcastBoard pushes the full ride list to every connected client
func (r *HubRenderer) BroadcastBoard(list []*rides.Ride) {
	r.hub.SendToAll(boardMessage(list))
}

// SendBoard pushes a ride list to one client
func (r *HubRenderer) SendBoard(clientID string, list []*rides.Ride) {
	r.hub.SendToUser(clientID, boardMessage(list))
}

// SendError reports a failure to one client
func (r *HubRenderer) SendError(clientID string, message string) {
	r.hub.SendToUser(clientID, &websocket.Message{
		Type: "error",
		Data: map[string]interface{}{"message": message},
	})
}

// SessionLost disconnects everyone so browsers reconnect with a clean session
func (r *HubRenderer) SessionLost() {
	r.hub.CloseAll()
}

func boardMessage(list []*rides.Ride) *websocket.Message {
	return &websocket.Message{
		Type: "rides",
		Data: map[string]interface{}{"rides": list},
	}
}

// Handler upgrades browser connections and wires them to the sync controller
type Handler struct {
	hub        *websocket.Hub
	controller *Controller
	upgrader   gorillaws.Upgrader
}

// NewHandler creates a new realtime handler and registers the inbound
// message handlers on the hub
func NewHandler(hub *websocket.Hub, controller *Controller) *Handler {
	h := &Handler{
		hub:        hub,
		controller: controller,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The board is public; cross-origin browsers may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	hub.RegisterHandler("search", h.handleSearch)

	return h
}

// RegisterRoutes registers the websocket endpoint
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.Serve)
}

// Serve handles GET /ws: upgrade, register, push the current board
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(uuid.NewString(), conn, h.hub, logger.Get())
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()
	h.controller.SendSnapshot(ctx, client.ID)
}

func (h *Handler) handleSearch(client *websocket.Client, msg *websocket.Message) {
	query, _ := msg.Data["query"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	h.controller.Search(ctx, client.ID, query)
}
