package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"imovia/marketplace-api/services"
	"imovia/marketplace-api/utils"
)

type WebSocketHandler struct {
	hub      *services.Hub
	logger   *utils.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler builds the /ws entry point. Origin checks allow the
// configured frontend plus same-origin requests; an empty frontendURL keeps
// the permissive default for local development.
func NewWebSocketHandler(hub *services.Hub, frontendURL string, logger *utils.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if frontendURL == "" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == frontendURL
			},
		},
	}
}

// Serve handles GET /ws. Authentication already happened in the Auth
// middleware; registration on the chat hub is a separate explicit event so
// the client controls when it goes online.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := services.NewClient(h.hub, conn)
	go client.WritePump()
	client.ReadPump()
}
