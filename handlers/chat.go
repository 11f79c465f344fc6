package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"imovia/marketplace-api/middleware"
	"imovia/marketplace-api/models"
	"imovia/marketplace-api/services"
	"imovia/marketplace-api/utils"
)

type ChatHandler struct {
	store    services.MessageStore
	hub      *services.Hub
	presence *services.PresenceCache
	logger   *utils.Logger
}

// NewChatHandler builds the chat REST surface. presence may be nil; the
// endpoint falls back to the in-process hub.
func NewChatHandler(store services.MessageStore, hub *services.Hub, presence *services.PresenceCache, logger *utils.Logger) *ChatHandler {
	return &ChatHandler{store: store, hub: hub, presence: presence, logger: logger}
}

// ListConversas handles GET /api/v1/chat/conversas/:userId. Returns one row
// per counterpart with the latest message exchanged, newest first. Regular
// users only see brokers and brokers only see regular users; admins see
// everyone.
func (h *ChatHandler) ListConversas(c *gin.Context) {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return
	}

	callerID, _ := middleware.CurrentUserID(c)
	role, _ := c.Get(middleware.ContextRole)
	if callerID != userID && role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	mensagens, err := h.store.Involving(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load conversations", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}

	viewerRole := models.RoleUser
	if r, ok := role.(models.Role); ok {
		viewerRole = r
	}

	seen := make(map[uint]bool)
	conversas := make([]models.Conversa, 0)
	for _, m := range mensagens {
		outro := m.Remetente
		if m.RemetenteID == userID {
			outro = m.Destinatario
		}
		if outro.ID == userID || seen[outro.ID] {
			continue
		}
		seen[outro.ID] = true

		if !conversaVisivel(viewerRole, outro.Role) {
			continue
		}

		conversas = append(conversas, models.Conversa{
			ID:             outro.ID,
			Nome:           outro.Nome,
			Avatar:         outro.Avatar(),
			Role:           outro.Role,
			UltimaMensagem: m.Conteudo,
			Horario:        m.CriadoEm,
		})
	}

	c.JSON(http.StatusOK, conversas)
}

// conversaVisivel applies the marketplace pairing rule: regular users talk
// to brokers and vice versa. Admins bypass the filter in both directions.
func conversaVisivel(viewer, outro models.Role) bool {
	if viewer == models.RoleAdmin || outro == models.RoleAdmin {
		return true
	}
	return viewer != outro
}

// ListMensagens handles GET /api/v1/chat/mensagens/:usuarioA/:usuarioB.
// Returns the full two-way history ordered oldest first. The caller must be
// one of the two participants.
func (h *ChatHandler) ListMensagens(c *gin.Context) {
	usuarioA, ok := parseUintParam(c, "usuarioA")
	if !ok {
		return
	}
	usuarioB, ok := parseUintParam(c, "usuarioB")
	if !ok {
		return
	}

	callerID, _ := middleware.CurrentUserID(c)
	role, _ := c.Get(middleware.ContextRole)
	if callerID != usuarioA && callerID != usuarioB && role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	mensagens, err := h.store.History(c.Request.Context(), usuarioA, usuarioB)
	if err != nil {
		h.logger.Error("Failed to load message history",
			"usuario_a", usuarioA, "usuario_b", usuarioB, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, mensagens)
}

// OnlineUsers handles GET /api/v1/presence/online. It reads the redis mirror
// so sibling processes are covered; without one, the in-process hub answers.
func (h *ChatHandler) OnlineUsers(c *gin.Context) {
	if h.presence == nil {
		c.JSON(http.StatusOK, gin.H{"online": h.hub.ListOnline()})
		return
	}

	online, err := h.presence.Online(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read presence cache", "error", err)
		c.JSON(http.StatusOK, gin.H{"online": h.hub.ListOnline()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return 0, false
	}
	return uint(value), true
}
