package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"imovia/marketplace-api/middleware"
	"imovia/marketplace-api/models"
	"imovia/marketplace-api/services"
	"imovia/marketplace-api/utils"
)

type NotificationHandler struct {
	db     *gorm.DB
	mailer services.Mailer
	logger *utils.Logger
}

func NewNotificationHandler(db *gorm.DB, mailer services.Mailer, logger *utils.Logger) *NotificationHandler {
	return &NotificationHandler{db: db, mailer: mailer, logger: logger}
}

// List handles GET /api/v1/notificacoes/preferencias
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var prefs []models.NotificacaoPreferencia
	if err := h.db.Where("user_id = ?", userID).Order("tipo ASC").Find(&prefs).Error; err != nil {
		h.logger.Error("Failed to list notification preferences", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list preferences"})
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// Upsert handles PUT /api/v1/notificacoes/preferencias. One row per
// (user, tipo); repeated calls update the existing row.
func (h *NotificationHandler) Upsert(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.NotificationPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	pref := models.NotificacaoPreferencia{
		UserID:   userID,
		Tipo:     req.Tipo,
		PorEmail: req.PorEmail != nil && *req.PorEmail,
		PorPush:  req.PorPush != nil && *req.PorPush,
	}

	err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "tipo"}},
		DoUpdates: clause.AssignmentColumns([]string{"por_email", "por_push", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		h.logger.Error("Failed to save notification preference", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save preference"})
		return
	}

	if pref.PorEmail {
		go h.sendConfirmation(userID, pref.Tipo)
	}

	c.JSON(http.StatusOK, pref)
}

func (h *NotificationHandler) sendConfirmation(userID uint, tipo string) {
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		h.logger.Error("Failed to load user for preference confirmation", "user_id", userID, "error", err)
		return
	}

	body := fmt.Sprintf(
		"<p>Olá, %s!</p><p>Você ativou notificações por e-mail para: <strong>%s</strong>.</p>",
		user.Nome, tipo)
	if err := h.mailer.Send(user.Email, "Preferência de notificação atualizada", body); err != nil {
		h.logger.Error("Failed to send preference confirmation", "user_id", userID, "error", err)
	}
}
