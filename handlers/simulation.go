package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"imovia/marketplace-api/middleware"
	"imovia/marketplace-api/models"
	"imovia/marketplace-api/utils"
)

type SimulationHandler struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewSimulationHandler(db *gorm.DB, logger *utils.Logger) *SimulationHandler {
	return &SimulationHandler{
		db:     db,
		logger: logger,
	}
}

// Create handles POST /api/v1/simulations
func (h *SimulationHandler) Create(c *gin.Context) {
	var req models.CreateSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body. Expected { title, entry, installments, installmentValue }",
		})
		return
	}

	userID, _ := middleware.CurrentUserID(c)

	simulation := models.Simulation{
		UserID:           userID,
		Title:            req.Title,
		Entry:            *req.Entry,
		Installments:     *req.Installments,
		InstallmentValue: *req.InstallmentValue,
	}

	if err := h.db.Create(&simulation).Error; err != nil {
		h.logger.Error("Failed to create simulation", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save simulation"})
		return
	}

	c.JSON(http.StatusCreated, simulation)
}

// ListForUser handles GET /api/v1/users/:id/simulations. The :id may be the
// numeric id or the public uuid, and must refer to the caller.
func (h *SimulationHandler) ListForUser(c *gin.Context) {
	param := c.Param("id")
	callerID, _ := middleware.CurrentUserID(c)

	var userID uint
	if id, err := strconv.ParseUint(param, 10, 64); err == nil {
		userID = uint(id)
	} else {
		var user models.User
		if err := h.db.Select("id").Where("uuid = ?", param).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
				return
			}
			h.logger.Error("Failed to resolve user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch simulations"})
			return
		}
		userID = user.ID
	}

	if userID != callerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var simulations []models.Simulation
	if err := h.db.Where("user_id = ?", userID).Order("date DESC").Find(&simulations).Error; err != nil {
		h.logger.Error("Failed to fetch simulations", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch simulations"})
		return
	}

	c.JSON(http.StatusOK, simulations)
}
