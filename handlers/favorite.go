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

type FavoriteHandler struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewFavoriteHandler(db *gorm.DB, logger *utils.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		db:     db,
		logger: logger,
	}
}

// Create handles POST /api/v1/favorites. Accepts propertyId or propertyUuid.
func (h *FavoriteHandler) Create(c *gin.Context) {
	var req models.CreateFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.PropertyID == 0 && req.PropertyUUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "propertyId or propertyUuid is required"})
		return
	}

	var property models.Property
	var err error
	if req.PropertyUUID != "" {
		err = h.db.Where("uuid = ?", req.PropertyUUID).First(&property).Error
	} else {
		err = h.db.First(&property, req.PropertyID).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		h.logger.Error("Failed to fetch property", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create favorite"})
		return
	}

	userID, _ := middleware.CurrentUserID(c)

	var existing models.Favorite
	err = h.db.Where("user_id = ? AND property_id = ?", userID, property.ID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Property already favorited"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Error("Failed to check favorite", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create favorite"})
		return
	}

	favorite := models.Favorite{
		UserID:     userID,
		PropertyID: property.ID,
	}
	if err := h.db.Create(&favorite).Error; err != nil {
		h.logger.Error("Failed to create favorite", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create favorite"})
		return
	}

	c.JSON(http.StatusCreated, favorite)
}

// List handles GET /api/v1/favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var favorites []models.Favorite
	if err := h.db.Preload("Property").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&favorites).Error; err != nil {
		h.logger.Error("Failed to fetch favorites", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch favorites"})
		return
	}

	c.JSON(http.StatusOK, favorites)
}

// Delete handles DELETE /api/v1/favorites/:id
func (h *FavoriteHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid favorite ID"})
		return
	}

	userID, _ := middleware.CurrentUserID(c)

	result := h.db.Where("id = ? AND user_id = ?", uint(id), userID).Delete(&models.Favorite{})
	if result.Error != nil {
		h.logger.Error("Failed to delete favorite", "id", id, "error", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete favorite"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Favorite not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
