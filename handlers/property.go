package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"imovia/marketplace-api/middleware"
	"imovia/marketplace-api/models"
	"imovia/marketplace-api/utils"
)

type PropertyHandler struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewPropertyHandler(db *gorm.DB, logger *utils.Logger) *PropertyHandler {
	return &PropertyHandler{
		db:     db,
		logger: logger,
	}
}

// List handles GET /api/v1/properties
func (h *PropertyHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := h.db.Model(&models.Property{})

	if tipo := c.Query("tipo"); tipo != "" {
		query = query.Where("tipo = ?", tipo)
	}
	if cidade := c.Query("cidade"); cidade != "" {
		query = query.Where("cidade = ?", cidade)
	}
	if bairro := c.Query("bairro"); bairro != "" {
		query = query.Where("bairro = ?", bairro)
	}
	if precoMin := c.Query("preco_min"); precoMin != "" {
		if v, err := strconv.ParseFloat(precoMin, 64); err == nil {
			query = query.Where("preco >= ?", v)
		}
	}
	if precoMax := c.Query("preco_max"); precoMax != "" {
		if v, err := strconv.ParseFloat(precoMax, 64); err == nil {
			query = query.Where("preco <= ?", v)
		}
	}
	if ativo := c.Query("ativo"); ativo != "" {
		query = query.Where("ativo = ?", ativo == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		h.logger.Error("Failed to count properties", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch properties"})
		return
	}

	var properties []models.Property
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&properties).Error; err != nil {
		h.logger.Error("Failed to fetch properties", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch properties"})
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	c.JSON(http.StatusOK, models.ListResponse[models.Property]{
		Data:       properties,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// Get handles GET /api/v1/properties/:id, by numeric id or uuid.
func (h *PropertyHandler) Get(c *gin.Context) {
	property, ok := h.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, property)
}

// Create handles POST /api/v1/properties
func (h *PropertyHandler) Create(c *gin.Context) {
	var req models.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	userID, _ := middleware.CurrentUserID(c)

	property := models.Property{
		Tipo:      req.Tipo,
		Descricao: req.Descricao,
		Endereco:  req.Endereco,
		Bairro:    req.Bairro,
		Cidade:    req.Cidade,
		Preco:     req.Preco,
		Quartos:   req.Quartos,
		Banheiros: req.Banheiros,
		AreaM2:    req.AreaM2,
		Ativo:     true,
		UserID:    userID,
	}

	if err := h.db.Create(&property).Error; err != nil {
		h.logger.Error("Failed to create property", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create property"})
		return
	}

	h.logger.Info("Property created", "id", property.ID, "user_id", userID)
	c.JSON(http.StatusCreated, property)
}

// Update handles PUT /api/v1/properties/:id
func (h *PropertyHandler) Update(c *gin.Context) {
	property, ok := h.findOwned(c)
	if !ok {
		return
	}

	var req models.UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Tipo != nil {
		property.Tipo = *req.Tipo
	}
	if req.Descricao != nil {
		property.Descricao = *req.Descricao
	}
	if req.Endereco != nil {
		property.Endereco = *req.Endereco
	}
	if req.Bairro != nil {
		property.Bairro = *req.Bairro
	}
	if req.Cidade != nil {
		property.Cidade = *req.Cidade
	}
	if req.Preco != nil {
		property.Preco = *req.Preco
	}
	if req.Quartos != nil {
		property.Quartos = *req.Quartos
	}
	if req.Banheiros != nil {
		property.Banheiros = *req.Banheiros
	}
	if req.AreaM2 != nil {
		property.AreaM2 = *req.AreaM2
	}
	if req.Ativo != nil {
		property.Ativo = *req.Ativo
	}

	if err := h.db.Save(property).Error; err != nil {
		h.logger.Error("Failed to update property", "id", property.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update property"})
		return
	}

	c.JSON(http.StatusOK, property)
}

// Delete handles DELETE /api/v1/properties/:id
func (h *PropertyHandler) Delete(c *gin.Context) {
	property, ok := h.findOwned(c)
	if !ok {
		return
	}

	if err := h.db.Delete(property).Error; err != nil {
		h.logger.Error("Failed to delete property", "id", property.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete property"})
		return
	}

	c.Status(http.StatusNoContent)
}

// TrackView handles POST /api/v1/properties/:id/views. Public, feeds the
// dashboard counters.
func (h *PropertyHandler) TrackView(c *gin.Context) {
	property, ok := h.find(c)
	if !ok {
		return
	}

	view := models.PropertyView{PropertyID: property.ID}
	if err := h.db.Create(&view).Error; err != nil {
		h.logger.Error("Failed to record view", "property_id", property.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record view"})
		return
	}

	c.Status(http.StatusCreated)
}

// TrackContact handles POST /api/v1/properties/:id/contacts
func (h *PropertyHandler) TrackContact(c *gin.Context) {
	property, ok := h.find(c)
	if !ok {
		return
	}

	var req models.PropertyContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	contact := models.PropertyContact{
		PropertyID: property.ID,
		Nome:       req.Nome,
		Email:      req.Email,
		Telefone:   req.Telefone,
		Mensagem:   req.Mensagem,
	}
	if err := h.db.Create(&contact).Error; err != nil {
		h.logger.Error("Failed to record contact", "property_id", property.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record contact"})
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// find resolves the :id path parameter (numeric id or public uuid).
func (h *PropertyHandler) find(c *gin.Context) (*models.Property, bool) {
	param := c.Param("id")

	var property models.Property
	var err error
	if id, parseErr := strconv.ParseUint(param, 10, 64); parseErr == nil {
		err = h.db.First(&property, uint(id)).Error
	} else if _, parseErr := uuid.Parse(param); parseErr == nil {
		err = h.db.Where("uuid = ?", param).First(&property).Error
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID"})
		return nil, false
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return nil, false
		}
		h.logger.Error("Failed to fetch property", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch property"})
		return nil, false
	}

	return &property, true
}

// findOwned resolves the property and rejects callers who do not own it,
// admins excepted.
func (h *PropertyHandler) findOwned(c *gin.Context) (*models.Property, bool) {
	property, ok := h.find(c)
	if !ok {
		return nil, false
	}

	callerID, _ := middleware.CurrentUserID(c)
	if property.UserID != callerID {
		if role, exists := c.Get(middleware.ContextRole); !exists || role.(models.Role) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return nil, false
		}
	}

	return property, true
}
