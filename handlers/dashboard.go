package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"imovia/marketplace-api/middleware"
	"imovia/marketplace-api/models"
	"imovia/marketplace-api/utils"
)

type DashboardHandler struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewDashboardHandler(db *gorm.DB, logger *utils.Logger) *DashboardHandler {
	return &DashboardHandler{db: db, logger: logger}
}

type countByLabel struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

type topViewedProperty struct {
	ID     uint   `json:"id"`
	Tipo   string `json:"tipo"`
	Bairro string `json:"bairro"`
	Cidade string `json:"cidade"`
	Views  int64  `json:"views"`
}

// Summary handles GET /api/v1/dashboard/summary. Aggregates the caller's
// property portfolio; admins see all properties.
func (h *DashboardHandler) Summary(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	role, _ := c.Get(middleware.ContextRole)
	admin := role == models.RoleAdmin

	scope := h.db.Model(&models.Property{})
	if !admin {
		scope = scope.Where("user_id = ?", userID)
	}

	var total, ativos int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		h.fail(c, "count properties", err)
		return
	}
	if err := scope.Session(&gorm.Session{}).Where("ativo = ?", true).Count(&ativos).Error; err != nil {
		h.fail(c, "count active properties", err)
		return
	}

	var porTipo []countByLabel
	err := scope.Session(&gorm.Session{}).
		Select("tipo AS label, COUNT(*) AS total").
		Group("tipo").
		Order("total DESC").
		Scan(&porTipo).Error
	if err != nil {
		h.fail(c, "group by tipo", err)
		return
	}

	var porFaixa []countByLabel
	err = scope.Session(&gorm.Session{}).
		Select(`CASE
			WHEN preco < 200000 THEN 'Até 200 mil'
			WHEN preco < 500000 THEN '200 a 500 mil'
			WHEN preco < 1000000 THEN '500 mil a 1 milhão'
			ELSE 'Acima de 1 milhão'
		END AS label, COUNT(*) AS total`).
		Group("label").
		Order("total DESC").
		Scan(&porFaixa).Error
	if err != nil {
		h.fail(c, "group by price band", err)
		return
	}

	var topBairros []countByLabel
	err = scope.Session(&gorm.Session{}).
		Select("bairro AS label, COUNT(*) AS total").
		Where("bairro <> ''").
		Group("bairro").
		Order("total DESC").
		Limit(5).
		Scan(&topBairros).Error
	if err != nil {
		h.fail(c, "group by bairro", err)
		return
	}

	since := time.Now().AddDate(0, 0, -30)

	viewScope := h.db.Model(&models.PropertyView{}).
		Joins("JOIN properties ON properties.id = property_views.property_id")
	contactScope := h.db.Model(&models.PropertyContact{}).
		Joins("JOIN properties ON properties.id = property_contacts.property_id")
	if !admin {
		viewScope = viewScope.Where("properties.user_id = ?", userID)
		contactScope = contactScope.Where("properties.user_id = ?", userID)
	}

	var totalVisualizacoes, contatosRecebidos int64
	if err := viewScope.Session(&gorm.Session{}).Count(&totalVisualizacoes).Error; err != nil {
		h.fail(c, "count views", err)
		return
	}
	if err := contactScope.Session(&gorm.Session{}).Count(&contatosRecebidos).Error; err != nil {
		h.fail(c, "count contacts", err)
		return
	}

	var maisVistos []topViewedProperty
	err = viewScope.Session(&gorm.Session{}).
		Select("properties.id AS id, properties.tipo AS tipo, properties.bairro AS bairro, properties.cidade AS cidade, COUNT(*) AS views").
		Where("property_views.viewed_at >= ?", since).
		Group("properties.id, properties.tipo, properties.bairro, properties.cidade").
		Order("views DESC").
		Limit(5).
		Scan(&maisVistos).Error
	if err != nil {
		h.fail(c, "top viewed properties", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalImoveis":       total,
		"imoveisAtivos":      ativos,
		"imoveisInativos":    total - ativos,
		"porTipo":            porTipo,
		"porFaixaPreco":      porFaixa,
		"topBairros":         topBairros,
		"maisVisualizados":   maisVistos,
		"totalVisualizacoes": totalVisualizacoes,
		"contatosRecebidos":  contatosRecebidos,
	})
}

func (h *DashboardHandler) fail(c *gin.Context, step string, err error) {
	h.logger.Error("Dashboard aggregation failed", "step", step, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dashboard summary"})
}
