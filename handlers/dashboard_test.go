package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"imovia/marketplace-api/middleware"
	"imovia/marketplace-api/models"
)

func newDashboardRouter(t *testing.T, database *gorm.DB) *gin.Engine {
	t.Helper()

	handler := NewDashboardHandler(database, testLogger())

	router := gin.New()
	router.GET("/api/v1/dashboard/summary",
		middleware.Auth(testJWTSecret),
		middleware.RequireRoles(models.RoleCorretor, models.RoleAdmin),
		handler.Summary)
	return router
}

func TestDashboardSummary(t *testing.T) {
	database := newTestDB(t)
	router := newDashboardRouter(t, database)
	rui := seedUser(t, database, "rui", models.RoleCorretor)
	bia := seedUser(t, database, "bia", models.RoleCorretor)

	casa := seedProperty(t, database, rui, "Casa", "Curitiba", 800000)
	apto := seedProperty(t, database, rui, "Apartamento", "Curitiba", 300000)
	apto.Ativo = false
	require.NoError(t, database.Save(apto).Error)

	// Another broker's listing must not leak into rui's numbers.
	seedProperty(t, database, bia, "Casa", "Londrina", 400000)

	require.NoError(t, database.Create(&models.PropertyView{PropertyID: casa.ID}).Error)
	require.NoError(t, database.Create(&models.PropertyView{PropertyID: casa.ID}).Error)
	require.NoError(t, database.Create(&models.PropertyContact{
		PropertyID: casa.ID,
		Nome:       "Interessado",
		Email:      "lead@example.com",
	}).Error)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/dashboard/summary", tokenFor(t, rui), nil)
	requireStatus(t, resp, http.StatusOK)

	var summary struct {
		TotalImoveis       int64               `json:"totalImoveis"`
		ImoveisAtivos      int64               `json:"imoveisAtivos"`
		ImoveisInativos    int64               `json:"imoveisInativos"`
		PorTipo            []countByLabel      `json:"porTipo"`
		PorFaixaPreco      []countByLabel      `json:"porFaixaPreco"`
		TotalVisualizacoes int64               `json:"totalVisualizacoes"`
		ContatosRecebidos  int64               `json:"contatosRecebidos"`
		MaisVisualizados   []topViewedProperty `json:"maisVisualizados"`
	}
	decodeBody(t, resp, &summary)

	require.EqualValues(t, 2, summary.TotalImoveis)
	require.EqualValues(t, 1, summary.ImoveisAtivos)
	require.EqualValues(t, 1, summary.ImoveisInativos)
	require.Len(t, summary.PorTipo, 2)
	require.Len(t, summary.PorFaixaPreco, 2)
	require.EqualValues(t, 2, summary.TotalVisualizacoes)
	require.EqualValues(t, 1, summary.ContatosRecebidos)
	require.Len(t, summary.MaisVisualizados, 1)
	require.Equal(t, casa.ID, summary.MaisVisualizados[0].ID)
	require.EqualValues(t, 2, summary.MaisVisualizados[0].Views)
}

func TestDashboardRequiresBrokerRole(t *testing.T) {
	database := newTestDB(t)
	router := newDashboardRouter(t, database)
	ana := seedUser(t, database, "ana", models.RoleUser)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/dashboard/summary", tokenFor(t, ana), nil)
	requireStatus(t, resp, http.StatusForbidden)
}
