package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"imovia/marketplace-api/config"
	"imovia/marketplace-api/models"
	"imovia/marketplace-api/utils"
)

const testJWTSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PropertyView{},
		&models.PropertyContact{},
		&models.Favorite{},
		&models.Simulation{},
		&models.NotificacaoPreferencia{},
		&models.Mensagem{},
	))
	return database
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Port:        "0",
		Environment: "test",
		JWTSecret:   testJWTSecret,
		TokenTTL:    time.Hour,
		UploadDir:   t.TempDir(),
	}
}

func testLogger() *utils.Logger {
	return utils.NewLogger()
}

func seedUser(t *testing.T, database *gorm.DB, nome string, role models.Role) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Nome:  nome,
		Email: nome + "@example.com",
		Senha: string(hashed),
		Role:  role,
	}
	require.NoError(t, database.Create(&user).Error)
	return &user
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()

	claims := jwt.MapClaims{
		"userId": user.ID,
		"email":  user.Email,
		"nome":   user.Nome,
		"role":   string(user.Role),
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

// doJSON performs a request against the router, optionally authenticated,
// and returns the recorded response.
func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func userPath(id uint) string {
	return fmt.Sprintf("/api/v1/users/%d", id)
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
}

func requireStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, recorder.Code, "unexpected status, body: %s", recorder.Body.String())
}
