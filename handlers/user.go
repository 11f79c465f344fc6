package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"imovia/marketplace-api/config"
	"imovia/marketplace-api/middleware"
	"imovia/marketplace-api/models"
	"imovia/marketplace-api/services"
	"imovia/marketplace-api/utils"
)

type UserHandler struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer services.Mailer
	logger *utils.Logger
}

func NewUserHandler(db *gorm.DB, cfg *config.Config, mailer services.Mailer, logger *utils.Logger) *UserHandler {
	return &UserHandler{
		db:     db,
		cfg:    cfg,
		mailer: mailer,
		logger: logger,
	}
}

// Register handles POST /api/v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var existing models.User
	err := h.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Error("Failed to check existing email", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Senha), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := models.User{
		Nome:     req.Nome,
		Telefone: req.Telefone,
		Email:    req.Email,
		Senha:    string(hashed),
		Cidade:   req.Cidade,
		Role:     models.RoleUser,
	}

	if err := h.db.Create(&user).Error; err != nil {
		h.logger.Error("Failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.logger.Info("User registered", "id", user.ID, "email", user.Email)
	c.JSON(http.StatusCreated, user)
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to fetch user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Senha), []byte(req.Senha)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, err := h.signToken(&user)
	if err != nil {
		h.logger.Error("Failed to sign token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	now := time.Now()
	user.UltimoAcesso = &now
	if err := h.db.Model(&user).Update("ultimo_acesso", now).Error; err != nil {
		h.logger.Warn("Failed to record last access", "id", user.ID, "error", err)
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    user,
	})
}

func (h *UserHandler) signToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"userId": user.ID,
		"email":  user.Email,
		"nome":   user.Nome,
		"role":   string(user.Role),
		"exp":    time.Now().Add(h.cfg.TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
}

// ListUsers handles GET /api/v1/users (admin only)
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	var total int64
	if err := h.db.Model(&models.User{}).Count(&total).Error; err != nil {
		h.logger.Error("Failed to count users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	var users []models.User
	offset := (page - 1) * pageSize
	if err := h.db.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&users).Error; err != nil {
		h.logger.Error("Failed to fetch users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	c.JSON(http.StatusOK, models.ListResponse[models.User]{
		Data:       users,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to fetch user", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetOverview handles GET /api/v1/users/:id/overview
func (h *UserHandler) GetOverview(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to fetch user", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load overview"})
		return
	}

	var favoritosCount int64
	if err := h.db.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&favoritosCount).Error; err != nil {
		h.logger.Error("Failed to count favorites", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load overview"})
		return
	}

	var simulations []models.Simulation
	if err := h.db.Where("user_id = ?", userID).Order("date DESC").Find(&simulations).Error; err != nil {
		h.logger.Error("Failed to load simulations", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load overview"})
		return
	}

	c.JSON(http.StatusOK, models.UserOverview{
		User:           user,
		FavoritosCount: favoritosCount,
		Simulations:    simulations,
	})
}

// Update handles PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to fetch user", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	if req.Nome != nil {
		user.Nome = *req.Nome
	}
	if req.Telefone != nil {
		user.Telefone = *req.Telefone
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Cidade != nil {
		user.Cidade = *req.Cidade
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := h.db.Save(&user).Error; err != nil {
		h.logger.Error("Failed to update user", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateEmail handles PUT /api/v1/users/:id/email
func (h *UserHandler) UpdateEmail(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	var req models.UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	oldEmail := user.Email
	user.Email = req.NewEmail
	if err := h.db.Save(&user).Error; err != nil {
		h.logger.Error("Failed to update email", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update email"})
		return
	}

	body := fmt.Sprintf("<p>O e-mail da sua conta foi alterado para <strong>%s</strong>.</p><p>Motivo: %s</p>",
		req.NewEmail, req.Motivo)
	if err := h.mailer.Send(oldEmail, "Alteração de e-mail", body); err != nil {
		h.logger.Warn("Failed to send email change notice", "id", userID, "error", err)
	}

	h.logger.Info("Email updated", "id", userID)
	c.JSON(http.StatusOK, user)
}

// UpdatePassword handles PUT /api/v1/users/:id/password
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	var req models.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Senha), []byte(req.SenhaAtual)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NovaSenha), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	if err := h.db.Model(&user).Update("senha", string(hashed)).Error; err != nil {
		h.logger.Error("Failed to update password", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// UploadAvatar handles POST /api/v1/users/:id/avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file missing"})
		return
	}

	filename := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(file.Filename))
	destination := filepath.Join(h.cfg.UploadDir, "avatars", filename)

	if err := c.SaveUploadedFile(file, destination); err != nil {
		h.logger.Error("Failed to save avatar", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save avatar"})
		return
	}

	avatarURL := "/uploads/avatars/" + filename
	if err := h.db.Model(&models.User{}).Where("id = ?", userID).Update("avatar_url", avatarURL).Error; err != nil {
		h.logger.Error("Failed to update avatar URL", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update avatar"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatarUrl": avatarURL})
}

// Delete handles DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	if err := h.db.Delete(&models.User{}, userID).Error; err != nil {
		h.logger.Error("Failed to delete user", "id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.Status(http.StatusNoContent)
}

// requireSelf parses the :id path parameter and rejects callers operating on
// someone else's account, admins excepted.
func (h *UserHandler) requireSelf(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}

	callerID, _ := middleware.CurrentUserID(c)
	if callerID != uint(id) {
		if role, exists := c.Get(middleware.ContextRole); !exists || role.(models.Role) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return 0, false
		}
	}

	return uint(id), true
}
