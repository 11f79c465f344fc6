package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"imovia/marketplace-api/models"
	"imovia/marketplace-api/services"
	"imovia/marketplace-api/utils"
)

// genericResetMessage avoids leaking which emails have accounts.
const genericResetMessage = "If an account exists, a code has been sent."

type AuthHandler struct {
	db     *gorm.DB
	reset  *services.ResetService
	mailer services.Mailer
	logger *utils.Logger
}

func NewAuthHandler(db *gorm.DB, reset *services.ResetService, mailer services.Mailer, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{
		db:     db,
		reset:  reset,
		mailer: mailer,
		logger: logger,
	}
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyResetCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Generic response either way
			c.JSON(http.StatusOK, gin.H{"message": genericResetMessage})
			return
		}
		h.logger.Error("Failed to fetch user for reset", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send code"})
		return
	}

	code, err := h.reset.Issue(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to issue reset code", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send code"})
		return
	}

	body := fmt.Sprintf(
		"<p>Seu código de verificação é:</p><h2 style=\"font-size:22px;letter-spacing:2px\">%s</h2>",
		code)
	if err := h.mailer.Send(user.Email, "Código para redefinição de senha", body); err != nil {
		h.logger.Error("Failed to send reset email", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": genericResetMessage})
}

// VerifyResetCode handles POST /api/v1/auth/verify-reset-code
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req verifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and code are required"})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid code"})
		return
	}

	if err := h.reset.Verify(c.Request.Context(), user.ID, req.Code); err != nil {
		if errors.Is(err, services.ErrResetCodeInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
			return
		}
		h.logger.Error("Failed to verify reset code", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Code verified successfully",
		"userUuid": user.UUID,
	})
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and new password are required"})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to fetch user for reset", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	if err := h.reset.Consume(c.Request.Context(), user.ID); err != nil {
		switch {
		case errors.Is(err, services.ErrResetCodeInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
		case errors.Is(err, services.ErrResetCodeNotVerified):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No verified code found"})
		default:
			h.logger.Error("Failed to consume reset code", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		}
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	if err := h.db.Model(&user).Update("senha", string(hashed)).Error; err != nil {
		h.logger.Error("Failed to update password", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Password reset successfully",
		"userUuid": user.UUID,
	})
}
