package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies what a user is allowed to do and which side of the
// marketplace they sit on.
type Role string

const (
	RoleUser     Role = "USER"
	RoleCorretor Role = "CORRETOR"
	RoleAdmin    Role = "ADMIN"
)

// User represents an account on the marketplace. Field names follow the wire
// contract of the original API (Portuguese payload keys).
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UUID         string     `json:"uuid" gorm:"uniqueIndex;size:36"`
	Nome         string     `json:"nome" gorm:"not null"`
	Telefone     string     `json:"telefone"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	Senha        string     `json:"-" gorm:"not null"`
	Cidade       string     `json:"cidade"`
	AvatarURL    string     `json:"avatarUrl"`
	Role         Role       `json:"role" gorm:"size:16;default:USER"`
	UltimoAcesso *time.Time `json:"ultimoAcesso"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == "" {
		u.UUID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// Avatar returns the stored avatar URL or a deterministic placeholder.
func (u *User) Avatar() string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	return PlaceholderAvatar(u.ID)
}

// Request/Response DTOs

type RegisterUserRequest struct {
	Nome     string `json:"nome" binding:"required"`
	Telefone string `json:"telefone"`
	Email    string `json:"email" binding:"required,email"`
	Senha    string `json:"senha" binding:"required,min=6"`
	Cidade   string `json:"cidade"`
}

type LoginRequest struct {
	Email string `json:"email" binding:"required"`
	Senha string `json:"senha" binding:"required"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type UpdateUserRequest struct {
	Nome      *string `json:"nome"`
	Telefone  *string `json:"telefone"`
	Email     *string `json:"email"`
	Cidade    *string `json:"cidade"`
	AvatarURL *string `json:"avatarUrl"`
}

type UpdateEmailRequest struct {
	NewEmail string `json:"newEmail" binding:"required,email"`
	Motivo   string `json:"motivo" binding:"required,min=3"`
}

type UpdatePasswordRequest struct {
	SenhaAtual string `json:"senhaAtual" binding:"required"`
	NovaSenha  string `json:"novaSenha" binding:"required,min=6"`
}

// UserOverview aggregates a profile with activity counters for the account page.
type UserOverview struct {
	User           User         `json:"user"`
	FavoritosCount int64        `json:"favoritosCount"`
	Simulations    []Simulation `json:"simulations"`
}
