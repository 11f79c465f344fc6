package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Property is a real-estate listing owned by a broker or regular user.
type Property struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex;size:36"`
	Tipo      string    `json:"tipo" gorm:"not null;index"`
	Descricao string    `json:"descricao"`
	Endereco  string    `json:"endereco"`
	Bairro    string    `json:"bairro" gorm:"index"`
	Cidade    string    `json:"cidade" gorm:"index"`
	Preco     float64   `json:"preco"`
	Quartos   int       `json:"quartos"`
	Banheiros int       `json:"banheiros"`
	AreaM2    float64   `json:"areaM2"`
	Ativo     bool      `json:"ativo" gorm:"default:true"`
	UserID    uint      `json:"userId" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	return nil
}

// PropertyView records a single listing page view, feeding the dashboard.
type PropertyView struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PropertyID uint      `json:"propertyId" gorm:"index;not null"`
	ViewedAt   time.Time `json:"viewedAt" gorm:"autoCreateTime;index"`

	Property Property `json:"-" gorm:"foreignKey:PropertyID"`
}

// PropertyContact records an interest message left on a listing.
type PropertyContact struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PropertyID uint      `json:"propertyId" gorm:"index;not null"`
	Nome       string    `json:"nome"`
	Email      string    `json:"email"`
	Telefone   string    `json:"telefone"`
	Mensagem   string    `json:"mensagem"`
	CriadoEm   time.Time `json:"criadoEm" gorm:"autoCreateTime"`

	Property Property `json:"-" gorm:"foreignKey:PropertyID"`
}

// Request/Response DTOs

type CreatePropertyRequest struct {
	Tipo      string  `json:"tipo" binding:"required"`
	Descricao string  `json:"descricao"`
	Endereco  string  `json:"endereco"`
	Bairro    string  `json:"bairro"`
	Cidade    string  `json:"cidade"`
	Preco     float64 `json:"preco" binding:"required"`
	Quartos   int     `json:"quartos"`
	Banheiros int     `json:"banheiros"`
	AreaM2    float64 `json:"areaM2"`
}

type UpdatePropertyRequest struct {
	Tipo      *string  `json:"tipo"`
	Descricao *string  `json:"descricao"`
	Endereco  *string  `json:"endereco"`
	Bairro    *string  `json:"bairro"`
	Cidade    *string  `json:"cidade"`
	Preco     *float64 `json:"preco"`
	Quartos   *int     `json:"quartos"`
	Banheiros *int     `json:"banheiros"`
	AreaM2    *float64 `json:"areaM2"`
	Ativo     *bool    `json:"ativo"`
}

type PropertyContactRequest struct {
	Nome     string `json:"nome" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Telefone string `json:"telefone"`
	Mensagem string `json:"mensagem"`
}

type ListResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}
