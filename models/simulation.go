package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Simulation is a saved financing calculation.
type Simulation struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	UUID             string    `json:"uuid" gorm:"uniqueIndex;size:36"`
	UserID           uint      `json:"-" gorm:"index;not null"`
	Title            string    `json:"title" gorm:"not null"`
	Entry            float64   `json:"entry"`
	Installments     int       `json:"installments"`
	InstallmentValue float64   `json:"installmentValue"`
	Date             time.Time `json:"date" gorm:"autoCreateTime"`
}

func (s *Simulation) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}
	return nil
}

type CreateSimulationRequest struct {
	Title            string   `json:"title" binding:"required"`
	Entry            *float64 `json:"entry" binding:"required"`
	Installments     *int     `json:"installments" binding:"required"`
	InstallmentValue *float64 `json:"installmentValue" binding:"required"`
}
