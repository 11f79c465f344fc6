package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificacaoPreferencia stores how a user wants to be notified for a given
// notification type. One row per (user, tipo) pair, upserted on change.
type NotificacaoPreferencia struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex;size:36"`
	UserID    uint      `json:"-" gorm:"uniqueIndex:idx_notif_prefs_user_tipo;not null"`
	Tipo      string    `json:"tipo" gorm:"uniqueIndex:idx_notif_prefs_user_tipo;size:64;not null"`
	PorEmail  bool      `json:"porEmail"`
	PorPush   bool      `json:"porPush"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (NotificacaoPreferencia) TableName() string {
	return "notificacao_preferencias"
}

func (n *NotificacaoPreferencia) BeforeCreate(tx *gorm.DB) error {
	if n.UUID == "" {
		n.UUID = uuid.NewString()
	}
	return nil
}

type NotificationPreferenceRequest struct {
	Tipo     string `json:"tipo" binding:"required"`
	PorEmail *bool  `json:"porEmail" binding:"required"`
	PorPush  *bool  `json:"porPush" binding:"required"`
}
