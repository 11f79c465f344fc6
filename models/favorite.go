package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Favorite marks a property saved by a user. A user can favorite a given
// property at most once.
type Favorite struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UUID       string    `json:"uuid" gorm:"uniqueIndex;size:36"`
	UserID     uint      `json:"userId" gorm:"uniqueIndex:idx_favorites_user_property;not null"`
	PropertyID uint      `json:"propertyId" gorm:"uniqueIndex:idx_favorites_user_property;not null"`
	CreatedAt  time.Time `json:"createdAt"`

	// Relations
	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == "" {
		f.UUID = uuid.NewString()
	}
	return nil
}

type CreateFavoriteRequest struct {
	PropertyID   uint   `json:"propertyId"`
	PropertyUUID string `json:"propertyUuid"`
}
