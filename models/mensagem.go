package models

import (
	"fmt"
	"time"
)

// Mensagem is a persisted chat message between two users. The read flag is
// only ever flipped by an explicit history load on the recipient side.
type Mensagem struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	RemetenteID    uint      `json:"remetenteId" gorm:"index:idx_mensagens_par;not null"`
	DestinatarioID uint      `json:"destinatarioId" gorm:"index:idx_mensagens_par;not null"`
	Conteudo       string    `json:"conteudo" gorm:"not null"`
	Lida           bool      `json:"lida" gorm:"default:false"`
	CriadoEm       time.Time `json:"criadoEm" gorm:"autoCreateTime;index"`

	// Relations
	Remetente    User `json:"remetente" gorm:"foreignKey:RemetenteID"`
	Destinatario User `json:"destinatario" gorm:"foreignKey:DestinatarioID"`
}

func (Mensagem) TableName() string {
	return "mensagens"
}

// Contato is the derived per-counterpart summary pushed to chat clients.
// It is recomputed on demand and never stored.
type Contato struct {
	ID       uint   `json:"id"`
	Nome     string `json:"nome"`
	Avatar   string `json:"avatar"`
	Online   bool   `json:"online"`
	NaoLidas int64  `json:"naoLidas"`
}

// UnreadBySender is one row of the grouped unread count query.
type UnreadBySender struct {
	RemetenteID uint  `json:"remetenteId"`
	Total       int64 `json:"total"`
}

// Conversa is a row of the REST conversation listing: the counterpart plus
// the most recent message exchanged with them.
type Conversa struct {
	ID             uint      `json:"id"`
	Nome           string    `json:"nome"`
	Avatar         string    `json:"avatar"`
	Role           Role      `json:"role"`
	UltimaMensagem string    `json:"ultimaMensagem"`
	Horario        time.Time `json:"horario"`
}

// PlaceholderAvatar builds the fallback avatar URL used whenever a user has
// not uploaded one.
func PlaceholderAvatar(userID uint) string {
	return fmt.Sprintf("https://i.pravatar.cc/100?u=%d", userID)
}
