package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"imovia/marketplace-api/models"
)

// MessageStore is the persistence interface the chat core depends on. The
// gorm implementation below is the production adapter; tests may substitute
// an sqlite-backed instance.
type MessageStore interface {
	// Create persists a new unread message and returns it with the sender
	// and recipient relations populated.
	Create(ctx context.Context, remetenteID, destinatarioID uint, conteudo string) (*models.Mensagem, error)

	// CountUnread returns how many messages from remetenteID to
	// destinatarioID are still unread.
	CountUnread(ctx context.Context, remetenteID, destinatarioID uint) (int64, error)

	// UnreadBySender groups unread messages addressed to destinatarioID by
	// sender, one row per distinct sender with at least one unread message.
	UnreadBySender(ctx context.Context, destinatarioID uint) ([]models.UnreadBySender, error)

	// History returns every message exchanged between the two users, both
	// directions, ordered by creation time ascending.
	History(ctx context.Context, usuarioA, usuarioB uint) ([]models.Mensagem, error)

	// MarkRead flips the read flag on all unread messages from remetenteID
	// to destinatarioID and reports how many rows changed.
	MarkRead(ctx context.Context, remetenteID, destinatarioID uint) (int64, error)

	// Involving returns every message where the user is sender or recipient,
	// newest first, with both relations populated.
	Involving(ctx context.Context, userID uint) ([]models.Mensagem, error)

	// UserExists reports whether a user id refers to a persisted account.
	UserExists(ctx context.Context, userID uint) (bool, error)
}

type gormMessageStore struct {
	db *gorm.DB
}

// NewMessageStore returns the gorm-backed MessageStore.
func NewMessageStore(db *gorm.DB) MessageStore {
	return &gormMessageStore{db: db}
}

func (s *gormMessageStore) Create(ctx context.Context, remetenteID, destinatarioID uint, conteudo string) (*models.Mensagem, error) {
	mensagem := models.Mensagem{
		RemetenteID:    remetenteID,
		DestinatarioID: destinatarioID,
		Conteudo:       conteudo,
		Lida:           false,
	}

	if err := s.db.WithContext(ctx).Create(&mensagem).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Preload("Remetente").
		Preload("Destinatario").
		First(&mensagem, mensagem.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load created message: %w", err)
	}

	return &mensagem, nil
}

func (s *gormMessageStore) CountUnread(ctx context.Context, remetenteID, destinatarioID uint) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Mensagem{}).
		Where("remetente_id = ? AND destinatario_id = ? AND lida = ?", remetenteID, destinatarioID, false).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return total, nil
}

func (s *gormMessageStore) UnreadBySender(ctx context.Context, destinatarioID uint) ([]models.UnreadBySender, error) {
	var rows []models.UnreadBySender
	err := s.db.WithContext(ctx).
		Model(&models.Mensagem{}).
		Select("remetente_id AS remetente_id, COUNT(*) AS total").
		Where("destinatario_id = ? AND lida = ?", destinatarioID, false).
		Group("remetente_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group unread messages: %w", err)
	}
	return rows, nil
}

func (s *gormMessageStore) History(ctx context.Context, usuarioA, usuarioB uint) ([]models.Mensagem, error) {
	var mensagens []models.Mensagem
	err := s.db.WithContext(ctx).
		Where("(remetente_id = ? AND destinatario_id = ?) OR (remetente_id = ? AND destinatario_id = ?)",
			usuarioA, usuarioB, usuarioB, usuarioA).
		Order("criado_em ASC, id ASC").
		Find(&mensagens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return mensagens, nil
}

func (s *gormMessageStore) MarkRead(ctx context.Context, remetenteID, destinatarioID uint) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Mensagem{}).
		Where("remetente_id = ? AND destinatario_id = ? AND lida = ?", remetenteID, destinatarioID, false).
		Update("lida", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *gormMessageStore) Involving(ctx context.Context, userID uint) ([]models.Mensagem, error) {
	var mensagens []models.Mensagem
	err := s.db.WithContext(ctx).
		Preload("Remetente").
		Preload("Destinatario").
		Where("remetente_id = ? OR destinatario_id = ?", userID, userID).
		Order("criado_em DESC, id DESC").
		Find(&mensagens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	return mensagens, nil
}

func (s *gormMessageStore) UserExists(ctx context.Context, userID uint) (bool, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Count(&total).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return total > 0, nil
}
