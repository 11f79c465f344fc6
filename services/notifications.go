package services

import (
	"imovia/marketplace-api/models"
)

// pushAggregateNotification recomputes the "contacts with unread messages"
// aggregate for a user and pushes it if they are connected. The contact of
// the user's open conversation is dropped from the aggregate; there is no
// queued delivery for offline users, the next registration replays fresh
// state.
func (h *Hub) pushAggregateNotification(userID uint) {
	rows, err := h.store.UnreadBySender(h.ctx, userID)
	if err != nil {
		h.logger.Error("Failed to compute aggregate notification", "user_id", userID, "error", err)
		return
	}

	aberto, temAberto := h.openWith(userID)
	detalhes := make([]models.UnreadBySender, 0, len(rows))
	for _, row := range rows {
		if temAberto && row.RemetenteID == aberto {
			continue
		}
		detalhes = append(detalhes, row)
	}

	h.push(userID, EventNotificacaoGlobal, NotificacaoGlobalPayload{
		TotalContatos: len(detalhes),
		Detalhes:      detalhes,
	})
}

// ContactSummaries derives one summary per distinct counterpart the user has
// ever exchanged messages with: unread count (zeroed when that thread is the
// open conversation), live online flag, name and avatar. It is a full
// recompute over the message history on every call; nothing is cached, so
// the result can never drift from the store.
func (h *Hub) ContactSummaries(userID uint) ([]models.Contato, error) {
	mensagens, err := h.store.Involving(h.ctx, userID)
	if err != nil {
		return nil, err
	}

	contatos := make([]models.Contato, 0)
	seen := make(map[uint]bool)

	for _, msg := range mensagens {
		outro := msg.Remetente
		if msg.RemetenteID == userID {
			outro = msg.Destinatario
		}
		if outro.ID == userID || seen[outro.ID] {
			continue
		}
		seen[outro.ID] = true

		naoLidas, err := h.store.CountUnread(h.ctx, outro.ID, userID)
		if err != nil {
			return nil, err
		}
		if h.isOpenWith(userID, outro.ID) {
			naoLidas = 0
		}

		contatos = append(contatos, models.Contato{
			ID:       outro.ID,
			Nome:     outro.Nome,
			Avatar:   outro.Avatar(),
			Online:   h.IsOnline(outro.ID),
			NaoLidas: naoLidas,
		})
	}

	return contatos, nil
}

// pushContactList pushes a freshly derived contact summary set to the user.
func (h *Hub) pushContactList(userID uint) {
	contatos, err := h.ContactSummaries(userID)
	if err != nil {
		h.logger.Error("Failed to derive contact list", "user_id", userID, "error", err)
		return
	}
	h.push(userID, EventContatosAtualizados, contatos)
}
