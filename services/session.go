package services

import (
	"encoding/json"
	"strings"
)

// Wire error strings are part of the client contract and stay in Portuguese,
// like the event names.
const (
	erroNaoRegistrado  = "Usuário não registrado."
	erroMensagemVazia  = "Mensagem vazia."
	erroDestinatario   = "Destinatário não encontrado."
	erroCarregarHist   = "Falha ao carregar histórico."
	erroListarContatos = "Falha ao listar contatos."
	tituloNovaMensagem = "Nova mensagem recebida"
)

// dispatch routes one inbound envelope to its handler. Handlers for a single
// connection run serially on its read pump; handlers across connections
// interleave, which is safe because every pushed count is recomputed from the
// store at push time.
func (h *Hub) dispatch(c *Client, env Envelope) {
	switch env.Event {
	case EventRegistrarUsuario:
		var userID uint
		if err := json.Unmarshal(env.Data, &userID); err != nil || userID == 0 {
			h.logger.Debug("Ignoring invalid registration", "error", err)
			return
		}
		h.handleRegister(c, userID)

	case EventConversaAberta:
		var p ConversaAbertaPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.UsuarioID == 0 || p.ContatoID == 0 {
			return
		}
		h.setOpen(p.UsuarioID, p.ContatoID)

	case EventConversaFechada:
		var p ConversaFechadaPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.UsuarioID == 0 {
			return
		}
		h.clearOpen(p.UsuarioID)

	case EventEnviarMensagem:
		var p EnviarMensagemPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.handleSendMessage(c, p)

	case EventDigitando:
		var p DigitandoPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.push(p.DestinatarioID, EventUsuarioDigitando, p.RemetenteID)

	case EventParouDigitando:
		var p DigitandoPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.push(p.DestinatarioID, EventUsuarioParouDigitando, p.RemetenteID)

	case EventCarregarHistorico:
		var p CarregarHistoricoPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.UsuarioA == 0 || p.UsuarioB == 0 {
			return
		}
		h.handleLoadHistory(c, p)

	case EventListarContatos:
		var p ListarContatosPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.UserID == 0 {
			return
		}
		h.handleListContacts(c, p.UserID)

	case EventGetOnlineUsers:
		c.push(EventOnlineUsersList, h.ListOnline())

	default:
		h.logger.Debug("Unknown chat event", "event", env.Event)
	}
}

// handleRegister binds the connection and immediately replays the pending
// unread state: one counter per sender with unread messages, then the
// aggregate notification. Counters for the user's open conversation are
// suppressed (normally none right after connecting).
func (h *Hub) handleRegister(c *Client, userID uint) {
	h.register(userID, c)
	h.logger.Info("User registered on chat", "user_id", userID)

	pendentes, err := h.store.UnreadBySender(h.ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load pending unread counts", "user_id", userID, "error", err)
		return
	}

	aberto, temAberto := h.openWith(userID)
	for _, pendente := range pendentes {
		if temAberto && pendente.RemetenteID == aberto {
			continue
		}
		c.push(EventAtualizarNaoLidas, NaoLidasPayload{
			RemetenteID: pendente.RemetenteID,
			Total:       pendente.Total,
		})
	}

	h.pushAggregateNotification(userID)
}

// handleSendMessage persists a message and fans out every derived view to
// the affected parties. Persistence always precedes any push; a storage
// failure after persistence is logged and the remaining steps proceed, the
// next recompute self-corrects.
func (h *Hub) handleSendMessage(c *Client, p EnviarMensagemPayload) {
	remetenteID := c.userID
	if remetenteID == 0 {
		c.push(EventErroMensagem, ErroPayload{Erro: erroNaoRegistrado})
		return
	}
	if strings.TrimSpace(p.Conteudo) == "" {
		c.push(EventErroMensagem, ErroPayload{Erro: erroMensagemVazia})
		return
	}

	exists, err := h.store.UserExists(h.ctx, p.DestinatarioID)
	if err != nil {
		h.logger.Error("Failed to check recipient", "destinatario_id", p.DestinatarioID, "error", err)
		return
	}
	if !exists {
		c.push(EventErroMensagem, ErroPayload{Erro: erroDestinatario})
		return
	}

	mensagem, err := h.store.Create(h.ctx, remetenteID, p.DestinatarioID, p.Conteudo)
	if err != nil {
		h.logger.Error("Failed to persist message", "remetente_id", remetenteID,
			"destinatario_id", p.DestinatarioID, "error", err)
		return
	}

	// Live message push to both ends, for open chat views.
	h.push(remetenteID, EventNovaMensagem, mensagem)
	h.push(p.DestinatarioID, EventNovaMensagem, mensagem)

	if h.IsOnline(p.DestinatarioID) {
		suprimir := h.isOpenWith(p.DestinatarioID, remetenteID)

		// The pushed counter is recomputed from storage, never carried over
		// from earlier in this handler. Suppression zeroes the pushed value
		// only; the stored flag is untouched.
		naoLidas, err := h.store.CountUnread(h.ctx, remetenteID, p.DestinatarioID)
		if err != nil {
			h.logger.Error("Failed to count unread messages", "error", err)
			naoLidas = 0
		}
		if suprimir {
			naoLidas = 0
		}
		h.push(p.DestinatarioID, EventAtualizarNaoLidas, NaoLidasPayload{
			RemetenteID: remetenteID,
			Total:       naoLidas,
		})

		h.pushAggregateNotification(p.DestinatarioID)
		h.pushContactList(p.DestinatarioID)

		if !suprimir {
			h.push(p.DestinatarioID, EventNotificacaoMensagem, NotificacaoMensagemPayload{
				Titulo:      tituloNovaMensagem,
				Conteudo:    mensagem.Conteudo,
				Remetente:   mensagem.Remetente.Nome,
				RemetenteID: remetenteID,
				Timestamp:   mensagem.CriadoEm,
			})
		}
	} else {
		h.logger.Debug("Recipient offline, message stored", "destinatario_id", p.DestinatarioID)
	}

	// Lightweight preview for conversation-list UIs on both ends, each one
	// labeled with the other party.
	h.push(remetenteID, EventNovaMensagemLista, MensagemListaPayload{
		RemetenteID:    remetenteID,
		DestinatarioID: p.DestinatarioID,
		Conteudo:       mensagem.Conteudo,
		CriadoEm:       mensagem.CriadoEm,
		Nome:           mensagem.Destinatario.Nome,
		Avatar:         mensagem.Destinatario.Avatar(),
	})
	h.push(p.DestinatarioID, EventNovaMensagemLista, MensagemListaPayload{
		RemetenteID:    remetenteID,
		DestinatarioID: p.DestinatarioID,
		Conteudo:       mensagem.Conteudo,
		CriadoEm:       mensagem.CriadoEm,
		Nome:           mensagem.Remetente.Nome,
		Avatar:         mensagem.Remetente.Avatar(),
	})
}

// handleLoadHistory marks everything B sent A as read, refreshes A's
// counters, and returns the full ordered history to the requester only.
// Calling it twice is idempotent: the second mark-read touches zero rows.
func (h *Hub) handleLoadHistory(c *Client, p CarregarHistoricoPayload) {
	if _, err := h.store.MarkRead(h.ctx, p.UsuarioB, p.UsuarioA); err != nil {
		h.logger.Error("Failed to mark messages read", "error", err)
		c.push(EventErroHistorico, ErroPayload{Erro: erroCarregarHist})
		return
	}

	h.pushAggregateNotification(p.UsuarioA)

	naoLidas, err := h.store.CountUnread(h.ctx, p.UsuarioB, p.UsuarioA)
	if err != nil {
		h.logger.Error("Failed to count unread messages", "error", err)
		naoLidas = 0
	}
	h.push(p.UsuarioA, EventAtualizarNaoLidas, NaoLidasPayload{
		RemetenteID: p.UsuarioB,
		Total:       naoLidas,
	})

	mensagens, err := h.store.History(h.ctx, p.UsuarioA, p.UsuarioB)
	if err != nil {
		h.logger.Error("Failed to load history", "error", err)
		c.push(EventErroHistorico, ErroPayload{Erro: erroCarregarHist})
		return
	}
	c.push(EventHistoricoCarregado, mensagens)
}

// handleListContacts derives the contact summary set for the user and pushes
// it to the requester only.
func (h *Hub) handleListContacts(c *Client, userID uint) {
	contatos, err := h.ContactSummaries(userID)
	if err != nil {
		h.logger.Error("Failed to list contacts", "user_id", userID, "error", err)
		c.push(EventErroContatos, ErroPayload{Erro: erroListarContatos})
		return
	}
	c.push(EventContatosAtualizados, contatos)
}
