package services

import (
	"encoding/json"
	"time"

	"imovia/marketplace-api/models"
)

// Inbound event names. Every frame on the chat connection is a JSON envelope
// {"event": ..., "data": ...}; the data schema is fixed per event name and
// validated before dispatch.
const (
	EventRegistrarUsuario  = "registrar_usuario"
	EventConversaAberta    = "conversa_aberta"
	EventConversaFechada   = "conversa_fechada"
	EventEnviarMensagem    = "enviar_mensagem"
	EventDigitando         = "digitando"
	EventParouDigitando    = "parou_digitando"
	EventCarregarHistorico = "carregar_historico"
	EventListarContatos    = "listar_contatos"
	EventGetOnlineUsers    = "get_online_users"
)

// Outbound event names.
const (
	EventNovaMensagem          = "nova_mensagem"
	EventNovaMensagemLista     = "nova_mensagem_lista"
	EventAtualizarNaoLidas     = "atualizar_nao_lidas"
	EventNotificacaoGlobal     = "atualizar_notificacao_global"
	EventContatosAtualizados   = "contatos_atualizados"
	EventNotificacaoMensagem   = "notificacao_mensagem"
	EventUserOnline            = "user_online"
	EventUserOffline           = "user_offline"
	EventHistoricoCarregado    = "historico_carregado"
	EventOnlineUsersList       = "online_users_list"
	EventUsuarioDigitando      = "usuario_digitando"
	EventUsuarioParouDigitando = "usuario_parou_digitando"
	EventErroMensagem          = "erro_mensagem"
	EventErroHistorico         = "erro_historico"
	EventErroContatos          = "erro_contatos"
)

// Envelope is the tagged frame exchanged over the chat connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads.

type ConversaAbertaPayload struct {
	UsuarioID uint `json:"usuarioId"`
	ContatoID uint `json:"contatoId"`
}

type ConversaFechadaPayload struct {
	UsuarioID uint `json:"usuarioId"`
}

type EnviarMensagemPayload struct {
	DestinatarioID uint   `json:"destinatarioId"`
	Conteudo       string `json:"conteudo"`
}

type DigitandoPayload struct {
	RemetenteID    uint `json:"remetenteId"`
	DestinatarioID uint `json:"destinatarioId"`
}

type CarregarHistoricoPayload struct {
	UsuarioA uint `json:"usuarioA"`
	UsuarioB uint `json:"usuarioB"`
}

type ListarContatosPayload struct {
	UserID uint `json:"userId"`
}

// Outbound payloads.

type NaoLidasPayload struct {
	RemetenteID uint  `json:"remetenteId"`
	Total       int64 `json:"total"`
}

type NotificacaoGlobalPayload struct {
	TotalContatos int                     `json:"totalContatos"`
	Detalhes      []models.UnreadBySender `json:"detalhes"`
}

type NotificacaoMensagemPayload struct {
	Titulo      string    `json:"titulo"`
	Conteudo    string    `json:"conteudo"`
	Remetente   string    `json:"remetente"`
	RemetenteID uint      `json:"remetenteId"`
	Timestamp   time.Time `json:"timestamp"`
}

type MensagemListaPayload struct {
	RemetenteID    uint      `json:"remetenteId"`
	DestinatarioID uint      `json:"destinatarioId"`
	Conteudo       string    `json:"conteudo"`
	CriadoEm       time.Time `json:"criadoEm"`
	Nome           string    `json:"nome"`
	Avatar         string    `json:"avatar"`
}

type PresencePayload struct {
	UserID uint `json:"userId"`
}

type ErroPayload struct {
	Erro string `json:"erro"`
}
