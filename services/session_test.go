package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"imovia/marketplace-api/models"
)

func sendMessage(t *testing.T, hub *Hub, from *Client, to uint, conteudo string) {
	t.Helper()

	data, err := json.Marshal(EnviarMensagemPayload{DestinatarioID: to, Conteudo: conteudo})
	require.NoError(t, err)
	hub.dispatch(from, Envelope{Event: EventEnviarMensagem, Data: data})
}

func openConversation(t *testing.T, hub *Hub, c *Client, usuarioID, contatoID uint) {
	t.Helper()

	data, err := json.Marshal(ConversaAbertaPayload{UsuarioID: usuarioID, ContatoID: contatoID})
	require.NoError(t, err)
	hub.dispatch(c, Envelope{Event: EventConversaAberta, Data: data})
}

func loadHistory(t *testing.T, hub *Hub, c *Client, usuarioA, usuarioB uint) {
	t.Helper()

	data, err := json.Marshal(CarregarHistoricoPayload{UsuarioA: usuarioA, UsuarioB: usuarioB})
	require.NoError(t, err)
	hub.dispatch(c, Envelope{Event: EventCarregarHistorico, Data: data})
}

func unreadInStore(t *testing.T, hub *Hub, from, to uint) int64 {
	t.Helper()

	total, err := hub.store.CountUnread(hub.ctx, from, to)
	require.NoError(t, err)
	return total
}

func TestSendMessageFansOutToOnlineRecipient(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	ruiConn := connect(t, hub, rui.ID)
	drainEvents(t, anaConn)
	drainEvents(t, ruiConn)

	sendMessage(t, hub, anaConn, rui.ID, "Tenho interesse no apartamento.")

	require.EqualValues(t, 1, unreadInStore(t, hub, ana.ID, rui.ID))

	ruiEvents := drainEvents(t, ruiConn)

	env, found := lastEvent(t, ruiEvents, EventNovaMensagem)
	require.True(t, found)
	var mensagem models.Mensagem
	decodeData(t, env, &mensagem)
	require.Equal(t, ana.ID, mensagem.RemetenteID)
	require.Equal(t, "Tenho interesse no apartamento.", mensagem.Conteudo)
	require.False(t, mensagem.Lida)

	env, found = lastEvent(t, ruiEvents, EventAtualizarNaoLidas)
	require.True(t, found)
	var naoLidas NaoLidasPayload
	decodeData(t, env, &naoLidas)
	require.Equal(t, ana.ID, naoLidas.RemetenteID)
	require.EqualValues(t, 1, naoLidas.Total)

	env, found = lastEvent(t, ruiEvents, EventNotificacaoGlobal)
	require.True(t, found)
	var global NotificacaoGlobalPayload
	decodeData(t, env, &global)
	require.Equal(t, 1, global.TotalContatos)
	require.Len(t, global.Detalhes, 1)
	require.Equal(t, ana.ID, global.Detalhes[0].RemetenteID)

	env, found = lastEvent(t, ruiEvents, EventContatosAtualizados)
	require.True(t, found)
	var contatos []models.Contato
	decodeData(t, env, &contatos)
	require.Len(t, contatos, 1)
	require.Equal(t, ana.ID, contatos[0].ID)
	require.True(t, contatos[0].Online)
	require.EqualValues(t, 1, contatos[0].NaoLidas)

	env, found = lastEvent(t, ruiEvents, EventNotificacaoMensagem)
	require.True(t, found)
	var popup NotificacaoMensagemPayload
	decodeData(t, env, &popup)
	require.Equal(t, "ana", popup.Remetente)
	require.Equal(t, ana.ID, popup.RemetenteID)

	// The preview names the other party on each end.
	env, found = lastEvent(t, ruiEvents, EventNovaMensagemLista)
	require.True(t, found)
	var lista MensagemListaPayload
	decodeData(t, env, &lista)
	require.Equal(t, "ana", lista.Nome)

	anaEvents := drainEvents(t, anaConn)
	env, found = lastEvent(t, anaEvents, EventNovaMensagem)
	require.True(t, found)
	env, found = lastEvent(t, anaEvents, EventNovaMensagemLista)
	require.True(t, found)
	decodeData(t, env, &lista)
	require.Equal(t, "rui", lista.Nome)
}

func TestOpenConversationSuppressesCounterAndPopup(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	ruiConn := connect(t, hub, rui.ID)
	openConversation(t, hub, ruiConn, rui.ID, ana.ID)
	drainEvents(t, anaConn)
	drainEvents(t, ruiConn)

	sendMessage(t, hub, anaConn, rui.ID, "Oi!")

	ruiEvents := drainEvents(t, ruiConn)

	// The pushed counter is zeroed, no popup fires, but the stored read flag
	// is untouched until an explicit history load.
	env, found := lastEvent(t, ruiEvents, EventAtualizarNaoLidas)
	require.True(t, found)
	var naoLidas NaoLidasPayload
	decodeData(t, env, &naoLidas)
	require.EqualValues(t, 0, naoLidas.Total)

	_, found = lastEvent(t, ruiEvents, EventNotificacaoMensagem)
	require.False(t, found)

	env, found = lastEvent(t, ruiEvents, EventNotificacaoGlobal)
	require.True(t, found)
	var global NotificacaoGlobalPayload
	decodeData(t, env, &global)
	require.Equal(t, 0, global.TotalContatos)

	require.EqualValues(t, 1, unreadInStore(t, hub, ana.ID, rui.ID))
}

func TestOfflineRecipientGetsStateOnRegister(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	drainEvents(t, anaConn)

	sendMessage(t, hub, anaConn, rui.ID, "Olá")

	// No error frame for the sender; the message waits in storage.
	anaEvents := drainEvents(t, anaConn)
	_, found := lastEvent(t, anaEvents, EventErroMensagem)
	require.False(t, found)
	require.EqualValues(t, 1, unreadInStore(t, hub, ana.ID, rui.ID))

	// Registration replays the pending unread state.
	ruiConn := connect(t, hub, rui.ID)
	ruiEvents := drainEvents(t, ruiConn)

	env, found := lastEvent(t, ruiEvents, EventAtualizarNaoLidas)
	require.True(t, found)
	var naoLidas NaoLidasPayload
	decodeData(t, env, &naoLidas)
	require.Equal(t, ana.ID, naoLidas.RemetenteID)
	require.EqualValues(t, 1, naoLidas.Total)

	env, found = lastEvent(t, ruiEvents, EventNotificacaoGlobal)
	require.True(t, found)
	var global NotificacaoGlobalPayload
	decodeData(t, env, &global)
	require.Equal(t, 1, global.TotalContatos)
}

func TestSendMessageValidation(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	t.Run("unregistered connection", func(t *testing.T) {
		anon := NewClient(hub, &fakeConn{})
		sendMessage(t, hub, anon, rui.ID, "oi")

		envs := drainEvents(t, anon)
		env, found := lastEvent(t, envs, EventErroMensagem)
		require.True(t, found)
		var erro ErroPayload
		decodeData(t, env, &erro)
		require.Equal(t, "Usuário não registrado.", erro.Erro)
	})

	anaConn := connect(t, hub, ana.ID)
	drainEvents(t, anaConn)

	t.Run("blank content", func(t *testing.T) {
		sendMessage(t, hub, anaConn, rui.ID, "   ")

		envs := drainEvents(t, anaConn)
		env, found := lastEvent(t, envs, EventErroMensagem)
		require.True(t, found)
		var erro ErroPayload
		decodeData(t, env, &erro)
		require.Equal(t, "Mensagem vazia.", erro.Erro)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		sendMessage(t, hub, anaConn, 9999, "oi")

		envs := drainEvents(t, anaConn)
		env, found := lastEvent(t, envs, EventErroMensagem)
		require.True(t, found)
		var erro ErroPayload
		decodeData(t, env, &erro)
		require.Equal(t, "Destinatário não encontrado.", erro.Erro)

		var total int64
		require.NoError(t, database.Model(&models.Mensagem{}).Count(&total).Error)
		require.EqualValues(t, 0, total)
	})
}

func TestLoadHistoryMarksReadAndReplays(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	ruiConn := connect(t, hub, rui.ID)
	drainEvents(t, anaConn)
	drainEvents(t, ruiConn)

	sendMessage(t, hub, ruiConn, ana.ID, "Primeira")
	sendMessage(t, hub, ruiConn, ana.ID, "Segunda")
	sendMessage(t, hub, anaConn, rui.ID, "Resposta")
	drainEvents(t, anaConn)
	drainEvents(t, ruiConn)

	require.EqualValues(t, 2, unreadInStore(t, hub, rui.ID, ana.ID))

	loadHistory(t, hub, anaConn, ana.ID, rui.ID)

	anaEvents := drainEvents(t, anaConn)

	env, found := lastEvent(t, anaEvents, EventHistoricoCarregado)
	require.True(t, found)
	var historico []models.Mensagem
	decodeData(t, env, &historico)
	require.Len(t, historico, 3)
	require.Equal(t, "Primeira", historico[0].Conteudo)
	require.Equal(t, "Segunda", historico[1].Conteudo)
	require.Equal(t, "Resposta", historico[2].Conteudo)

	env, found = lastEvent(t, anaEvents, EventAtualizarNaoLidas)
	require.True(t, found)
	var naoLidas NaoLidasPayload
	decodeData(t, env, &naoLidas)
	require.Equal(t, rui.ID, naoLidas.RemetenteID)
	require.EqualValues(t, 0, naoLidas.Total)

	require.EqualValues(t, 0, unreadInStore(t, hub, rui.ID, ana.ID))

	// Ana reading her thread does not touch what she sent to rui.
	require.EqualValues(t, 1, unreadInStore(t, hub, ana.ID, rui.ID))

	// Loading again is harmless.
	loadHistory(t, hub, anaConn, ana.ID, rui.ID)
	anaEvents = drainEvents(t, anaConn)
	_, found = lastEvent(t, anaEvents, EventHistoricoCarregado)
	require.True(t, found)
	_, found = lastEvent(t, anaEvents, EventErroHistorico)
	require.False(t, found)
}

func TestListContactsDerivesSummaries(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)
	bia := seedUser(t, database, "bia", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	ruiConn := connect(t, hub, rui.ID)
	drainEvents(t, anaConn)

	// Rui messaged first, bia messaged last; bia stays offline.
	sendMessage(t, hub, ruiConn, ana.ID, "Do corretor rui")
	biaOffline := connect(t, hub, bia.ID)
	sendMessage(t, hub, biaOffline, ana.ID, "Da corretora bia")
	biaOffline.disconnect()
	drainEvents(t, anaConn)

	data, err := json.Marshal(ListarContatosPayload{UserID: ana.ID})
	require.NoError(t, err)
	hub.dispatch(anaConn, Envelope{Event: EventListarContatos, Data: data})

	envs := drainEvents(t, anaConn)
	env, found := lastEvent(t, envs, EventContatosAtualizados)
	require.True(t, found)

	var contatos []models.Contato
	decodeData(t, env, &contatos)
	require.Len(t, contatos, 2)

	// Newest conversation first, one entry per counterpart.
	require.Equal(t, bia.ID, contatos[0].ID)
	require.False(t, contatos[0].Online)
	require.EqualValues(t, 1, contatos[0].NaoLidas)

	require.Equal(t, rui.ID, contatos[1].ID)
	require.True(t, contatos[1].Online)
	require.EqualValues(t, 1, contatos[1].NaoLidas)
}

func TestTypingIndicatorRelay(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	ruiConn := connect(t, hub, rui.ID)
	drainEvents(t, anaConn)
	drainEvents(t, ruiConn)

	data, err := json.Marshal(DigitandoPayload{RemetenteID: ana.ID, DestinatarioID: rui.ID})
	require.NoError(t, err)

	hub.dispatch(anaConn, Envelope{Event: EventDigitando, Data: data})
	envs := drainEvents(t, ruiConn)
	env, found := lastEvent(t, envs, EventUsuarioDigitando)
	require.True(t, found)
	var remetente uint
	decodeData(t, env, &remetente)
	require.Equal(t, ana.ID, remetente)

	hub.dispatch(anaConn, Envelope{Event: EventParouDigitando, Data: data})
	envs = drainEvents(t, ruiConn)
	_, found = lastEvent(t, envs, EventUsuarioParouDigitando)
	require.True(t, found)
}
