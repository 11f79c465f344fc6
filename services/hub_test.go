package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"imovia/marketplace-api/models"
	"imovia/marketplace-api/utils"
)

// fakeConn satisfies Conn without a network. ReadMessage is never used in
// these tests; events are dispatched directly.
type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, fmt.Errorf("read not supported")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(&models.User{}, &models.Mensagem{}))
	return database
}

func newTestHub(t *testing.T) (*Hub, *gorm.DB) {
	t.Helper()

	database := newTestDB(t)
	hub := NewHub(NewMessageStore(database), nil, utils.NewLogger())
	t.Cleanup(hub.Stop)
	return hub, database
}

func seedUser(t *testing.T, database *gorm.DB, nome string, role models.Role) *models.User {
	t.Helper()

	user := models.User{
		Nome:  nome,
		Email: nome + "@example.com",
		Senha: "irrelevant",
		Role:  role,
	}
	require.NoError(t, database.Create(&user).Error)
	return &user
}

// connect registers a fresh fake connection for the user and drains the
// replayed frames so each test starts from a quiet queue.
func connect(t *testing.T, hub *Hub, userID uint) *Client {
	t.Helper()

	c := NewClient(hub, &fakeConn{})
	data, err := json.Marshal(userID)
	require.NoError(t, err)
	hub.dispatch(c, Envelope{Event: EventRegistrarUsuario, Data: data})
	return c
}

// drainEvents empties the client's outbound queue and returns the decoded
// envelopes in push order.
func drainEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()

	var envs []Envelope
	for {
		select {
		case data := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(data, &env))
			envs = append(envs, env)
		default:
			return envs
		}
	}
}

// lastEvent returns the most recent queued envelope with the given name.
func lastEvent(t *testing.T, envs []Envelope, event string) (Envelope, bool) {
	t.Helper()

	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Event == event {
			return envs[i], true
		}
	}
	return Envelope{}, false
}

func decodeData(t *testing.T, env Envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestRegisterTracksPresence(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	require.True(t, hub.IsOnline(ana.ID))
	require.False(t, hub.IsOnline(rui.ID))
	drainEvents(t, anaConn)

	connect(t, hub, rui.ID)
	require.Equal(t, []uint{ana.ID, rui.ID}, hub.ListOnline())

	// Ana hears about rui coming online.
	envs := drainEvents(t, anaConn)
	env, found := lastEvent(t, envs, EventUserOnline)
	require.True(t, found)

	var p PresencePayload
	decodeData(t, env, &p)
	require.Equal(t, rui.ID, p.UserID)
}

func TestLastRegistrationWins(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	first := connect(t, hub, ana.ID)
	second := connect(t, hub, ana.ID)
	require.Same(t, second, hub.lookup(ana.ID))

	// The stale connection dropping must not knock the new one offline.
	first.disconnect()
	require.True(t, hub.IsOnline(ana.ID))
	require.Same(t, second, hub.lookup(ana.ID))

	observer := connect(t, hub, rui.ID)
	drainEvents(t, observer)

	second.disconnect()
	require.False(t, hub.IsOnline(ana.ID))

	envs := drainEvents(t, observer)
	env, found := lastEvent(t, envs, EventUserOffline)
	require.True(t, found)

	var p PresencePayload
	decodeData(t, env, &p)
	require.Equal(t, ana.ID, p.UserID)
}

func TestOpenConversationTracker(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)

	open, _ := json.Marshal(ConversaAbertaPayload{UsuarioID: ana.ID, ContatoID: rui.ID})
	hub.dispatch(anaConn, Envelope{Event: EventConversaAberta, Data: open})
	require.True(t, hub.isOpenWith(ana.ID, rui.ID))
	require.False(t, hub.isOpenWith(rui.ID, ana.ID))

	closed, _ := json.Marshal(ConversaFechadaPayload{UsuarioID: ana.ID})
	hub.dispatch(anaConn, Envelope{Event: EventConversaFechada, Data: closed})
	require.False(t, hub.isOpenWith(ana.ID, rui.ID))
}

func TestDisconnectClearsOpenConversation(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	hub.setOpen(ana.ID, rui.ID)

	anaConn.disconnect()
	require.False(t, hub.isOpenWith(ana.ID, rui.ID))
}

func TestPushToOfflineUserIsNoop(t *testing.T) {
	hub, _ := newTestHub(t)

	// Nobody is connected; this must simply do nothing.
	hub.push(42, EventNovaMensagem, nil)
	require.Empty(t, hub.ListOnline())
}

func TestGetOnlineUsersEvent(t *testing.T) {
	hub, database := newTestHub(t)
	ana := seedUser(t, database, "ana", models.RoleUser)
	rui := seedUser(t, database, "rui", models.RoleCorretor)

	anaConn := connect(t, hub, ana.ID)
	connect(t, hub, rui.ID)
	drainEvents(t, anaConn)

	hub.dispatch(anaConn, Envelope{Event: EventGetOnlineUsers})

	envs := drainEvents(t, anaConn)
	env, found := lastEvent(t, envs, EventOnlineUsersList)
	require.True(t, found)

	var ids []uint
	decodeData(t, env, &ids)
	require.Equal(t, []uint{ana.ID, rui.ID}, ids)
}
