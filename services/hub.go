package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"imovia/marketplace-api/utils"
)

// Hub owns the process-wide chat state: the presence directory (user id to
// active connection) and the open-conversation tracker (user id to the
// contact whose thread is currently on screen). Both are bounded by process
// lifetime; after a restart every user is offline until they reconnect.
//
// The hub is constructed once in main and injected into the websocket
// handler; it is never a package-level singleton.
type Hub struct {
	store    MessageStore
	presence *PresenceCache
	logger   *utils.Logger

	mu       sync.RWMutex
	sessions map[uint]*Client
	open     map[uint]uint

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub. presence may be nil when no redis mirror is wanted
// (tests run without one).
func NewHub(store MessageStore, presence *PresenceCache, logger *utils.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		store:    store,
		presence: presence,
		logger:   logger,
		sessions: make(map[uint]*Client),
		open:     make(map[uint]uint),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the background presence-cache refresher.
func (h *Hub) Start() {
	if h.presence != nil {
		h.wg.Add(1)
		go h.refreshPresence()
	}
}

// Stop cancels in-flight work and waits for background goroutines.
func (h *Hub) Stop() {
	h.cancel()
	h.wg.Wait()
	h.logger.Info("Chat hub stopped")
}

// register binds a user id to a connection, replacing any prior binding.
// The last registered connection wins for routing; a replaced connection
// stays open but no longer receives pushes.
func (h *Hub) register(userID uint, c *Client) {
	h.mu.Lock()
	h.sessions[userID] = c
	c.userID = userID
	h.mu.Unlock()

	h.broadcast(EventUserOnline, PresencePayload{UserID: userID})

	if h.presence != nil {
		if err := h.presence.Add(h.ctx, userID); err != nil {
			h.logger.Warn("Failed to mirror presence to redis", "user_id", userID, "error", err)
		}
	}
}

// unregister removes the binding and clears the open conversation, but only
// when the departing connection is still the routed one. A stale connection
// replaced by a later registration must not knock the new one offline.
func (h *Hub) unregister(c *Client) {
	userID := c.userID
	if userID == 0 {
		return
	}

	h.mu.Lock()
	current, ok := h.sessions[userID]
	if !ok || current != c {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, userID)
	delete(h.open, userID)
	h.mu.Unlock()

	h.broadcast(EventUserOffline, PresencePayload{UserID: userID})

	if h.presence != nil {
		if err := h.presence.Remove(h.ctx, userID); err != nil {
			h.logger.Warn("Failed to remove presence from redis", "user_id", userID, "error", err)
		}
	}
}

// lookup returns the routed connection for a user, or nil when offline.
func (h *Hub) lookup(userID uint) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[userID]
}

// IsOnline reports whether a user currently has a registered connection.
func (h *Hub) IsOnline(userID uint) bool {
	return h.lookup(userID) != nil
}

// ListOnline returns the ids of every registered user, sorted for stable
// output.
func (h *Hub) ListOnline() []uint {
	h.mu.RLock()
	ids := make([]uint, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// setOpen records which contact's thread the user currently displays.
func (h *Hub) setOpen(userID, contatoID uint) {
	h.mu.Lock()
	h.open[userID] = contatoID
	h.mu.Unlock()
}

// clearOpen removes the open-conversation record.
func (h *Hub) clearOpen(userID uint) {
	h.mu.Lock()
	delete(h.open, userID)
	h.mu.Unlock()
}

// isOpenWith reports whether userID's currently open conversation is the one
// with contatoID. Used only to suppress redundant counters and popups; the
// persisted read flag stays untouched.
func (h *Hub) isOpenWith(userID, contatoID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	open, ok := h.open[userID]
	return ok && open == contatoID
}

// openWith returns the contact of the user's open conversation, if any.
func (h *Hub) openWith(userID uint) (uint, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	open, ok := h.open[userID]
	return open, ok
}

// push delivers an event to a single user. Delivery to an offline user is a
// no-op; persisted state is the fallback channel.
func (h *Hub) push(userID uint, event string, payload interface{}) {
	c := h.lookup(userID)
	if c == nil {
		return
	}
	c.push(event, payload)
}

// broadcast delivers an event to every registered connection.
func (h *Hub) broadcast(event string, payload interface{}) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.sessions))
	for _, c := range h.sessions {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(data)
	}
}

// refreshPresence keeps the redis mirror alive by re-announcing every online
// user well inside the TTL window.
func (h *Hub) refreshPresence() {
	defer h.wg.Done()

	ticker := h.presence.RefreshTicker()
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			for _, id := range h.ListOnline() {
				if err := h.presence.Add(h.ctx, id); err != nil {
					h.logger.Warn("Failed to refresh presence", "user_id", id, "error", err)
				}
			}
		}
	}
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = encoded
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
