package services

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 64

// Conn is the narrow connection surface the chat core needs. Production uses
// *websocket.Conn; tests substitute an in-memory fake.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one chat connection. userID stays zero until the client sends
// registrar_usuario; only a registered client may send messages.
type Client struct {
	hub  *Hub
	conn Conn

	send chan []byte
	done chan struct{}

	userID uint
}

// NewClient wraps an accepted connection. The caller is expected to run
// ReadPump (blocking) and WritePump (in its own goroutine).
func NewClient(hub *Hub, conn Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ReadPump consumes frames until the connection drops, dispatching each
// envelope to the hub. It owns the disconnect side effects.
func (c *Client) ReadPump() {
	defer c.disconnect()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.hub.logger.Debug("Dropping malformed frame", "error", err)
			continue
		}

		c.hub.dispatch(c, env)
	}
}

// WritePump flushes queued outbound frames until the client disconnects.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (c *Client) disconnect() {
	c.hub.unregister(c)
	close(c.done)
	c.conn.Close()
}

// push marshals and queues one event for this connection.
func (c *Client) push(event string, payload interface{}) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		c.hub.logger.Error("Failed to marshal event", "event", event, "error", err)
		return
	}
	c.trySend(data)
}

// trySend queues a frame without ever blocking a handler: frames for a gone
// or saturated connection are dropped, the persisted store is the fallback.
func (c *Client) trySend(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("Dropping frame for slow connection", "user_id", c.userID)
	}
}
