// Package websocket provides the transport plumbing for per-session
// realtime channels: an upgradable connection, a buffered outbound queue,
// and read/write pumps. Event semantics live in the chat domain; this
// package only moves bytes.
package websocket

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single WebSocket connection with a buffered outbound
// queue. Writes go through TrySend, which never blocks and is safe to call
// concurrently with Close: delivery to a closed client is a no-op.
type Client struct {
	ID   string
	Send chan []byte

	conn Conn

	mu      sync.Mutex
	closed  bool
	pumping bool
}

// NewClient wraps a connection with a send buffer of the given size.
func NewClient(conn Conn, buffer int) *Client {
	return &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, buffer),
		conn: conn,
	}
}

// TrySend queues data for delivery without blocking. It reports false when
// the client is closed or its buffer is full; either way the caller treats
// the send as best-effort.
func (c *Client) TrySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- data:
		return true
	default:
		// Client buffer full; skip to avoid blocking.
		return false
	}
}

// Close marks the client closed and closes the send queue. Frames accepted
// by TrySend before Close are still flushed: a running write pump drains the
// queue and closes the connection on exit; without one, Close drains the
// queue itself before closing the connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.Send)
	pumping := c.pumping
	c.mu.Unlock()

	if pumping {
		return
	}

	for message := range c.Send {
		if err := c.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
	c.conn.Close()
}

// ReadPump reads messages from the connection and passes each to handler.
// It returns when the connection errors or closes.
func (c *Client) ReadPump(handler func(data []byte)) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		handler(message)
	}
}

// WritePump drains the send queue to the connection and closes the
// connection on exit. It returns when the queue is closed or a write fails;
// on a graceful Close the queue is drained before the connection drops.
func (c *Client) WritePump() {
	c.mu.Lock()
	c.pumping = true
	c.mu.Unlock()
	defer c.conn.Close()

	for message := range c.Send {
		if err := c.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Upgrade upgrades an HTTP request to a WebSocket connection and returns a
// Client wrapping it.
func Upgrade(c echo.Context, buffer int) (*Client, error) {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil, err
	}
	return NewClient(&gorillaConnAdapter{ws}, buffer), nil
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
