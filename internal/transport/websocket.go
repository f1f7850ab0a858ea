// Package transport owns the physical websocket connection to the dispatch
// backend. It provides dial, frame write, frame read, and close primitives;
// connection-level failure handling and reconnection live in the session
// state machine, which consumes this package through the Transport interface.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatwire/chatwire/internal/interfaces"
)

const (
	// writeWait bounds how long a single frame write may block
	writeWait = 10 * time.Second

	// maxMessageSize bounds inbound frames from the backend (1MB)
	maxMessageSize = 1024 * 1024
)

// Conn wraps one gorilla websocket connection. gorilla/websocket does not
// support concurrent writers, so all WriteFrame calls are serialized through
// writeMu.
type Conn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// WebsocketDialer implements interfaces.Dialer over gorilla/websocket
type WebsocketDialer struct{}

// NewDialer creates the production websocket dialer
func NewDialer() *WebsocketDialer {
	return &WebsocketDialer{}
}

// Dial opens a websocket connection to the given ws:// or wss:// URL, bounded
// by the connect timeout. A timeout or refused connection is reported as an
// ordinary transport failure for the reconnection policy to handle.
func (d *WebsocketDialer) Dial(ctx context.Context, url string, timeout time.Duration) (interfaces.Transport, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	ws, resp, err := dialer.DialContext(dialCtx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	ws.SetReadLimit(maxMessageSize)
	return &Conn{ws: ws}, nil
}

// WriteFrame writes one JSON text frame to the socket
func (c *Conn) WriteFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame blocks until the next text frame arrives. Any read error,
// including a clean close from the peer, is surfaced to the session as a
// connection-level failure.
func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("connection read failed: %w", err)
		}
		// Binary frames are not part of the protocol; skip and keep reading.
		if msgType != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

// Close tears down the connection, attempting a polite close frame first.
// Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
