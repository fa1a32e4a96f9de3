// ABOUTME: WebSocket transport sending each line as a text message
// ABOUTME: Drains incoming frames so control messages and closes are processed
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket writes lines to a websocket endpoint
type WebSocket struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocket creates a websocket transport for a ws:// or wss:// URL
func NewWebSocket(cfg Config, logger *slog.Logger) *WebSocket {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &WebSocket{cfg: cfg, logger: logger}
}

// Connect dials the endpoint
func (w *WebSocket) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: w.cfg.Timeout}

	conn, _, err := dialer.DialContext(ctx, w.cfg.Address, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	go w.readMessages(conn)

	w.logger.Info("transport connected")
	return nil
}

// readMessages discards device output until the connection fails
func (w *WebSocket) readMessages(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			w.logger.Debug("websocket reader stopped", "error", err)
			return
		}
	}
}

// Send writes one text message
func (w *WebSocket) Send(ctx context.Context, line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(w.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	w.conn.SetWriteDeadline(deadline)

	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Close sends a close frame and closes the connection
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := w.conn.Close()
	w.conn = nil
	w.logger.Info("transport closed")
	return err
}
