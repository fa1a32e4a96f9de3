// ABOUTME: HTTP transport posting each line to a device endpoint
// ABOUTME: Keeps one client with connection reuse for the lifetime of a target
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// HTTP posts every line as a text/plain request body
type HTTP struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	client *http.Client
}

// NewHTTP creates an HTTP transport for cfg.Address
func NewHTTP(cfg Config, logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &HTTP{cfg: cfg, logger: logger}
}

// Connect checks the endpoint answers at all
func (h *HTTP) Connect(ctx context.Context) error {
	client := &http.Client{Timeout: h.cfg.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.cfg.Address, nil)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("endpoint unreachable: %w", err)
	}
	resp.Body.Close()

	h.mu.Lock()
	h.client = client
	h.mu.Unlock()

	h.logger.Info("transport connected")
	return nil
}

// Send posts one line
func (h *HTTP) Send(ctx context.Context, line string) error {
	h.mu.Lock()
	client := h.client
	h.mu.Unlock()

	if client == nil {
		return ErrNotConnected
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Address, strings.NewReader(line))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("device returned %s", resp.Status)
	}
	return nil
}

// Close drops idle connections
func (h *HTTP) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client != nil {
		h.client.CloseIdleConnections()
		h.client = nil
		h.logger.Info("transport closed")
	}
	return nil
}
