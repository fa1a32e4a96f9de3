// ABOUTME: Device transports for output targets
// ABOUTME: Builds serial, network, pipe, HTTP and websocket writers from a kind and address
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/motionsync/motionsync-go/pkg/output"
)

// Kind selects a transport implementation
type Kind string

const (
	KindSerial    Kind = "serial"
	KindTCP       Kind = "tcp"
	KindUDP       Kind = "udp"
	KindPipe      Kind = "pipe"
	KindHTTP      Kind = "http"
	KindWebSocket Kind = "websocket"
	KindNull      Kind = "null"
)

// Kinds lists every transport kind
func Kinds() []Kind {
	return []Kind{KindSerial, KindTCP, KindUDP, KindPipe, KindHTTP, KindWebSocket, KindNull}
}

// ParseKind accepts a kind name, case-insensitively
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "ws" {
		return KindWebSocket, nil
	}
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown transport %q", s)
}

// DefaultTimeout bounds connects and individual writes
const DefaultTimeout = 2 * time.Second

// Config describes one transport
type Config struct {
	Kind     Kind
	Address  string // device path, host:port, pipe path or URL
	BaudRate int    // serial only
	Timeout  time.Duration
}

// New builds an unconnected transport
func New(cfg Config, logger *slog.Logger) (output.Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Address == "" && cfg.Kind != KindNull {
		return nil, fmt.Errorf("%s transport needs an address", cfg.Kind)
	}
	logger = logger.With("transport", string(cfg.Kind), "address", cfg.Address)

	switch cfg.Kind {
	case KindSerial:
		return newStream(cfg, logger, dialSerial), nil
	case KindTCP:
		return newStream(cfg, logger, dialNetwork("tcp")), nil
	case KindUDP:
		return newStream(cfg, logger, dialNetwork("udp")), nil
	case KindPipe:
		return newStream(cfg, logger, dialPipe), nil
	case KindHTTP:
		return NewHTTP(cfg, logger), nil
	case KindWebSocket:
		return NewWebSocket(cfg, logger), nil
	case KindNull:
		return &Null{}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Kind)
	}
}

// deadlineWriter is implemented by connections that support write deadlines
type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

type dialFunc func(ctx context.Context, cfg Config) (io.WriteCloser, error)

// stream writes lines to a byte-oriented connection
type stream struct {
	cfg    Config
	logger *slog.Logger
	dial   dialFunc

	mu   sync.Mutex
	conn io.WriteCloser
}

func newStream(cfg Config, logger *slog.Logger, dial dialFunc) *stream {
	return &stream{cfg: cfg, logger: logger, dial: dial}
}

// Connect opens the underlying connection
func (s *stream) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	conn, err := s.dial(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("%s dial failed: %w", s.cfg.Kind, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("transport connected")
	return nil
}

// Send writes one line
func (s *stream) Send(ctx context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return output.ErrNotConnected
	}

	if dw, ok := s.conn.(deadlineWriter); ok {
		deadline := time.Now().Add(s.cfg.Timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		// Not every file supports deadlines; the write still proceeds
		_ = dw.SetWriteDeadline(deadline)
	}

	if _, err := io.WriteString(s.conn, line); err != nil {
		return fmt.Errorf("%s write failed: %w", s.cfg.Kind, err)
	}
	return nil
}

// Close closes the connection; closing twice is a no-op
func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.logger.Info("transport closed")
	return err
}
