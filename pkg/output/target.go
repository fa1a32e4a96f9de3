// ABOUTME: Output target lifecycle
// ABOUTME: Idle, Connecting, Running and Disconnecting with a settle delay around transport changes
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/motionsync/motionsync-go/pkg/provider"
)

// DefaultSettleDelay is the minimum time spent connecting and disconnecting
const DefaultSettleDelay = 250 * time.Millisecond

var (
	// ErrInvalidState is returned when a transition is not allowed from the current state
	ErrInvalidState = errors.New("invalid target state")

	// ErrNotConnected is returned by transports used before Connect
	ErrNotConnected = errors.New("not connected")
)

// State is the lifecycle phase of a target
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateRunning
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// TargetConfig configures a target
type TargetConfig struct {
	Name        string
	Loop        Config
	SettleDelay time.Duration // zero uses DefaultSettleDelay

	// OnStateChange is called on every transition, outside the target's lock
	OnStateChange func(name string, state State)
}

// Target owns one transport and the loop that feeds it
type Target struct {
	ID     string
	Name   string
	config TargetConfig
	logger *slog.Logger

	provider  *provider.Provider
	transport Transport
	stats     *UpdateContext

	mu      sync.Mutex
	state   State
	loop    Loop
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// NewTarget creates an idle target
func NewTarget(cfg TargetConfig, p *provider.Provider, t Transport, logger *slog.Logger) *Target {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	cfg.Loop = cfg.Loop.Normalize()

	id := uuid.New().String()
	if cfg.Name == "" {
		cfg.Name = id[:8]
	}

	return &Target{
		ID:        id,
		Name:      cfg.Name,
		config:    cfg,
		logger:    logger.With("target", cfg.Name),
		provider:  p,
		transport: t,
		stats:     NewUpdateContext(),
	}
}

// Start connects the transport and runs the loop in the background.
// Only valid from Idle.
func (t *Target) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateIdle {
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("start %s: %w (%s)", t.Name, ErrInvalidState, state)
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.lastErr = nil
	t.stats.Reset()
	t.loop = NewLoop(t.config.Loop, t.provider, t.transport, t.stats, t.logger)
	t.state = StateConnecting
	done := t.done
	t.mu.Unlock()

	t.notify(StateIdle, StateConnecting)
	go t.run(ctx, done)
	return nil
}

// Stop cancels the loop and waits for the target to return to Idle
func (t *Target) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the current run has returned to Idle
func (t *Target) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return t.done
}

func (t *Target) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	err := t.connect(ctx)
	if err == nil {
		t.setState(StateRunning)
		t.logger.Info("output running",
			"discipline", t.loop.Discipline(),
			"execution", t.loop.Execution())
		err = t.loop.Run(ctx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Error("output failed, disconnecting", "error", err)
		t.mu.Lock()
		t.lastErr = err
		t.mu.Unlock()
	}

	t.disconnect()

	t.mu.Lock()
	t.cancel()
	t.cancel = nil
	t.mu.Unlock()
	t.setState(StateIdle)
}

// connect opens the transport, taking at least the settle delay
func (t *Target) connect(ctx context.Context) error {
	settle := time.Now().Add(t.config.SettleDelay)

	if err := t.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", t.Name, err)
	}

	if !sleepUntil(ctx, settle) {
		return ctx.Err()
	}
	return nil
}

// disconnect closes the transport, taking at least the settle delay.
// Not cancellable so a quick restart cannot thrash the device.
func (t *Target) disconnect() {
	t.setState(StateDisconnecting)
	settle := time.Now().Add(t.config.SettleDelay)

	if err := t.transport.Close(); err != nil {
		t.logger.Warn("transport close failed", "error", err)
	}
	sleepUntil(context.Background(), settle)
}

func sleepUntil(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (t *Target) setState(s State) {
	t.mu.Lock()
	from := t.state
	t.state = s
	t.mu.Unlock()

	if from != s {
		t.notify(from, s)
	}
}

func (t *Target) notify(from, to State) {
	t.logger.Debug("output state", "from", from, "to", to)
	if t.config.OnStateChange != nil {
		t.config.OnStateChange(t.Name, to)
	}
}

// State returns the current lifecycle phase
func (t *Target) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the error that ended the last run, nil after a clean stop
func (t *Target) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Stats returns the loop statistics of the current or last run
func (t *Target) Stats() Stats {
	return t.stats.Stats()
}

// Config returns the normalized target configuration
func (t *Target) Config() TargetConfig {
	return t.config
}
