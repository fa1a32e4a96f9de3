// ABOUTME: Main application orchestration
// ABOUTME: Wires the media source, clock, axis provider and output targets from settings
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/motionsync/motionsync-go/internal/settings"
	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/clock"
	"github.com/motionsync/motionsync-go/pkg/media"
	"github.com/motionsync/motionsync-go/pkg/output"
	"github.com/motionsync/motionsync-go/pkg/output/transport"
	"github.com/motionsync/motionsync-go/pkg/provider"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

// qualityInterval is how often the media clock is checked for lost reports
const qualityInterval = time.Second

// Config holds application configuration
type Config struct {
	Settings *settings.Settings
	Logger   *slog.Logger

	// Source overrides the media source built from settings
	Source media.Source

	// OnTargetState is called on every output target transition
	OnTargetState func(name string, state output.State)
}

// App is the running motion pipeline
type App struct {
	settings *settings.Settings
	logger   *slog.Logger

	clock    *clock.Clock
	provider *provider.Provider
	source   media.Source
	server   *media.Server // nil unless the source is the websocket endpoint

	targets []*output.Target

	mu        sync.Mutex
	script    string
	mediaPath string
	ctx       context.Context
}

// offsetSource shifts the media clock by the configured offset
type offsetSource struct {
	clock  *clock.Clock
	offset float64
}

func (s offsetSource) Position() float64 {
	return s.clock.Position() + s.offset
}

// New builds the pipeline; nothing runs until Run
func New(cfg Config) (*App, error) {
	if cfg.Settings == nil {
		return nil, errors.New("app: settings are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := cfg.Settings

	a := &App{
		settings: s,
		logger:   logger,
		clock:    clock.New(logger.With("component", "clock")),
	}

	table := s.AxisTable()
	a.provider = provider.New(table, offsetSource{clock: a.clock, offset: s.Media.Offset().Seconds()}, logger.With("component", "provider"))
	for _, ax := range s.Axes {
		a.provider.SetAlgorithm(axis.Axis(ax.Name), ax.InterpolationAlgorithm())
	}

	a.source = cfg.Source
	if a.source == nil {
		a.source = a.buildSource()
	}
	if srv, ok := a.source.(*media.Server); ok {
		a.server = srv
	}

	for _, o := range s.Outputs {
		if o.Disabled {
			logger.Info("output disabled", "output", o.Name)
			continue
		}
		tr, err := transport.New(o.TransportConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", o.Name, err)
		}
		tc := o.TargetConfig()
		tc.OnStateChange = cfg.OnTargetState
		a.targets = append(a.targets, output.NewTarget(tc, a.provider, tr, logger))
	}

	if s.Script.Path != "" {
		if err := a.LoadScript(s.Script.Path); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *App) buildSource() media.Source {
	m := a.settings.Media
	if m.Source == "simulated" {
		return media.NewSimulated(m.Duration, m.Loop)
	}
	return media.NewServer(media.ServerConfig{
		Port:       m.Port,
		Name:       m.Name,
		Path:       m.Path,
		EnableMDNS: m.MDNS,
	}, a.logger)
}

// Run starts the media source, the provider and every target, and blocks until ctx is done
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := a.source.Run(ctx, a.handleReport); err != nil {
			errChan <- fmt.Errorf("media source %s: %w", a.source.Name(), err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := a.provider.Run(ctx, a.settings.Media.UpdateInterval()); err != nil {
			errChan <- fmt.Errorf("provider: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		a.watchClock(ctx)
	}()

	for _, t := range a.targets {
		if err := t.Start(ctx); err != nil {
			a.logger.Warn("output did not start", "output", t.Name, "error", err)
		}
	}

	a.logger.Info("motionsync running",
		"source", a.source.Name(),
		"outputs", len(a.targets),
		"axes", len(a.provider.Axes()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errChan:
		a.logger.Error("pipeline failed", "error", runErr)
	}

	for _, t := range a.targets {
		t.Stop()
	}
	cancel()
	wg.Wait()
	a.logger.Info("motionsync stopped")
	return runErr
}

func (a *App) handleReport(state media.State) {
	a.clock.Report(state.ClockState())

	if !a.settings.Script.FollowMedia || state.Path == "" {
		return
	}

	a.mu.Lock()
	changed := state.Path != a.mediaPath
	a.mediaPath = state.Path
	a.mu.Unlock()
	if !changed {
		return
	}

	script, files, err := timeline.LoadScriptSet(ScriptStem(state.Path), a.settings.Script.DefaultAxis)
	if err != nil {
		a.logger.Warn("script load failed", "media", state.Path, "error", err)
		return
	}
	if script == nil {
		a.logger.Info("no script for media", "media", state.Path)
		a.provider.SetScript(nil)
		a.setScriptPath("")
		return
	}
	a.provider.SetScript(script)
	a.setScriptPath(files[0])
	a.logger.Info("scripts follow media", "media", state.Path, "files", len(files))
}

// watchClock logs media clock quality changes
func (a *App) watchClock(ctx context.Context) {
	ticker := time.NewTicker(qualityInterval)
	defer ticker.Stop()

	last := clock.QualityLost
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		q := a.clock.CheckQuality()
		if q != last {
			drift, residual, _ := a.clock.Stats()
			a.logger.Info("media clock quality", "quality", q, "drift", drift, "residual", residual)
			last = q
		}
	}
}

// LoadScript loads a funscript and replaces every timeline
func (a *App) LoadScript(path string) error {
	script, err := timeline.LoadFunscript(path, a.settings.Script.DefaultAxis)
	if err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	a.provider.SetScript(script)
	a.setScriptPath(path)
	return nil
}

func (a *App) setScriptPath(path string) {
	a.mu.Lock()
	a.script = path
	a.mu.Unlock()
}

// ScriptStem is a media path without its extension; scripts for the media
// are named after it
func ScriptStem(mediaPath string) string {
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
}

// ScriptFor returns the funscript path next to a media file
func ScriptFor(mediaPath string) string {
	return ScriptStem(mediaPath) + ".funscript"
}

// Provider exposes the axis provider
func (a *App) Provider() *provider.Provider {
	return a.provider
}

// Clock exposes the media clock
func (a *App) Clock() *clock.Clock {
	return a.clock
}

// Targets returns the output targets in settings order
func (a *App) Targets() []*output.Target {
	return append([]*output.Target(nil), a.targets...)
}

// Target returns the named output target
func (a *App) Target(name string) (*output.Target, bool) {
	for _, t := range a.targets {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return nil, false
}

// ToggleTarget stops a running target or restarts an idle one
func (a *App) ToggleTarget(name string) error {
	t, ok := a.Target(name)
	if !ok {
		return fmt.Errorf("no output named %q", name)
	}

	if t.State() != output.StateIdle {
		go t.Stop()
		return nil
	}

	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()
	if ctx == nil {
		return errors.New("app is not running")
	}
	return t.Start(ctx)
}

// SendCommand forwards a playback command to connected players
func (a *App) SendCommand(cmd media.Command) int {
	if a.server == nil {
		return 0
	}
	return a.server.SendCommand(cmd)
}
