// ABOUTME: Per-axis value provider shared by every output target
// ABOUTME: Interpolates the loaded timelines at the media position and publishes segment changes
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/broadcast"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

// DefaultUpdateInterval is how often Run re-evaluates segments
const DefaultUpdateInterval = 2 * time.Millisecond

// PositionSource reports the current media position in seconds
type PositionSource interface {
	Position() float64
}

// cursor remembers the last bracketing index so monotonic lookups stay O(1)
type cursor struct {
	tl       *timeline.Timeline
	index    int
	position float64
}

func (c *cursor) seek(tl *timeline.Timeline, position float64) int {
	if tl != c.tl || position < c.position {
		c.tl = tl
		c.index = tl.SegmentIndex(position)
	} else {
		c.index = tl.AdvanceIndex(c.index, position)
	}
	c.position = position
	return c.index
}

type channel struct {
	axis      axis.Axis
	timeline  atomic.Pointer[timeline.Timeline]
	algorithm atomic.Int32
	snapshots *broadcast.Broadcast[timeline.Snapshot]

	// reader cursor, shared by every caller of Value
	readMu sync.Mutex
	read   cursor

	// producer state, guarded by Provider.updateMu
	write     cursor
	published timeline.Snapshot
}

// Provider evaluates every axis at the media position. Timelines are swapped
// wholesale and never mutated, so readers take no lock on them.
type Provider struct {
	logger   *slog.Logger
	axes     *axis.Table
	source   PositionSource
	order    []axis.Axis
	channels map[axis.Axis]*channel

	position atomic.Uint64 // float64 bits of the last UpdatePosition

	updateMu sync.Mutex
}

// New creates a provider for the axes in table. source may be nil, in which
// case the position is whatever UpdatePosition last stored.
func New(table *axis.Table, source PositionSource, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		logger:   logger,
		axes:     table,
		source:   source,
		order:    table.Axes(),
		channels: make(map[axis.Axis]*channel),
	}
	for _, a := range p.order {
		ch := &channel{
			axis:      a,
			snapshots: broadcast.New[timeline.Snapshot](),
			published: timeline.EmptySnapshot(),
			read:      cursor{index: -1},
			write:     cursor{index: -1},
		}
		p.channels[a] = ch
	}
	return p
}

// Axes returns the provider's axes in protocol order
func (p *Provider) Axes() []axis.Axis {
	return append([]axis.Axis(nil), p.order...)
}

// Table returns the live axis settings
func (p *Provider) Table() *axis.Table {
	return p.axes
}

// Position returns the media position used for evaluation
func (p *Provider) Position() float64 {
	if p.source != nil {
		return p.source.Position()
	}
	return math.Float64frombits(p.position.Load())
}

// Value returns the interpolated value of a at the current media position,
// or the axis default when there is no timeline or the position is outside it
func (p *Provider) Value(a axis.Axis) float64 {
	ch := p.channels[a]
	if ch == nil {
		return p.axes.Default(a)
	}

	tl := ch.timeline.Load()
	if tl == nil || tl.Len() < 2 {
		return p.axes.Default(a)
	}

	position := p.Position()

	ch.readMu.Lock()
	index := ch.read.seek(tl, position)
	ch.readMu.Unlock()

	// the last keyframe closes the final segment
	if index == tl.Len()-1 && position == tl.At(index).Position {
		index--
	}
	if !tl.ValidIndex(index) {
		return p.axes.Default(a)
	}
	return tl.Interpolate(index, position, timeline.Algorithm(ch.algorithm.Load()))
}

// Timeline returns the timeline loaded for an axis, nil if none
func (p *Provider) Timeline(a axis.Axis) *timeline.Timeline {
	if ch := p.channels[a]; ch != nil {
		return ch.timeline.Load()
	}
	return nil
}

// SetTimeline replaces the timeline of an axis. nil unloads it.
func (p *Provider) SetTimeline(a axis.Axis, tl *timeline.Timeline) {
	ch := p.channels[a]
	if ch == nil {
		p.logger.Warn("ignoring timeline for unconfigured axis", slog.String("axis", a.String()))
		return
	}
	ch.timeline.Store(tl)
	p.UpdatePosition(p.Position())
}

// SetScript replaces every timeline with the ones in script. Axes the script
// does not mention are unloaded.
func (p *Provider) SetScript(script *timeline.Script) {
	loaded := make(map[axis.Axis]*timeline.Timeline)
	if script != nil {
		for name, tl := range script.Timelines {
			a, err := axis.Parse(name)
			if err != nil {
				p.logger.Warn("skipping script axis", slog.String("axis", name), slog.Any("error", err))
				continue
			}
			loaded[a] = tl
		}
	}

	for _, a := range p.order {
		p.channels[a].timeline.Store(loaded[a])
	}
	p.UpdatePosition(p.Position())

	if script != nil {
		p.logger.Info("script loaded", slog.String("name", script.Name), slog.Int("axes", len(loaded)))
	}
}

// SetAlgorithm selects the interpolation used by Value for an axis
func (p *Provider) SetAlgorithm(a axis.Axis, alg timeline.Algorithm) {
	if ch := p.channels[a]; ch != nil {
		ch.algorithm.Store(int32(alg))
	}
}

// Algorithm returns the interpolation used for an axis
func (p *Provider) Algorithm(a axis.Axis) timeline.Algorithm {
	if ch := p.channels[a]; ch != nil {
		return timeline.Algorithm(ch.algorithm.Load())
	}
	return timeline.Linear
}

// UpdatePosition re-evaluates the bracketing segment of every axis at
// position and publishes each axis whose segment changed. Each transition
// is published exactly once.
func (p *Provider) UpdatePosition(position float64) {
	p.updateMu.Lock()
	defer p.updateMu.Unlock()

	p.position.Store(math.Float64bits(position))

	for _, a := range p.order {
		ch := p.channels[a]

		snap := timeline.EmptySnapshot()
		if tl := ch.timeline.Load(); tl != nil && tl.Len() > 0 {
			index := ch.write.seek(tl, position)
			if tl.ValidIndex(index) {
				snap = tl.Snapshot(index)
			}
		} else {
			ch.write = cursor{index: -1}
		}

		if snap.Equal(ch.published) {
			continue
		}
		ch.published = snap
		ch.snapshots.Publish(snap)
	}
}

// Run samples source every interval and publishes segment changes until ctx is done
func (p *Provider) Run(ctx context.Context, interval time.Duration) error {
	if p.source == nil {
		return fmt.Errorf("provider has no position source")
	}
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Debug("provider update loop started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("provider update loop stopped")
			return nil
		case <-ticker.C:
			p.UpdatePosition(p.source.Position())
		}
	}
}

// Snapshot returns the last published segment of an axis
func (p *Provider) Snapshot(a axis.Axis) timeline.Snapshot {
	if ch := p.channels[a]; ch != nil {
		if snap, ok := ch.snapshots.Latest(); ok {
			return snap
		}
	}
	return timeline.EmptySnapshot()
}

// Stats returns the broadcast statistics of every axis
func (p *Provider) Stats() map[axis.Axis]broadcast.Stats {
	stats := make(map[axis.Axis]broadcast.Stats, len(p.order))
	for _, a := range p.order {
		stats[a] = p.channels[a].snapshots.Stats()
	}
	return stats
}

func (p *Provider) channel(a axis.Axis) *channel {
	ch := p.channels[a]
	if ch == nil {
		panic(fmt.Sprintf("provider: axis %s is not configured", a))
	}
	return ch
}
