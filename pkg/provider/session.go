// ABOUTME: Scoped snapshot polling registrations for output loops
// ABOUTME: Wraps per-axis broadcast handles behind begin/end and wait helpers
package provider

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/broadcast"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

// SnapshotResult is delivered by the asynchronous waits
type SnapshotResult struct {
	Axis     axis.Axis
	Snapshot timeline.Snapshot
	OK       bool
}

// PollingSession is one loop's registration on every axis broadcast.
// Call End when the loop exits.
type PollingSession struct {
	ID       string
	provider *Provider
	handles  map[axis.Axis]broadcast.Handle
	endOnce  sync.Once
}

// BeginSnapshotPolling registers a new session on every axis. A fresh
// session observes the current segment of each axis on its first wait.
func (p *Provider) BeginSnapshotPolling() *PollingSession {
	s := &PollingSession{
		ID:       uuid.New().String(),
		provider: p,
		handles:  make(map[axis.Axis]broadcast.Handle, len(p.order)),
	}
	for _, a := range p.order {
		s.handles[a] = p.channels[a].snapshots.Register()
	}
	return s
}

// End releases every registration of the session and wakes any blocked
// wait with false. Safe to call more than once.
func (s *PollingSession) End() {
	s.endOnce.Do(func() {
		for a, h := range s.handles {
			s.provider.channels[a].snapshots.Unregister(h)
		}
	})
}

// EndSnapshotPolling is End, spelled from the provider side
func (p *Provider) EndSnapshotPolling(s *PollingSession) {
	s.End()
}

// WaitForSnapshot blocks until the segment of a changes after the session
// last observed it. Returns false when ctx is done or the session ended.
func (p *Provider) WaitForSnapshot(ctx context.Context, s *PollingSession, a axis.Axis) (timeline.Snapshot, bool) {
	ch := p.channel(a)
	return ch.snapshots.WaitOne(ctx, s.handle(a))
}

// WaitForSnapshotAsync runs WaitForSnapshot in the background. The
// registration is checked before returning.
func (p *Provider) WaitForSnapshotAsync(ctx context.Context, s *PollingSession, a axis.Axis) <-chan SnapshotResult {
	res := p.channel(a).snapshots.WaitOneAsync(ctx, s.handle(a))

	out := make(chan SnapshotResult, 1)
	go func() {
		r := <-res
		out <- SnapshotResult{Axis: a, Snapshot: r.Value, OK: r.OK}
	}()
	return out
}

// WaitForSnapshotAny blocks until any axis in axes changes segment and
// returns which one. Ties go to the earliest axis in the slice.
func (p *Provider) WaitForSnapshotAny(ctx context.Context, s *PollingSession, axes []axis.Axis) (axis.Axis, timeline.Snapshot, bool) {
	broadcasts, handles := p.registrations(s, axes)
	i, snap, ok := broadcast.WaitAny(ctx, broadcasts, handles)
	if !ok {
		return "", timeline.EmptySnapshot(), false
	}
	return axes[i], snap, true
}

// WaitForSnapshotAnyAsync runs WaitForSnapshotAny in the background
func (p *Provider) WaitForSnapshotAnyAsync(ctx context.Context, s *PollingSession, axes []axis.Axis) <-chan SnapshotResult {
	broadcasts, handles := p.registrations(s, axes)
	res := broadcast.WaitAnyAsync(ctx, broadcasts, handles)

	out := make(chan SnapshotResult, 1)
	go func() {
		r := <-res
		if !r.OK {
			out <- SnapshotResult{Snapshot: timeline.EmptySnapshot()}
			return
		}
		out <- SnapshotResult{Axis: axes[r.Index], Snapshot: r.Value, OK: true}
	}()
	return out
}

func (p *Provider) registrations(s *PollingSession, axes []axis.Axis) ([]*broadcast.Broadcast[timeline.Snapshot], []broadcast.Handle) {
	broadcasts := make([]*broadcast.Broadcast[timeline.Snapshot], len(axes))
	handles := make([]broadcast.Handle, len(axes))
	for i, a := range axes {
		broadcasts[i] = p.channel(a).snapshots
		handles[i] = s.handle(a)
	}
	return broadcasts, handles
}

func (s *PollingSession) handle(a axis.Axis) broadcast.Handle {
	h, ok := s.handles[a]
	if !ok {
		panic("provider: session has no registration for axis " + a.String())
	}
	return h
}
