// ABOUTME: Polled scheduling loops
// ABOUTME: Wait for segment changes and send each new target keyframe with its travel time
package output

import (
	"context"
	"time"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/tcode"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

// segmentMark remembers when an axis entered its segment and how long it
// was expected to last
type segmentMark struct {
	at       time.Time
	expected time.Duration
}

type polledState struct {
	marks map[axis.Axis]segmentMark
}

// handleSnapshot sends the keyframe an axis is now moving toward, with the
// time left to reach it as the command interval
func (b *loopBase) handleSnapshot(ctx context.Context, ps *polledState, a axis.Axis, snap timeline.Snapshot, now time.Time) error {
	b.stats.Tick(now, 0)

	if mark, ok := ps.marks[a]; ok && mark.expected > 0 {
		b.stats.RecordUpdateError(now.Sub(mark.at) - mark.expected)
	}
	if !snap.Valid() {
		delete(ps.marks, a)
		return nil
	}

	left := time.Duration((snap.To.Position - b.provider.Position()) * float64(time.Second))
	if left < 0 {
		left = 0
	}
	ps.marks[a] = segmentMark{at: now, expected: left}

	value := b.provider.Table().Map(a, snap.To.Value)
	if !b.filter.Check(a, value) {
		return nil
	}
	b.commands = append(b.commands, tcode.Command{Axis: a, Value: value, Interval: left})
	return b.flush(ctx, now)
}

// PolledThread blocks on a locked OS thread until a segment changes
type PolledThread struct {
	loopBase
}

func (l *PolledThread) Discipline() Discipline { return Polled }
func (l *PolledThread) Execution() Execution   { return Thread }

// Run waits for segment changes until ctx is done or a send fails
func (l *PolledThread) Run(ctx context.Context) error {
	defer lockThread()()
	l.reset()

	session := l.provider.BeginSnapshotPolling()
	defer session.End()

	ps := &polledState{marks: make(map[axis.Axis]segmentMark)}
	l.logger.Debug("polled thread loop started", "axes", len(l.axes), "session", session.ID)

	for {
		a, snap, ok := l.provider.WaitForSnapshotAny(ctx, session, l.axes)
		if !ok {
			return nil
		}
		if err := l.handleSnapshot(ctx, ps, a, snap, time.Now()); err != nil {
			return err
		}
	}
}

// PolledTask suspends on the asynchronous snapshot wait
type PolledTask struct {
	loopBase
}

func (l *PolledTask) Discipline() Discipline { return Polled }
func (l *PolledTask) Execution() Execution   { return Task }

// Run waits for segment changes until ctx is done or a send fails
func (l *PolledTask) Run(ctx context.Context) error {
	l.reset()

	session := l.provider.BeginSnapshotPolling()
	defer session.End()

	ps := &polledState{marks: make(map[axis.Axis]segmentMark)}
	l.logger.Debug("polled task loop started", "axes", len(l.axes), "session", session.ID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-l.provider.WaitForSnapshotAnyAsync(ctx, session, l.axes):
			if !r.OK {
				return nil
			}
			if err := l.handleSnapshot(ctx, ps, r.Axis, r.Snapshot, time.Now()); err != nil {
				return err
			}
		}
	}
}
