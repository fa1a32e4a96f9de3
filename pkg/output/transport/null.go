// ABOUTME: Transport that discards everything
// ABOUTME: Counts lines and bytes for benchmarks and dry runs
package transport

import (
	"context"
	"sync/atomic"

	"github.com/motionsync/motionsync-go/pkg/output"
)

// ErrNotConnected is returned by Send before Connect or after Close
var ErrNotConnected = output.ErrNotConnected

// Null accepts every line without sending it anywhere
type Null struct {
	connected atomic.Bool
	lines     atomic.Uint64
	bytes     atomic.Uint64
}

func (n *Null) Connect(ctx context.Context) error {
	n.connected.Store(true)
	return nil
}

func (n *Null) Send(ctx context.Context, line string) error {
	if !n.connected.Load() {
		return ErrNotConnected
	}
	n.lines.Add(1)
	n.bytes.Add(uint64(len(line)))
	return nil
}

func (n *Null) Close() error {
	n.connected.Store(false)
	return nil
}

// Counts returns the number of lines and bytes accepted
func (n *Null) Counts() (lines, bytes uint64) {
	return n.lines.Load(), n.bytes.Load()
}
