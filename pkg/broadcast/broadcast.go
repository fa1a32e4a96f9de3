// ABOUTME: Latest-value broadcast with per-registration wait handles
// ABOUTME: One producer publishes, many consumers wait for anything newer than they saw
package broadcast

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Handle identifies one consumer registration on a Broadcast.
// Handles are generated by Register and never reused by the same Broadcast.
type Handle uint64

// Result is delivered by the asynchronous wait variants
type Result[T any] struct {
	Index int
	Value T
	OK    bool
}

// WaiterStats describes a single registration
type WaiterStats struct {
	Consumed uint64 // publications returned to this handle
	Dropped  uint64 // publications overwritten before this handle consumed them
	Pending  bool
}

// Stats is a point-in-time view of a Broadcast
type Stats struct {
	Published uint64
	Waiters   map[Handle]WaiterStats
}

// waiter is the per-registration mailbox.
//
// notify holds at most one wake-up token. Whether a publication is pending is
// decided by comparing lastSeen with the broadcast sequence, never by the token.
type waiter struct {
	lastSeen uint64
	since    uint64 // sequence at registration; earlier values never count as drops
	notify   chan struct{}
	closed   chan struct{}

	consumed uint64
	dropped  uint64
}

// Broadcast holds the most recently published value and wakes registered
// waiters. It is not a queue: a slow consumer skips intermediate values and
// only ever observes the latest one.
type Broadcast[T any] struct {
	mu      sync.Mutex
	value   T
	seq     uint64
	next    Handle
	waiters map[Handle]*waiter
}

// New creates an empty broadcast
func New[T any]() *Broadcast[T] {
	return &Broadcast[T]{waiters: make(map[Handle]*waiter)}
}

// Register creates a wait handle. A new handle observes the current value
// immediately if anything has been published.
func (b *Broadcast[T]) Register() Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.waiters == nil {
		b.waiters = make(map[Handle]*waiter)
	}

	b.next++
	h := b.next
	w := &waiter{
		since:  b.seq,
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	b.waiters[h] = w
	return h
}

// Unregister removes a wait handle and releases any goroutine blocked on it.
// Returns false if the handle was not registered.
func (b *Broadcast[T]) Unregister(h Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.waiters[h]
	if !ok {
		return false
	}
	close(w.closed)
	delete(b.waiters, h)
	return true
}

// Publish replaces the current value and signals every registered waiter.
// Never blocks on consumers.
func (b *Broadcast[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.value = value
	prev := b.seq
	b.seq++
	for _, w := range b.waiters {
		if w.lastSeen < prev && prev > w.since {
			w.dropped++
		}
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// Latest returns the most recent value and whether anything was published
func (b *Broadcast[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.seq > 0
}

// WaitOne blocks until a publication newer than the last one consumed through
// h, then returns it. Returns false when ctx is done or h is unregistered
// while waiting. Waiting on a handle that is not registered panics.
//
// A handle must be waited on by a single goroutine at a time.
func (b *Broadcast[T]) WaitOne(ctx context.Context, h Handle) (T, bool) {
	return b.wait(ctx, h, b.waiter(h))
}

func (b *Broadcast[T]) wait(ctx context.Context, h Handle, w *waiter) (T, bool) {
	for {
		if v, ok := b.tryConsume(h, w); ok {
			return v, true
		}

		select {
		case <-w.notify:
		case <-w.closed:
			var zero T
			return zero, false
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// WaitOneAsync runs WaitOne on its own goroutine and delivers the result on
// the returned channel. The channel is buffered, so abandoning it after ctx
// is cancelled does not leak the goroutine.
func (b *Broadcast[T]) WaitOneAsync(ctx context.Context, h Handle) <-chan Result[T] {
	w := b.waiter(h)

	out := make(chan Result[T], 1)
	go func() {
		v, ok := b.wait(ctx, h, w)
		out <- Result[T]{Value: v, OK: ok}
	}()
	return out
}

// Stats returns publication and per-handle counters
func (b *Broadcast[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{Published: b.seq, Waiters: make(map[Handle]WaiterStats, len(b.waiters))}
	for h, w := range b.waiters {
		s.Waiters[h] = WaiterStats{
			Consumed: w.consumed,
			Dropped:  w.dropped,
			Pending:  b.seq > w.lastSeen,
		}
	}
	return s
}

// tryConsume returns the current value if it is newer than the handle's last
// observation. The read and the re-arm happen under one lock, so a publish
// racing with consumption is either returned now or seen by the next wait.
func (b *Broadcast[T]) tryConsume(h Handle, w *waiter) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.waiters[h] != w {
		return zero, false
	}
	if b.seq <= w.lastSeen {
		return zero, false
	}

	w.lastSeen = b.seq
	w.consumed++
	select {
	case <-w.notify:
	default:
	}
	return b.value, true
}

func (b *Broadcast[T]) waiter(h Handle) *waiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.waiters[h]
	if !ok {
		panic(fmt.Sprintf("broadcast: wait on unregistered handle %d", h))
	}
	return w
}

// WaitAny blocks until any of the broadcasts has a publication newer than the
// one last consumed through its handle. handles[i] must be registered on
// broadcasts[i]. When several are pending the lowest index wins.
// Returns false when ctx is done or any handle is unregistered while waiting.
func WaitAny[T any](ctx context.Context, broadcasts []*Broadcast[T], handles []Handle) (int, T, bool) {
	return waitAny(ctx, broadcasts, handles, resolve(broadcasts, handles))
}

func resolve[T any](broadcasts []*Broadcast[T], handles []Handle) []*waiter {
	if len(broadcasts) != len(handles) {
		panic("broadcast: WaitAny needs one handle per broadcast")
	}
	waiters := make([]*waiter, len(broadcasts))
	for i, b := range broadcasts {
		waiters[i] = b.waiter(handles[i])
	}
	return waiters
}

func waitAny[T any](ctx context.Context, broadcasts []*Broadcast[T], handles []Handle, waiters []*waiter) (int, T, bool) {
	var zero T
	if len(broadcasts) == 1 {
		v, ok := broadcasts[0].wait(ctx, handles[0], waiters[0])
		if !ok {
			return -1, zero, false
		}
		return 0, v, true
	}

	// cases: notify channels, closed channels, then ctx
	n := len(broadcasts)
	cases := make([]reflect.SelectCase, 0, 2*n+1)
	for _, w := range waiters {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(w.notify)})
	}
	for _, w := range waiters {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(w.closed)})
	}
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

	for {
		for i, b := range broadcasts {
			if v, ok := b.tryConsume(handles[i], waiters[i]); ok {
				return i, v, true
			}
		}

		// Pending state lives in the sequence numbers, so the ordered scan
		// above decides the winner after any wake-up
		if chosen, _, _ := reflect.Select(cases); chosen >= n {
			return -1, zero, false
		}
	}
}

// WaitAnyAsync runs WaitAny on its own goroutine
func WaitAnyAsync[T any](ctx context.Context, broadcasts []*Broadcast[T], handles []Handle) <-chan Result[T] {
	waiters := resolve(broadcasts, handles)

	out := make(chan Result[T], 1)
	go func() {
		i, v, ok := waitAny(ctx, broadcasts, handles, waiters)
		out <- Result[T]{Index: i, Value: v, OK: ok}
	}()
	return out
}
