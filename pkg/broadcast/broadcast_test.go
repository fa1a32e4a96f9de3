// ABOUTME: Tests for the latest-value broadcast primitive
// ABOUTME: Covers exactly-once delivery, cancellation, WaitAny ordering and misuse
package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTwoConsumersSeeLatestIndependently(t *testing.T) {
	b := New[int]()
	a := b.Register()
	c := b.Register()
	ctx := context.Background()

	b.Publish(10)
	if v, ok := b.WaitOne(ctx, a); !ok || v != 10 {
		t.Fatalf("A: expected (10, true), got (%d, %v)", v, ok)
	}

	b.Publish(20)
	if v, ok := b.WaitOne(ctx, a); !ok || v != 20 {
		t.Errorf("A: expected (20, true), got (%d, %v)", v, ok)
	}
	if v, ok := b.WaitOne(ctx, c); !ok || v != 20 {
		t.Errorf("B: expected (20, true), got (%d, %v)", v, ok)
	}
}

func TestWaitOneDoesNotReturnSamePublicationTwice(t *testing.T) {
	b := New[int]()
	h := b.Register()

	b.Publish(1)
	if v, ok := b.WaitOne(context.Background(), h); !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if v, ok := b.WaitOne(ctx, h); ok {
		t.Errorf("expected second wait to block until timeout, got %d", v)
	}
}

func TestRegistrationAfterPublishSeesCurrentValue(t *testing.T) {
	b := New[string]()
	b.Publish("ready")

	h := b.Register()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if v, ok := b.WaitOne(ctx, h); !ok || v != "ready" {
		t.Errorf("expected (ready, true), got (%q, %v)", v, ok)
	}
}

func TestDropsCountOnlyPublicationsAfterRegistration(t *testing.T) {
	b := New[int]()
	b.Publish(1)
	b.Publish(2)

	h := b.Register()
	b.Publish(3)
	if v, ok := b.WaitOne(context.Background(), h); !ok || v != 3 {
		t.Fatalf("expected (3, true), got (%d, %v)", v, ok)
	}
	if w := b.Stats().Waiters[h]; w.Dropped != 0 || w.Consumed != 1 {
		t.Errorf("expected no drops, got %+v", w)
	}

	b.Publish(4)
	b.Publish(5)
	if v, ok := b.WaitOne(context.Background(), h); !ok || v != 5 {
		t.Fatalf("expected (5, true), got (%d, %v)", v, ok)
	}
	if w := b.Stats().Waiters[h]; w.Dropped != 1 || w.Consumed != 2 {
		t.Errorf("expected one drop, got %+v", w)
	}
}

func TestSlowConsumerSkipsIntermediateValues(t *testing.T) {
	b := New[int]()
	h := b.Register()

	for i := 1; i <= 5; i++ {
		b.Publish(i)
	}

	if v, ok := b.WaitOne(context.Background(), h); !ok || v != 5 {
		t.Errorf("expected latest value 5, got (%d, %v)", v, ok)
	}

	stats := b.Stats()
	if stats.Published != 5 {
		t.Errorf("expected 5 publications, got %d", stats.Published)
	}
	if w := stats.Waiters[h]; w.Dropped != 4 || w.Consumed != 1 || w.Pending {
		t.Errorf("unexpected waiter stats: %+v", w)
	}
}

func TestWaitOneWakesOnPublish(t *testing.T) {
	b := New[int]()
	h := b.Register()

	got := make(chan int, 1)
	go func() {
		v, _ := b.WaitOne(context.Background(), h)
		got <- v
	}()

	time.Sleep(20 * time.Millisecond)
	b.Publish(42)

	select {
	case v := <-got:
		if v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by publish")
	}
}

func TestWaitOneCancellation(t *testing.T) {
	b := New[int]()
	h := b.Register()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := b.WaitOne(ctx, h)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected cancelled wait to report false")
		}
	case <-time.After(time.Second):
		t.Fatal("cancellation did not unblock the waiter")
	}
}

func TestUnregisterReleasesWaiter(t *testing.T) {
	b := New[int]()
	h := b.Register()

	done := make(chan bool, 1)
	go func() {
		_, ok := b.WaitOne(context.Background(), h)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	if !b.Unregister(h) {
		t.Fatal("expected unregister to succeed")
	}
	if b.Unregister(h) {
		t.Error("expected second unregister to report false")
	}

	select {
	case ok := <-done:
		if ok {
			t.Error("expected released waiter to report false")
		}
	case <-time.After(time.Second):
		t.Fatal("unregister did not release the waiter")
	}
}

func TestWaitOnUnregisteredHandlePanics(t *testing.T) {
	b := New[int]()
	h := b.Register()
	b.Unregister(h)

	defer func() {
		if recover() == nil {
			t.Error("expected panic when waiting on an unregistered handle")
		}
	}()
	b.WaitOne(context.Background(), h)
}

func TestWaitOneAsync(t *testing.T) {
	b := New[int]()
	h := b.Register()

	ch := b.WaitOneAsync(context.Background(), h)
	b.Publish(7)

	select {
	case r := <-ch:
		if !r.OK || r.Value != 7 {
			t.Errorf("expected (7, true), got %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("async wait did not complete")
	}
}

func TestWaitAnyOrdersTiesByIndex(t *testing.T) {
	bs := []*Broadcast[int]{New[int](), New[int](), New[int]()}
	hs := make([]Handle, len(bs))
	for i, b := range bs {
		hs[i] = b.Register()
	}
	ctx := context.Background()

	bs[2].Publish(30)
	bs[1].Publish(20)

	i, v, ok := WaitAny(ctx, bs, hs)
	if !ok || i != 1 || v != 20 {
		t.Fatalf("expected (1, 20, true), got (%d, %d, %v)", i, v, ok)
	}

	i, v, ok = WaitAny(ctx, bs, hs)
	if !ok || i != 2 || v != 30 {
		t.Fatalf("expected (2, 30, true), got (%d, %d, %v)", i, v, ok)
	}
}

func TestWaitAnyBlocksUntilPublish(t *testing.T) {
	bs := []*Broadcast[int]{New[int](), New[int]()}
	hs := []Handle{bs[0].Register(), bs[1].Register()}

	ch := WaitAnyAsync(context.Background(), bs, hs)
	time.Sleep(10 * time.Millisecond)
	bs[1].Publish(5)

	select {
	case r := <-ch:
		if !r.OK || r.Index != 1 || r.Value != 5 {
			t.Errorf("expected index 1 value 5, got %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitAny did not wake")
	}
}

func TestWaitAnyCancellationLeavesRegistrationsUsable(t *testing.T) {
	bs := []*Broadcast[int]{New[int](), New[int]()}
	hs := []Handle{bs[0].Register(), bs[1].Register()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, ok := WaitAny(ctx, bs, hs); ok {
		t.Fatal("expected WaitAny to time out")
	}

	bs[0].Publish(1)
	i, v, ok := WaitAny(context.Background(), bs, hs)
	if !ok || i != 0 || v != 1 {
		t.Errorf("expected (0, 1, true) after cancellation, got (%d, %d, %v)", i, v, ok)
	}
}

func TestConcurrentPublishersAndConsumers(t *testing.T) {
	b := New[int]()
	const consumers = 8
	const publishes = 2000

	handles := make([]Handle, consumers)
	for i := range handles {
		handles[i] = b.Register()
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			last := 0
			for {
				v, ok := b.WaitOne(ctx, h)
				if !ok {
					return
				}
				if v <= last {
					t.Errorf("handle %d observed %d after %d", h, v, last)
					return
				}
				last = v
				if v == publishes {
					return
				}
			}
		}(h)
	}

	for i := 1; i <= publishes; i++ {
		b.Publish(i)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Error("consumers did not observe the final publication")
	}
	cancel()
}
