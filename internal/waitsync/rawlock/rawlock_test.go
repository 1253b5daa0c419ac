// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawlock

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kolkov/waitsync/internal/waitsync/park"
	"github.com/kolkov/waitsync/internal/waitsync/platform"
	"github.com/kolkov/waitsync/internal/waitsync/platform/platformtest"
	"github.com/kolkov/waitsync/internal/waitsync/thread"
)

// mustPanic runs fn and returns the recovered panic value.
func mustPanic(t *testing.T, fn func()) (v any) {
	t.Helper()
	defer func() {
		v = recover()
		if v == nil {
			t.Fatal("expected panic")
		}
	}()
	fn()
	return nil
}

// TestMutualExclusion increments an unsynchronized counter under the lock
// from many goroutines, on both platforms.
func TestMutualExclusion(t *testing.T) {
	platforms := map[string]platform.Platform{
		"park":         park.New(park.Options{}),
		"platformtest": platformtest.New(),
	}

	for name, p := range platforms {
		t.Run(name, func(t *testing.T) {
			const goroutines = 16
			const iterations = 500

			l := New(p)
			counter := 0

			var wg sync.WaitGroup
			wg.Add(goroutines)
			for g := 0; g < goroutines; g++ {
				go func() {
					defer wg.Done()
					for i := 0; i < iterations; i++ {
						l.Lock()
						counter++
						l.Unlock()
					}
				}()
			}
			wg.Wait()

			if counter != goroutines*iterations {
				t.Errorf("counter = %d, want %d", counter, goroutines*iterations)
			}
			if !l.Owner().IsNone() {
				t.Errorf("Owner = %v after all unlocks, want None", l.Owner())
			}
		})
	}
}

// TestSelfRecursionPanics verifies a second Lock by the owner faults
// immediately instead of blocking.
func TestSelfRecursionPanics(t *testing.T) {
	p := platformtest.New()
	l := New(p)

	l.Lock()
	v := mustPanic(t, l.Lock)

	err, ok := v.(error)
	if !ok {
		t.Fatalf("panic value %T is not an error", v)
	}
	if !errors.Is(err, ErrDeadlock) {
		t.Errorf("panic %v does not match ErrDeadlock", err)
	}
	var de *DeadlockError
	if !errors.As(err, &de) || de.Owner != thread.Current() {
		t.Errorf("DeadlockError owner = %v, want %v", de, thread.Current())
	}
	if c := p.Counts(platform.KeyOf(l)); c.Waits != 0 {
		t.Errorf("self-recursive Lock waited %d times, want 0", c.Waits)
	}

	// The first acquisition is still in force.
	if l.Owner() != thread.Current() {
		t.Errorf("Owner = %v, want caller", l.Owner())
	}
	l.Unlock()
}

// TestTryLock covers free, held-by-other and held-by-self.
func TestTryLock(t *testing.T) {
	l := New(platformtest.New())

	if !l.TryLock() {
		t.Fatal("TryLock on free lock failed")
	}
	mustPanic(t, func() { l.TryLock() })

	got := make(chan bool)
	go func() { got <- l.TryLock() }()
	if <-got {
		t.Error("TryLock succeeded while held by another goroutine")
	}

	l.Unlock()
	go func() {
		ok := l.TryLock()
		if ok {
			l.Unlock()
		}
		got <- ok
	}()
	if !<-got {
		t.Error("TryLock failed on released lock")
	}
}

// TestUnlockWakesOneWaiter verifies the contender parks on the lock's key
// and is released by exactly one SignalOne.
func TestUnlockWakesOneWaiter(t *testing.T) {
	p := platformtest.New()
	l := New(p)
	key := platform.KeyOf(l)

	l.Lock()

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
		l.Unlock()
	}()
	if err := p.AwaitWaiters(key, 1, 5*time.Second); err != nil {
		t.Fatal(err)
	}

	l.Unlock()
	<-acquired

	c := p.Counts(key)
	if c.Waits != 1 {
		t.Errorf("Waits = %d, want 1", c.Waits)
	}
	// The waiter's own Unlock is uncontended and does not signal.
	if c.SignalsOne != 1 || c.SignalsAll != 0 {
		t.Errorf("signals = %d one / %d all, want 1 / 0", c.SignalsOne, c.SignalsAll)
	}
}

// TestUncontendedUnlockSkipsPlatform verifies Lock/Unlock without
// contention never waits or signals, so the platform keeps no state for
// the lock.
func TestUncontendedUnlockSkipsPlatform(t *testing.T) {
	p := platformtest.New()
	l := New(p)

	for i := 0; i < 100; i++ {
		l.Lock()
		l.Unlock()
		if l.TryLock() {
			l.Unlock()
		}
	}

	c := p.Counts(platform.KeyOf(l))
	if c != (platformtest.Counts{}) {
		t.Errorf("counts = %+v, want none", c)
	}
	if p.HasPermit(platform.KeyOf(l)) {
		t.Error("uncontended Unlock left a permit")
	}
}

// TestThrowawayLocksLeaveNoQueues locks and unlocks many short-lived locks
// on one park table; none of them may leave a queue behind.
func TestThrowawayLocksLeaveNoQueues(t *testing.T) {
	tb := park.New(park.Options{})

	for i := 0; i < 10000; i++ {
		l := New(tb)
		l.Lock()
		l.Unlock()
	}
	if n := tb.Keys(); n != 0 {
		t.Errorf("Keys = %d after uncontended use, want 0", n)
	}
}

// TestSpuriousWakeupRevalidates verifies a waiter woken while the lock is
// still held goes back to waiting instead of entering.
func TestSpuriousWakeupRevalidates(t *testing.T) {
	p := platformtest.New()
	l := New(p)
	key := platform.KeyOf(l)

	l.Lock()

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
		l.Unlock()
	}()
	if err := p.AwaitWaiters(key, 1, 5*time.Second); err != nil {
		t.Fatal(err)
	}

	p.Spurious(key)
	if err := p.AwaitWaiters(key, 1, 5*time.Second); err != nil {
		t.Fatal(err)
	}
	select {
	case <-acquired:
		t.Fatal("waiter entered a held lock after a spurious wakeup")
	default:
	}
	if c := p.Counts(key); c.Waits != 2 {
		t.Errorf("Waits = %d, want 2", c.Waits)
	}

	l.Unlock()
	<-acquired
}

// TestOwnershipIsTokenBased verifies ownership compares platform identities:
// two goroutines reporting the same identity are the same owner.
func TestOwnershipIsTokenBased(t *testing.T) {
	p := platformtest.New()
	shared := thread.FromToken(42)
	p.SetIdentity(func() thread.ID { return shared })

	l := New(p)
	l.Lock()

	done := make(chan any)
	go func() {
		defer func() { done <- recover() }()
		l.Lock()
	}()
	if v := <-done; v == nil {
		t.Fatal("second Lock with same identity did not fault")
	}
	l.Unlock()
}

// TestNoIdentityPanics verifies a platform returning None is rejected.
func TestNoIdentityPanics(t *testing.T) {
	p := platformtest.New()
	p.SetIdentity(func() thread.ID { return thread.None })

	l := New(p)
	v := mustPanic(t, l.Lock)
	if err, _ := v.(error); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("panic = %v, want ErrNoIdentity", v)
	}
}

// TestZeroValueUsesDefault verifies the zero RawLock works on park.Default.
func TestZeroValueUsesDefault(t *testing.T) {
	var l RawLock
	if l.Platform() != park.Default() {
		t.Fatal("zero RawLock not bound to park.Default")
	}
	l.Lock()
	l.Unlock()
}

func BenchmarkUncontended(b *testing.B) {
	l := New(park.New(park.Options{}))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		l.Lock()
		l.Unlock()
	}
}
