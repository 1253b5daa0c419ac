// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platformtest provides a deterministic platform.Platform for
// tests of the waitsync primitives.
//
// The Platform is backed by a single sync.Cond. It never times out, records
// every call per key, and lets a test observe parked goroutines
// (AwaitWaiters) and inject spurious wakeups (Spurious). Signal semantics
// match package park: a signal with nobody parked leaves one permit.
package platformtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/kolkov/waitsync/internal/waitsync/platform"
	"github.com/kolkov/waitsync/internal/waitsync/thread"
)

// Counts is the per-key call record.
type Counts struct {
	Waits      int
	SignalsOne int
	SignalsAll int
	Spurious   int
}

// keyState is the queue of one key. Waiters are tickets; a ticket is woken
// when wakeTo passes it.
type keyState struct {
	counts  Counts
	nextTkt uint64
	wakeTo  uint64 // tickets < wakeTo are released
	permit  bool
}

// Platform is a deterministic, condition-variable-backed Platform.
// The zero value is not usable; call New.
type Platform struct {
	mu   sync.Mutex
	cond *sync.Cond
	keys map[platform.Key]*keyState

	identity func() thread.ID
}

var _ platform.Platform = (*Platform)(nil)

// New returns an empty Platform.
func New() *Platform {
	p := &Platform{keys: make(map[platform.Key]*keyState)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetIdentity overrides CurrentThread. Passing nil restores the real
// goroutine identity.
func (p *Platform) SetIdentity(fn func() thread.ID) {
	p.mu.Lock()
	p.identity = fn
	p.mu.Unlock()
}

// CurrentThread returns the overridden identity, or the caller's goroutine.
func (p *Platform) CurrentThread() thread.ID {
	p.mu.Lock()
	fn := p.identity
	p.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return thread.Current()
}

func (p *Platform) state(key platform.Key) *keyState {
	ks, ok := p.keys[key]
	if !ok {
		ks = &keyState{}
		p.keys[key] = ks
	}
	return ks
}

// Wait parks until a signal or spurious wakeup on key, or consumes a permit.
func (p *Platform) Wait(key platform.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ks := p.state(key)
	ks.counts.Waits++
	if ks.permit {
		ks.permit = false
		return
	}

	tkt := ks.nextTkt
	ks.nextTkt++
	p.cond.Broadcast() // wake AwaitWaiters

	for tkt >= ks.wakeTo {
		p.cond.Wait()
	}
}

// SignalOne releases the oldest parked goroutine on key, or leaves a permit.
func (p *Platform) SignalOne(key platform.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ks := p.state(key)
	ks.counts.SignalsOne++
	if ks.wakeTo == ks.nextTkt {
		ks.permit = true
		return
	}
	ks.wakeTo++
	p.cond.Broadcast()
}

// SignalAll releases every parked goroutine on key, or leaves a permit.
func (p *Platform) SignalAll(key platform.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ks := p.state(key)
	ks.counts.SignalsAll++
	p.releaseAll(ks)
}

// Spurious releases every parked goroutine on key without counting a
// signal and without leaving a permit.
func (p *Platform) Spurious(key platform.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ks := p.state(key)
	ks.counts.Spurious++
	if ks.wakeTo != ks.nextTkt {
		ks.wakeTo = ks.nextTkt
		p.cond.Broadcast()
	}
}

func (p *Platform) releaseAll(ks *keyState) {
	if ks.wakeTo == ks.nextTkt {
		ks.permit = true
		return
	}
	ks.wakeTo = ks.nextTkt
	p.cond.Broadcast()
}

// Waiters returns the number of goroutines parked on key that have not yet
// been released.
func (p *Platform) Waiters(key platform.Key) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ks := p.state(key)
	return int(ks.nextTkt - ks.wakeTo)
}

// Counts returns the call record of key.
func (p *Platform) Counts(key platform.Key) Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state(key).counts
}

// HasPermit reports whether a permit is pending on key.
func (p *Platform) HasPermit(key platform.Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state(key).permit
}

// AwaitWaiters blocks until at least n goroutines are parked on key and
// unreleased, or the timeout elapses.
func (p *Platform) AwaitWaiters(key platform.Key, n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	// sync.Cond has no timed wait; a ticker re-broadcasts so the loop can
	// observe the deadline.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				p.cond.Broadcast()
			}
		}
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	ks := p.state(key)
	for int(ks.nextTkt-ks.wakeTo) < n {
		if time.Now().After(deadline) {
			return fmt.Errorf("platformtest: %d waiters on %v after %v, want %d",
				ks.nextTkt-ks.wakeTo, key, timeout, n)
		}
		p.cond.Wait()
	}
	return nil
}
