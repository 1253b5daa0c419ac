// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawlock

import (
	"errors"
	"sync/atomic"

	"github.com/kolkov/waitsync/internal/waitsync/park"
	"github.com/kolkov/waitsync/internal/waitsync/platform"
	"github.com/kolkov/waitsync/internal/waitsync/thread"
)

var (
	// ErrDeadlock is the sentinel matched by a recovered *DeadlockError.
	ErrDeadlock = errors.New("rawlock: deadlock ahead (not a recursive lock)")

	// ErrNoIdentity is raised when the platform reports thread.None as the
	// caller's identity, which would make ownership unrecordable.
	ErrNoIdentity = errors.New("rawlock: platform returned no thread identity")
)

// DeadlockError is the panic value raised when a goroutine locks a RawLock
// it already owns.
type DeadlockError struct {
	Owner thread.ID
}

func (e *DeadlockError) Error() string {
	return ErrDeadlock.Error() + ": already held by " + e.Owner.String()
}

func (e *DeadlockError) Unwrap() error {
	return ErrDeadlock
}

// RawLock is a non-reentrant mutual exclusion lock without payload.
//
// The zero value is an unlocked lock that waits on park.Default(). A RawLock
// must not be copied after first use.
type RawLock struct {
	owner   atomic.Uint64
	waiters atomic.Int32 // goroutines between announcing a wait and leaving it
	plat    platform.Platform
}

// New returns an unlocked RawLock that waits on p. A nil p selects
// park.Default().
func New(p platform.Platform) *RawLock {
	l := &RawLock{}
	l.Init(p)
	return l
}

// Init binds l to p. It must be called before l is shared.
func (l *RawLock) Init(p platform.Platform) {
	l.plat = p
}

// Platform returns the platform l waits on.
func (l *RawLock) Platform() platform.Platform {
	if l.plat == nil {
		return park.Default()
	}
	return l.plat
}

func (l *RawLock) self(p platform.Platform) uint64 {
	id := p.CurrentThread()
	if id.IsNone() {
		panic(ErrNoIdentity)
	}
	return id.Token()
}

// Lock acquires l, blocking until it is available.
//
// Lock panics with a *DeadlockError if the caller already owns l.
func (l *RawLock) Lock() {
	p := l.Platform()
	self := l.self(p)
	key := platform.KeyOf(l)

	for {
		owner := l.owner.Load()
		if owner == self {
			panic(&DeadlockError{Owner: thread.FromToken(self)})
		}
		if owner == 0 && l.owner.CompareAndSwap(0, self) {
			return
		}
		// Held by another goroutine, or the CAS lost a race.
		l.wait(p, key)
	}
}

// wait parks on key unless the lock was released after the caller saw it
// held. The waiter is counted before the re-check so that an Unlock either
// sees the count and signals, or is seen here as a free lock.
func (l *RawLock) wait(p platform.Platform, key platform.Key) {
	l.waiters.Add(1)
	if l.owner.Load() != 0 {
		p.Wait(key)
	}
	l.waiters.Add(-1)
}

// TryLock acquires l if it is free and reports whether it did. It never
// blocks. Like Lock, it panics with a *DeadlockError if the caller already
// owns l.
func (l *RawLock) TryLock() bool {
	self := l.self(l.Platform())
	owner := l.owner.Load()
	if owner == self {
		panic(&DeadlockError{Owner: thread.FromToken(self)})
	}
	return owner == 0 && l.owner.CompareAndSwap(0, self)
}

// Unlock releases l and wakes one waiter. An uncontended Unlock does not
// touch the platform.
//
// The caller must own l. Unlocking a lock the caller does not hold is a
// contract violation and is not detected.
func (l *RawLock) Unlock() {
	l.owner.Store(0)
	if l.waiters.Load() > 0 {
		l.Platform().SignalOne(platform.KeyOf(l))
	}
}

// Owner returns a snapshot of the current owner, or thread.None.
// The result may be stale by the time it is inspected.
func (l *RawLock) Owner() thread.ID {
	return thread.FromToken(l.owner.Load())
}
