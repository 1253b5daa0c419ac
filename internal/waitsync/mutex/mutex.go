// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

import (
	"errors"
	"sync/atomic"

	"github.com/kolkov/waitsync/internal/waitsync/platform"
	"github.com/kolkov/waitsync/internal/waitsync/rawlock"
	"github.com/kolkov/waitsync/internal/waitsync/stackdepot"
)

var (
	// ErrPoisoned is matched by every *PoisonError.
	ErrPoisoned = errors.New("mutex: poisoned by a panicking holder")

	// ErrGuardReleased is raised when a guard is used after Unlock.
	ErrGuardReleased = errors.New("mutex: guard already released")
)

// Mutex is a value of type T guarded by a non-reentrant lock with panic
// poisoning.
//
// The zero value is an unlocked, unpoisoned Mutex holding the zero T and
// waiting on park.Default(). A Mutex must not be copied after first use.
type Mutex[T any] struct {
	raw      rawlock.RawLock
	poisoned atomic.Bool
	site     atomic.Uint64 // stackdepot hash of the first poisoning unlock
	value    T
}

// New returns a Mutex holding v that waits on park.Default().
func New[T any](v T) *Mutex[T] {
	return NewOn(nil, v)
}

// NewOn returns a Mutex holding v that waits on p. A nil p selects
// park.Default().
func NewOn[T any](p platform.Platform, v T) *Mutex[T] {
	m := &Mutex[T]{value: v}
	m.raw.Init(p)
	return m
}

// Lock acquires m, blocking until it is available.
//
// The returned guard is always valid. If m is poisoned the error is a
// *PoisonError wrapping that same guard; the caller still holds the lock
// and must release it.
//
// Lock panics with a *rawlock.DeadlockError if the caller already holds m.
func (m *Mutex[T]) Lock() (*Guard[T], error) {
	m.raw.Lock()
	return m.guard()
}

// TryLock acquires m if it is free. ok reports whether the lock was taken;
// when it was not, g and err are nil.
func (m *Mutex[T]) TryLock() (g *Guard[T], ok bool, err error) {
	if !m.raw.TryLock() {
		return nil, false, nil
	}
	g, err = m.guard()
	return g, true, err
}

// guard wraps the freshly acquired lock. The poison read happens after the
// owner CAS, so it observes every poison store made by earlier holders
// before their unlock.
func (m *Mutex[T]) guard() (*Guard[T], error) {
	g := &Guard[T]{m: m}
	if m.poisoned.Load() {
		return g, &PoisonError[T]{guard: g, m: m}
	}
	return g, nil
}

// With runs fn with exclusive access to the value.
//
// If fn panics or calls runtime.Goexit, m is poisoned, the lock is
// released, and the panic or exit continues. The returned error is a *PoisonError when m was already
// poisoned before fn ran; its guard is released by the time With returns.
func (m *Mutex[T]) With(fn func(v *T)) error {
	g, err := m.Lock()
	completed := false
	defer func() {
		g.release(!completed, 1)
	}()

	fn(&m.value)
	completed = true
	return err
}

// IsPoisoned reports whether a holder has ever panicked while holding m.
func (m *Mutex[T]) IsPoisoned() bool {
	return m.poisoned.Load()
}

// GetMut returns the value without locking or checking poison.
//
// The caller must have exclusive access to m: no other goroutine may be
// able to reach it for as long as the pointer is used.
func (m *Mutex[T]) GetMut() *T {
	return &m.value
}

// IntoInner returns the value without locking or checking poison and
// resets the stored value to the zero T. m must not be used afterwards.
// Same exclusivity requirement as GetMut.
func (m *Mutex[T]) IntoInner() T {
	v := m.value
	var zero T
	m.value = zero
	return v
}

// poison marks m poisoned and records the poisoning stack once.
// skip counts frames above poison's caller to leave out of the trace.
func (m *Mutex[T]) poison(skip int) {
	if m.poisoned.CompareAndSwap(false, true) {
		m.site.Store(stackdepot.CaptureStack(skip + 1))
	}
}

// poisonSite returns the formatted poisoning stack, or "" when m is not poisoned.
func (m *Mutex[T]) poisonSite() string {
	hash := m.site.Load()
	if hash == 0 {
		return ""
	}
	return stackdepot.GetStack(hash).FormatStack()
}
