// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oncecell

import (
	"fmt"
	"sync/atomic"

	"github.com/kolkov/waitsync/internal/waitsync/park"
	"github.com/kolkov/waitsync/internal/waitsync/platform"
)

// OnceCell holds a value of type T that is set at most once.
//
// The zero value is an empty cell that waits on park.Default(). A OnceCell
// must not be copied after first use.
type OnceCell[T any] struct {
	initialized atomic.Bool
	claimed     atomic.Bool
	waiters     atomic.Int32 // goroutines between announcing a wait and leaving it
	plat        platform.Platform
	value       T
}

// New returns an empty cell that waits on park.Default().
func New[T any]() *OnceCell[T] {
	return &OnceCell[T]{}
}

// NewOn returns an empty cell that waits on p. A nil p selects
// park.Default().
func NewOn[T any](p platform.Platform) *OnceCell[T] {
	return &OnceCell[T]{plat: p}
}

// Platform returns the platform c waits on.
func (c *OnceCell[T]) Platform() platform.Platform {
	if c.plat == nil {
		return park.Default()
	}
	return c.plat
}

// Get returns the value if c is initialized. It never blocks.
func (c *OnceCell[T]) Get() (*T, bool) {
	if !c.initialized.Load() {
		return nil, false
	}
	return &c.value, true
}

// GetMut returns the value for in-place mutation if c is initialized.
// The caller must have exclusive access to c.
func (c *OnceCell[T]) GetMut() (*T, bool) {
	return c.Get()
}

// GetOrInit returns the value, running f to produce it if c is empty.
//
// Exactly one concurrent caller runs f at a time; the others block until it
// finishes. If f panics the cell stays empty, one blocked caller is woken to
// try its own f, and the panic propagates to the caller that ran f.
func (c *OnceCell[T]) GetOrInit(f func() T) *T {
	if c.initialized.Load() {
		return &c.value
	}
	v, _ := c.initSlow(func() (T, error) {
		return f(), nil
	})
	return v
}

// GetOrTryInit is GetOrInit for a fallible initializer. An error from f is
// handled like a panic in GetOrInit: the cell stays empty and one waiter is
// woken. The error is returned wrapped.
func (c *OnceCell[T]) GetOrTryInit(f func() (T, error)) (*T, error) {
	if c.initialized.Load() {
		return &c.value, nil
	}
	return c.initSlow(f)
}

// Set stores v if c is empty and reports whether it did. When another
// goroutine is initializing c, Set waits for it and only stores v if that
// initializer fails.
func (c *OnceCell[T]) Set(v T) bool {
	if c.initialized.Load() {
		return false
	}
	stored := false
	_, _ = c.initSlow(func() (T, error) {
		stored = true
		return v, nil
	})
	return stored
}

// IntoInner takes the value out of c and resets it to empty. ok is false if
// c was never initialized. The caller must have exclusive access to c.
func (c *OnceCell[T]) IntoInner() (v T, ok bool) {
	if !c.initialized.Load() {
		return v, false
	}
	v = c.value
	var zero T
	c.value = zero
	c.initialized.Store(false)
	return v, true
}

func (c *OnceCell[T]) initSlow(f func() (T, error)) (*T, error) {
	p := c.Platform()
	key := platform.KeyOf(c)

	for {
		if c.claimed.Swap(true) {
			if c.wait(p, key) {
				return &c.value, nil
			}
			continue
		}

		// A previous claimant may have finished between our fast-path
		// check and the swap.
		if c.initialized.Load() {
			c.claimed.Store(false)
			if c.waiters.Load() > 0 {
				p.SignalAll(key)
			}
			return &c.value, nil
		}
		return c.initialize(p, key, f)
	}
}

// wait parks on key while another goroutine holds the claim and reports
// whether c is initialized afterwards. The waiter is counted before the
// re-check so that a finishing claimant either sees the count and signals,
// or is seen here as done.
func (c *OnceCell[T]) wait(p platform.Platform, key platform.Key) bool {
	c.waiters.Add(1)
	if !c.initialized.Load() && c.claimed.Load() {
		p.Wait(key)
	}
	c.waiters.Add(-1)

	if !c.initialized.Load() {
		return false
	}
	// SignalAll only reaches goroutines already parked; pass the wakeup on
	// to one that counted itself in but had not parked yet.
	if c.waiters.Load() > 0 {
		p.SignalOne(key)
	}
	return true
}

// initialize runs f while c is claimed.
func (c *OnceCell[T]) initialize(p platform.Platform, key platform.Key, f func() (T, error)) (*T, error) {
	done := false
	defer func() {
		if !done {
			// f panicked, called Goexit or returned an error.
			c.claimed.Store(false)
			if c.waiters.Load() > 0 {
				p.SignalOne(key)
			}
		}
	}()

	v, err := f()
	if err != nil {
		return nil, fmt.Errorf("oncecell: initializer failed: %w", err)
	}

	c.value = v
	c.initialized.Store(true)
	c.claimed.Store(false)
	done = true
	if c.waiters.Load() > 0 {
		p.SignalAll(key)
	}
	return &c.value, nil
}
