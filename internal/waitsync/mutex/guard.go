// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

// Guard is the scoped handle on a locked Mutex. Releasing it is the only
// point where poison is set and the lock is released.
//
// A Guard must be released exactly once and must not be used afterwards.
type Guard[T any] struct {
	m *Mutex[T]
}

// Value returns the guarded value. The pointer is valid until Unlock.
//
// Value panics with ErrGuardReleased after Unlock.
func (g *Guard[T]) Value() *T {
	if g.m == nil {
		panic(ErrGuardReleased)
	}
	return &g.m.value
}

// Unlock releases the lock and wakes one waiter.
//
// When deferred directly and the holder is panicking, Unlock poisons the
// Mutex first and then re-raises the panic value. Calling Unlock on a
// released guard panics with ErrGuardReleased.
//
// A holder that leaves through runtime.Goexit (t.FailNow, for instance) is
// not panicking: recover returns nil, Unlock cannot tell the exit from a
// normal return, and the Mutex is not poisoned. Use Mutex.With when a
// Goexit must poison as well.
func (g *Guard[T]) Unlock() {
	if r := recover(); r != nil {
		g.release(true, 1)
		panic(r)
	}
	g.release(false, 1)
}

// release implements Unlock. skip counts frames above release's caller
// to leave out of a recorded poison site.
func (g *Guard[T]) release(failed bool, skip int) {
	m := g.m
	if m == nil {
		if failed {
			// Already released; let the caller's panic carry on.
			return
		}
		panic(ErrGuardReleased)
	}
	g.m = nil

	if failed {
		m.poison(skip + 1)
	}
	m.raw.Unlock()
}
