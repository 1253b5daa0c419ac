// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

// PoisonError reports that the lock was acquired but the value may be
// inconsistent because an earlier holder panicked while holding it.
//
// It wraps the live guard: the caller holds the lock and may keep using the
// value through Guard or Value.
type PoisonError[T any] struct {
	guard *Guard[T]
	m     *Mutex[T]
}

func (e *PoisonError[T]) Error() string {
	return ErrPoisoned.Error()
}

func (e *PoisonError[T]) Unwrap() error {
	return ErrPoisoned
}

// Guard returns the wrapped guard.
func (e *PoisonError[T]) Guard() *Guard[T] {
	return e.guard
}

// IntoInner returns the wrapped guard, accepting the poisoned value.
func (e *PoisonError[T]) IntoInner() *Guard[T] {
	return e.guard
}

// Value returns the guarded value through the wrapped guard.
func (e *PoisonError[T]) Value() *T {
	return e.guard.Value()
}

// Site returns the formatted stack of the unlock that poisoned the Mutex.
// It stays available after the guard is released.
func (e *PoisonError[T]) Site() string {
	return e.m.poisonSite()
}
