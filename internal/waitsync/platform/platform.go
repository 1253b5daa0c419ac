// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"fmt"
	"unsafe"

	"github.com/kolkov/waitsync/internal/waitsync/thread"
)

// Key is the opaque matching key of a wait queue.
type Key uintptr

// KeyOf returns the wait key for the primitive at p.
//
// The key is the address of p. Primitives that are shared between
// goroutines escape to the heap, so the address is stable for their
// lifetime.
func KeyOf[T any](p *T) Key {
	//nolint:gosec // G103: the address is only used as a matching key.
	return Key(uintptr(unsafe.Pointer(p)))
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return fmt.Sprintf("0x%x", uintptr(k))
}

// Platform is the address-keyed block/wake surface consumed by the
// primitives.
//
// Implementations must be safe for concurrent use. CurrentThread must never
// return thread.None.
type Platform interface {
	// CurrentThread returns the identity of the calling goroutine.
	CurrentThread() thread.ID

	// Wait blocks the caller until a signal on key or a spurious return.
	Wait(key Key)

	// SignalOne wakes at most one goroutine blocked on key.
	SignalOne(key Key)

	// SignalAll wakes every goroutine blocked on key.
	SignalAll(key Key)
}
