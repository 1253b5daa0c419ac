// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platform defines the wait/wake surface the waitsync primitives are
// built on.
//
// A Platform provides four operations:
//
//	CurrentThread()  opaque, stable identity of the caller
//	Wait(key)        block until a matching signal or a spurious return
//	SignalOne(key)   wake at most one goroutine blocked on key
//	SignalAll(key)   wake every goroutine blocked on key
//
// Keys are derived from the address of the primitive that waits (KeyOf) and
// are used purely for matching. No implementation may read memory through a
// Key.
//
// Callers of Wait must always re-validate their condition after it returns:
// a return is not proof that the condition they waited for now holds.
//
// The in-process implementation lives in package park; a deterministic
// implementation for tests lives in package platformtest.
package platform
