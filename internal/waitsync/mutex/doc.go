// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mutex implements Mutex[T], a value guarded by a RawLock with
// panic poisoning.
//
// Locking returns a Guard, the only handle through which the value may be
// read or written while other goroutines can reach the Mutex:
//
//	g, err := m.Lock()
//	defer g.Unlock()
//	g.Value().count++
//
// Poisoning:
//
// If a holder panics while the guard is held and g.Unlock is deferred
// directly (as above), Unlock marks the Mutex poisoned, records the stack
// the panic unwound through, releases the lock, and re-raises the panic.
// Poison is sticky: no operation clears it.
//
// Poison is advisory. Every later Lock still acquires the lock and returns a
// usable guard, together with a *PoisonError that wraps the same guard:
//
//	g, err := m.Lock()
//	if errors.Is(err, mutex.ErrPoisoned) {
//	    log.Printf("recovering state left by:\n%s", err.(*mutex.PoisonError[State]).Site())
//	}
//	defer g.Unlock()
//
// Unlock can only observe the panic when it is itself the deferred call.
// Wrapping it (defer func() { g.Unlock() }()) hides the panic and the
// Mutex is not poisoned. runtime.Goexit is not a panic either, so a holder
// that exits that way releases without poisoning. With runs a function
// under the lock and treats both a panic and a Goexit as failure, whatever
// the call shape.
//
// GetMut and IntoInner bypass the lock and the poison flag. They are only
// valid while the caller has exclusive access to the Mutex.
package mutex
