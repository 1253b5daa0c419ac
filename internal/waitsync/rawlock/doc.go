// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawlock implements the payload-free mutual exclusion algorithm
// the waitsync Mutex is built on.
//
// A RawLock holds a single atomic owner slot: 0 when free, otherwise the
// token of the owning goroutine.
//
// Lock (spin-then-block):
//
//	loop:
//	  owner := load(owner)
//	  owner == self   → panic(*DeadlockError)   not a recursive lock
//	  owner == free   → CAS(free → self)        success returns
//	  otherwise       → Wait(key(lock)); goto loop
//
// Unlock:
//
//	store(owner, free)                          publish writes made under the lock
//	SignalOne(key(lock))                        wake one contender
//
// Releasing before waking means a woken goroutine always finds the slot free
// (unless a newcomer beat it), and waking only one avoids a retry storm
// since only one contender can win the CAS.
//
// Go's sync/atomic operations are sequentially consistent, which is
// stronger than the acquire (CAS success) / release (Unlock store) pairing
// the algorithm needs.
package rawlock
