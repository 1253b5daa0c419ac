// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oncecell implements OnceCell[T], a cell written at most once and
// safe for concurrent first-write.
//
// A cell moves through three states:
//
//	Empty --claim--> Claimed --success--> Initialized (terminal)
//	                    |
//	                    +--failure--> Empty
//
// The claim is a single atomic flag. The goroutine that wins it runs the
// initializer; every other caller of GetOrInit parks on the cell's address
// and re-checks when woken. A successful initializer publishes the value
// and wakes all waiters. A failed initializer (panic, Goexit, or a returned
// error from GetOrTryInit) releases the claim, leaves the cell Empty and
// wakes one waiter, which then claims the cell and runs its own initializer.
//
// Get and GetMut never block and never initialize.
package oncecell
