// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package waitsync

import (
	"io"

	"github.com/kolkov/waitsync/internal/waitsync/mutex"
	"github.com/kolkov/waitsync/internal/waitsync/oncecell"
	"github.com/kolkov/waitsync/internal/waitsync/park"
	"github.com/kolkov/waitsync/internal/waitsync/platform"
	"github.com/kolkov/waitsync/internal/waitsync/rawlock"
	"github.com/kolkov/waitsync/internal/waitsync/thread"
)

type (
	// Mutex is a value guarded by a non-reentrant lock with panic poisoning.
	// The zero value is unlocked and waits on DefaultPlatform.
	Mutex[T any] = mutex.Mutex[T]

	// Guard is the handle on a locked Mutex. Defer its Unlock directly so
	// a panic poisons the Mutex.
	Guard[T any] = mutex.Guard[T]

	// PoisonError is returned with a valid guard when the Mutex was
	// poisoned by an earlier holder.
	PoisonError[T any] = mutex.PoisonError[T]

	// OnceCell is a cell written at most once. The zero value is empty.
	OnceCell[T any] = oncecell.OnceCell[T]

	// RawLock is an owner-tracking lock with no payload.
	RawLock = rawlock.RawLock

	// DeadlockError is the panic value of a goroutine relocking a lock it
	// holds.
	DeadlockError = rawlock.DeadlockError

	// Platform is the wait/wake interface the primitives block through.
	Platform = platform.Platform

	// Key identifies the address a goroutine waits on.
	Key = platform.Key

	// ThreadID identifies a goroutine.
	ThreadID = thread.ID

	// ParkOptions configures the default platform.
	ParkOptions = park.Options

	// ParkStats is a snapshot of the default platform's counters.
	ParkStats = park.Stats
)

var (
	// ErrPoisoned matches every PoisonError.
	ErrPoisoned = mutex.ErrPoisoned

	// ErrGuardReleased is the panic value of a guard used after Unlock.
	ErrGuardReleased = mutex.ErrGuardReleased

	// ErrDeadlock matches the panic value of a self-deadlocking Lock.
	ErrDeadlock = rawlock.ErrDeadlock
)

// NewMutex returns a Mutex holding v.
func NewMutex[T any](v T) *Mutex[T] {
	return mutex.New(v)
}

// NewMutexOn returns a Mutex holding v that waits on p.
func NewMutexOn[T any](p Platform, v T) *Mutex[T] {
	return mutex.NewOn(p, v)
}

// NewOnceCell returns an empty OnceCell.
func NewOnceCell[T any]() *OnceCell[T] {
	return oncecell.New[T]()
}

// NewOnceCellOn returns an empty OnceCell that waits on p.
func NewOnceCellOn[T any](p Platform) *OnceCell[T] {
	return oncecell.NewOn[T](p)
}

// NewRawLock returns an unlocked RawLock that waits on p, or on the default
// platform when p is nil.
func NewRawLock(p Platform) *RawLock {
	return rawlock.New(p)
}

// DefaultPlatform returns the process-wide platform used by primitives
// created without one.
func DefaultPlatform() Platform {
	return park.Default()
}

// ConfigureDefaultPlatform sets the options of the default platform. It
// must be called before any primitive first blocks on it.
func ConfigureDefaultPlatform(opts ParkOptions) error {
	return park.Configure(opts)
}

// DefaultPlatformStats returns the default platform's counters.
func DefaultPlatformStats() ParkStats {
	return park.Default().Stats()
}

// WriteDefaultPlatformMetrics writes the default platform's counters to w
// in Prometheus text format.
func WriteDefaultPlatformMetrics(w io.Writer) {
	park.Default().WritePrometheus(w)
}

// CurrentThread returns the identity of the calling goroutine.
func CurrentThread() ThreadID {
	return thread.Current()
}
