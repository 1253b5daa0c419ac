// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package park implements the in-process wait/wake platform: an
// address-keyed table of wait queues on which goroutines park until they
// are signalled.
//
// A key owns a queue only while goroutines are parked on it or a permit is
// pending. The queue is created on first use and removed as soon as it is
// empty again, so the table tracks contention rather than every address a
// primitive ever lived at:
//
//	Table.queues: Key → *queue{waiters FIFO, permit}
//
// Signal semantics:
//
//	SignalOne(k): wake the oldest waiter on k; with no waiter, leave a permit.
//	SignalAll(k): wake every waiter on k;      with no waiter, leave a permit.
//	Wait(k):      consume a permit and return at once, or park until woken.
//
// The permit closes the window between a caller observing "must wait" and
// actually parking: a signal sent inside that window is not lost, it turns
// the following Wait into an immediate return. At most one permit is kept
// per key; further signals with nobody parked are absorbed. From the
// caller's point of view a permit return is a spurious wakeup, which the
// Platform contract already requires callers to handle.
//
// An optional park timeout bounds every Wait. It is disabled by default.
//
// Counters (waits, signals, timeouts, permits) are kept in a VictoriaMetrics
// set and can be exported in Prometheus text format.
package park
