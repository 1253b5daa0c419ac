// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package park

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/kolkov/waitsync/internal/waitsync/logging"
	"github.com/kolkov/waitsync/internal/waitsync/platform"
	"github.com/kolkov/waitsync/internal/waitsync/thread"
)

// Options configures a Table.
type Options struct {
	// ParkTimeout bounds every Wait; a Wait that is not signalled in time
	// returns spuriously. Zero disables the timeout.
	ParkTimeout time.Duration

	// Metrics receives the table's counters. Nil creates a private set.
	Metrics *metrics.Set

	// Logger receives debug events. Nil uses the "park" component logger.
	Logger *slog.Logger
}

// DefaultOptions returns the options used by Default.
func DefaultOptions() Options {
	return Options{}
}

// Stats is a snapshot of a Table's counters.
type Stats struct {
	Waits           uint64 `json:"waits" yaml:"waits"`
	SignalsOne      uint64 `json:"signals_one" yaml:"signals_one"`
	SignalsAll      uint64 `json:"signals_all" yaml:"signals_all"`
	Woken           uint64 `json:"woken" yaml:"woken"`
	PermitsConsumed uint64 `json:"permits_consumed" yaml:"permits_consumed"`
	Timeouts        uint64 `json:"timeouts" yaml:"timeouts"`
}

// Table is an address-keyed set of wait queues. It implements
// platform.Platform and is safe for concurrent use.
type Table struct {
	queues  *xsync.MapOf[platform.Key, *queue]
	timeout time.Duration
	log     *slog.Logger

	set             *metrics.Set
	waits           *metrics.Counter
	signalsOne      *metrics.Counter
	signalsAll      *metrics.Counter
	woken           *metrics.Counter
	permitsConsumed *metrics.Counter
	timeouts        *metrics.Counter
}

var _ platform.Platform = (*Table)(nil)

// queue holds the goroutines parked on one key.
//
// waiters is FIFO so SignalOne wakes the longest-parked goroutine. Each
// waiter channel has capacity 1 and receives at most one value.
//
// A queue with no waiters and no permit is removed from the table and
// marked dead; goroutines holding a stale pointer to it look the key up
// again.
type queue struct {
	mu      sync.Mutex
	waiters []chan struct{}
	permit  bool
	dead    bool
}

// New creates an empty Table.
func New(opts Options) *Table {
	set := opts.Metrics
	if set == nil {
		set = metrics.NewSet()
	}
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("park")
	}

	return &Table{
		queues:          xsync.NewMapOf[platform.Key, *queue](),
		timeout:         opts.ParkTimeout,
		log:             log,
		set:             set,
		waits:           set.GetOrCreateCounter("waitsync_park_waits_total"),
		signalsOne:      set.GetOrCreateCounter(`waitsync_park_signals_total{kind="one"}`),
		signalsAll:      set.GetOrCreateCounter(`waitsync_park_signals_total{kind="all"}`),
		woken:           set.GetOrCreateCounter("waitsync_park_woken_total"),
		permitsConsumed: set.GetOrCreateCounter("waitsync_park_permits_consumed_total"),
		timeouts:        set.GetOrCreateCounter("waitsync_park_timeouts_total"),
	}
}

// ErrDefaultInUse is returned by Configure once Default has been called.
var ErrDefaultInUse = errors.New("park: default table already in use")

var (
	defaultMu    sync.Mutex
	defaultTable atomic.Pointer[Table]
)

// Default returns the process-wide Table used by primitives that were not
// given a platform explicitly. It is built from DefaultOptions unless
// Configure ran first.
func Default() *Table {
	if t := defaultTable.Load(); t != nil {
		return t
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if t := defaultTable.Load(); t != nil {
		return t
	}
	t := New(DefaultOptions())
	defaultTable.Store(t)
	return t
}

// Configure builds the process-wide Table from opts. It must run before the
// first call to Default; afterwards it returns ErrDefaultInUse.
func Configure(opts Options) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultTable.Load() != nil {
		return ErrDefaultInUse
	}
	defaultTable.Store(New(opts))
	return nil
}

// CurrentThread returns the identity of the calling goroutine.
func (t *Table) CurrentThread() thread.ID {
	return thread.Current()
}

// lock returns the live queue for key, creating it on first use, with its
// mutex held.
func (t *Table) lock(key platform.Key) *queue {
	for {
		q, _ := t.queues.LoadOrCompute(key, func() *queue { return &queue{} })
		q.mu.Lock()
		if !q.dead {
			return q
		}
		q.mu.Unlock()
	}
}

// release drops q from the table once it holds no waiters and no permit.
// q.mu must be held.
func (t *Table) release(key platform.Key, q *queue) {
	if q.dead || q.permit || len(q.waiters) > 0 {
		return
	}
	q.dead = true
	t.queues.Compute(key, func(old *queue, loaded bool) (*queue, bool) {
		if loaded && old != q {
			return old, false
		}
		return nil, true
	})
}

// Wait parks the caller on key until it is signalled, a pending permit is
// consumed, or the park timeout elapses.
func (t *Table) Wait(key platform.Key) {
	t.waits.Inc()
	q := t.lock(key)

	if q.permit {
		q.permit = false
		t.release(key, q)
		q.mu.Unlock()
		t.permitsConsumed.Inc()
		return
	}
	ch := make(chan struct{}, 1)
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	if t.timeout <= 0 {
		<-ch
		return
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case <-ch:
	case <-timer.C:
		// A signal racing with the timeout may already have removed us;
		// either way the caller re-validates its condition.
		q.mu.Lock()
		q.remove(ch)
		t.release(key, q)
		q.mu.Unlock()
		t.timeouts.Inc()
		t.log.Debug("park timeout", "key", key, "timeout", t.timeout)
	}
}

// SignalOne wakes the oldest goroutine parked on key, or leaves a permit.
func (t *Table) SignalOne(key platform.Key) {
	t.signalsOne.Inc()
	q := t.lock(key)

	if len(q.waiters) == 0 {
		q.permit = true
		q.mu.Unlock()
		return
	}
	ch := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	t.release(key, q)
	q.mu.Unlock()

	ch <- struct{}{}
	t.woken.Inc()
}

// SignalAll wakes every goroutine parked on key, or leaves a permit.
func (t *Table) SignalAll(key platform.Key) {
	t.signalsAll.Inc()
	q := t.lock(key)

	waiters := q.waiters
	q.waiters = nil
	if len(waiters) == 0 {
		q.permit = true
	}
	t.release(key, q)
	q.mu.Unlock()

	for _, ch := range waiters {
		ch <- struct{}{}
	}
	t.woken.Add(len(waiters))
}

// Waiters returns the number of goroutines currently parked on key.
func (t *Table) Waiters(key platform.Key) int {
	q, ok := t.queues.Load(key)
	if !ok {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

// Keys returns the number of keys that have a queue: keys with parked
// goroutines or a pending permit.
func (t *Table) Keys() int {
	return t.queues.Size()
}

// Stats returns a snapshot of the table's counters.
func (t *Table) Stats() Stats {
	return Stats{
		Waits:           t.waits.Get(),
		SignalsOne:      t.signalsOne.Get(),
		SignalsAll:      t.signalsAll.Get(),
		Woken:           t.woken.Get(),
		PermitsConsumed: t.permitsConsumed.Get(),
		Timeouts:        t.timeouts.Get(),
	}
}

// WritePrometheus writes the table's counters in Prometheus text format.
func (t *Table) WritePrometheus(w io.Writer) {
	t.set.WritePrometheus(w)
}

// remove deletes ch from the waiter list. q.mu must be held.
func (q *queue) remove(ch chan struct{}) {
	for i, w := range q.waiters {
		if w == ch {
			copy(q.waiters[i:], q.waiters[i+1:])
			q.waiters[len(q.waiters)-1] = nil
			q.waiters = q.waiters[:len(q.waiters)-1]
			return
		}
	}
}
