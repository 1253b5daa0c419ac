// Package waitsync provides a poisoning mutex and a once-initialized cell
// built directly on a small wait/wake interface instead of sync.Mutex and
// sync.Once.
//
// # Quick Start
//
//	var counter = waitsync.NewMutex(0)
//
//	func inc() {
//		g, err := counter.Lock()
//		if err != nil {
//			// A previous holder panicked. The guard is still valid.
//			log.Printf("counter poisoned: %v", err)
//		}
//		defer g.Unlock()
//		*g.Value()++
//	}
//
//	var config waitsync.OnceCell[Config]
//
//	func get() *Config {
//		return config.GetOrInit(loadConfig)
//	}
//
// # API Overview
//
// The package provides:
//   - A poisoning mutex over a value: [Mutex], [Guard], [PoisonError]
//   - A lazily initialized cell: [OnceCell]
//   - The raw owner-tracking lock both are built on: [RawLock]
//   - The wait/wake interface and its default implementation: [Platform],
//     [DefaultPlatform], [ConfigureDefaultPlatform]
//   - Version information: [GetInfo], [Version]
//
// # Poisoning
//
// When a goroutine panics while holding a Mutex, the guard's deferred Unlock
// marks the Mutex poisoned before releasing it. Every later Lock still
// succeeds but also returns a *PoisonError, so callers can decide whether
// the protected value is still consistent. Poison is never cleared.
//
// # Waiting
//
// Blocked goroutines park on the address of the primitive through a
// Platform. The default platform keeps one FIFO queue per address and
// counts waits and signals; see [DefaultPlatform]. Primitives created with
// the *On constructors use the given Platform instead, which is how the
// package's own tests drive them deterministically.
//
// Locks are not reentrant. A goroutine that locks a Mutex or RawLock it
// already holds panics with an error matching [ErrDeadlock] rather than
// blocking forever.
package waitsync
