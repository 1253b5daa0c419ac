package waitsync_test

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kolkov/waitsync/waitsync"
)

// Example increments a shared counter from several goroutines.
func Example() {
	counter := waitsync.NewMutex(0)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g, _ := counter.Lock()
				*g.Value()++
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	fmt.Println(counter.IntoInner())

	// Output:
	// 400
}

// Example_poison shows that a panicking holder poisons the Mutex and that
// later holders still get access.
func Example_poison() {
	balance := waitsync.NewMutex(100)

	func() {
		defer func() { _ = recover() }()
		g, _ := balance.Lock()
		defer g.Unlock()
		*g.Value() -= 30
		panic("transfer aborted")
	}()

	g, err := balance.Lock()
	fmt.Println(errors.Is(err, waitsync.ErrPoisoned), *g.Value())
	*g.Value() = 100 // restore a known state
	g.Unlock()

	fmt.Println(balance.IsPoisoned())

	// Output:
	// true 70
	// true
}

// Example_onceCell initializes a value once from racing goroutines.
func Example_onceCell() {
	var cell waitsync.OnceCell[string]
	var calls int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cell.GetOrInit(func() string {
				calls++
				return "ready"
			})
		}()
	}
	wg.Wait()

	v, ok := cell.Get()
	fmt.Println(*v, ok, calls)

	// Output:
	// ready true 1
}

// Example_retry shows that a failed initializer leaves the cell empty.
func Example_retry() {
	cell := waitsync.NewOnceCell[int]()

	_, err := cell.GetOrTryInit(func() (int, error) {
		return 0, errors.New("backend unavailable")
	})
	fmt.Println(err)

	v, _ := cell.GetOrTryInit(func() (int, error) { return 42, nil })
	fmt.Println(*v)

	// Output:
	// oncecell: initializer failed: backend unavailable
	// 42
}

// Example_with runs a function under the lock.
func Example_with() {
	names := waitsync.NewMutex([]string{})

	_ = names.With(func(v *[]string) {
		*v = append(*v, "alice", "bob")
	})
	_ = names.With(func(v *[]string) {
		fmt.Println(len(*v))
	})

	// Output:
	// 2
}
