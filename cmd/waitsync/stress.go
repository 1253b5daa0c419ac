package main

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"

	"github.com/kolkov/waitsync/internal/waitsync/logging"
	"github.com/kolkov/waitsync/internal/waitsync/park"
	"github.com/kolkov/waitsync/waitsync"
)

// errStressFailed is returned when a stress run's invariant check fails.
var errStressFailed = errors.New("stress check failed")

// errFirstAttempt is the panic value of the deliberately failing
// initializer in stress once --fail-first.
var errFirstAttempt = errors.New("first initializer attempt fails")

func newStressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run concurrent workloads against the primitives",
	}

	mutexCmd := &cobra.Command{
		Use:   "mutex",
		Short: "N goroutines increment a counter under one Mutex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := stressMutex(a.cfg.StressGoroutines, a.cfg.StressIterations)
			if err := render(cmd.OutOrStdout(), a.cfg.Output, r); err != nil {
				return err
			}
			if !r.OK {
				return fmt.Errorf("%w: counter %d, want %d", errStressFailed, r.Counter, r.Expected)
			}
			return nil
		},
	}

	var failFirst bool
	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "N goroutines race GetOrInit on a fresh OnceCell, once per round",
		Long: `Each round creates an empty OnceCell and races stress-goroutines
callers of GetOrInit on it. The round passes when exactly one initializer
completed and every caller saw its value. stress-iterations is the number
of rounds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := stressOnce(a.cfg.StressGoroutines, a.cfg.StressIterations, failFirst)
			if err := render(cmd.OutOrStdout(), a.cfg.Output, r); err != nil {
				return err
			}
			if !r.OK {
				return fmt.Errorf("%w: %d of %d rounds failed", errStressFailed, r.FailedRounds, r.Rounds)
			}
			return nil
		},
	}
	onceCmd.Flags().BoolVar(&failFirst, "fail-first", false, "make the first initializer of every round panic")

	cmd.AddCommand(mutexCmd, onceCmd)
	return cmd
}

// latency summarizes a timer.
type latency struct {
	Count int64         `yaml:"count"`
	Mean  time.Duration `yaml:"mean"`
	P50   time.Duration `yaml:"p50"`
	P99   time.Duration `yaml:"p99"`
	Max   time.Duration `yaml:"max"`
}

func latencyOf(t gometrics.Timer) latency {
	s := t.Snapshot()
	ps := s.Percentiles([]float64{0.5, 0.99})
	return latency{
		Count: s.Count(),
		Mean:  time.Duration(s.Mean()),
		P50:   time.Duration(ps[0]),
		P99:   time.Duration(ps[1]),
		Max:   time.Duration(s.Max()),
	}
}

func (l latency) String() string {
	return fmt.Sprintf("n=%d mean=%v p50=%v p99=%v max=%v", l.Count, l.Mean, l.P50, l.P99, l.Max)
}

// parkDelta returns the counters accumulated between two snapshots.
func parkDelta(before, after park.Stats) park.Stats {
	return park.Stats{
		Waits:           after.Waits - before.Waits,
		SignalsOne:      after.SignalsOne - before.SignalsOne,
		SignalsAll:      after.SignalsAll - before.SignalsAll,
		Woken:           after.Woken - before.Woken,
		PermitsConsumed: after.PermitsConsumed - before.PermitsConsumed,
		Timeouts:        after.Timeouts - before.Timeouts,
	}
}

func writeParkStats(w io.Writer, s park.Stats) {
	fmt.Fprintf(w, "  park:       waits=%d signal_one=%d signal_all=%d woken=%d permits=%d timeouts=%d\n",
		s.Waits, s.SignalsOne, s.SignalsAll, s.Woken, s.PermitsConsumed, s.Timeouts)
}

type mutexReport struct {
	Goroutines int           `yaml:"goroutines"`
	Iterations int           `yaml:"iterations"`
	Expected   int           `yaml:"expected"`
	Counter    int           `yaml:"counter"`
	Poisoned   bool          `yaml:"poisoned"`
	Elapsed    time.Duration `yaml:"elapsed"`
	Wait       latency       `yaml:"wait"`
	Hold       latency       `yaml:"hold"`
	Park       park.Stats    `yaml:"park"`
	OK         bool          `yaml:"ok"`
}

func (r *mutexReport) text(w io.Writer) {
	fmt.Fprintf(w, "stress mutex: %s\n", status(r.OK))
	fmt.Fprintf(w, "  goroutines: %d x %d iterations\n", r.Goroutines, r.Iterations)
	fmt.Fprintf(w, "  counter:    %d (want %d)\n", r.Counter, r.Expected)
	fmt.Fprintf(w, "  elapsed:    %v\n", r.Elapsed)
	fmt.Fprintf(w, "  wait:       %s\n", r.Wait)
	fmt.Fprintf(w, "  hold:       %s\n", r.Hold)
	writeParkStats(w, r.Park)
}

// stressMutex increments one counter from goroutines goroutines, iterations
// times each, timing how long each Lock waited and each hold lasted.
func stressMutex(goroutines, iterations int) *mutexReport {
	log := logging.WithComponent("stress")
	reg := gometrics.NewRegistry()
	defer reg.UnregisterAll()
	waitTimer := gometrics.GetOrRegisterTimer("mutex.wait", reg)
	holdTimer := gometrics.GetOrRegisterTimer("mutex.hold", reg)

	m := waitsync.NewMutex(0)
	before := park.Default().Stats()
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				begin := time.Now()
				guard, _ := m.Lock()
				acquired := time.Now()
				*guard.Value()++
				guard.Unlock()
				waitTimer.Update(acquired.Sub(begin))
				holdTimer.UpdateSince(acquired)
			}
		}()
	}
	wg.Wait()

	r := &mutexReport{
		Goroutines: goroutines,
		Iterations: iterations,
		Expected:   goroutines * iterations,
		Poisoned:   m.IsPoisoned(),
		Elapsed:    time.Since(start),
		Wait:       latencyOf(waitTimer),
		Hold:       latencyOf(holdTimer),
		Park:       parkDelta(before, park.Default().Stats()),
	}
	r.Counter = m.IntoInner()
	r.OK = r.Counter == r.Expected && !r.Poisoned

	log.Info("stress mutex finished", "ok", r.OK, "elapsed", r.Elapsed, "parks", r.Park.Waits)
	return r
}

type onceReport struct {
	Goroutines   int           `yaml:"goroutines"`
	Rounds       int           `yaml:"rounds"`
	FailFirst    bool          `yaml:"fail_first"`
	FailedRounds int           `yaml:"failed_rounds"`
	MaxAttempts  int64         `yaml:"max_attempts"`
	Elapsed      time.Duration `yaml:"elapsed"`
	GetOrInit    latency       `yaml:"get_or_init"`
	Park         park.Stats    `yaml:"park"`
	OK           bool          `yaml:"ok"`
}

func (r *onceReport) text(w io.Writer) {
	fmt.Fprintf(w, "stress once: %s\n", status(r.OK))
	fmt.Fprintf(w, "  goroutines: %d x %d rounds (fail-first=%t)\n", r.Goroutines, r.Rounds, r.FailFirst)
	fmt.Fprintf(w, "  failed:     %d rounds\n", r.FailedRounds)
	fmt.Fprintf(w, "  attempts:   max %d per round\n", r.MaxAttempts)
	fmt.Fprintf(w, "  elapsed:    %v\n", r.Elapsed)
	fmt.Fprintf(w, "  get:        %s\n", r.GetOrInit)
	writeParkStats(w, r.Park)
}

// stressOnce races goroutines callers of GetOrInit on a fresh cell per
// round. With failFirst the first initializer of each round panics and its
// caller retries.
func stressOnce(goroutines, rounds int, failFirst bool) *onceReport {
	log := logging.WithComponent("stress")
	reg := gometrics.NewRegistry()
	defer reg.UnregisterAll()
	getTimer := gometrics.GetOrRegisterTimer("once.get", reg)
	attemptsHist := gometrics.GetOrRegisterHistogram("once.attempts", reg, gometrics.NewUniformSample(1028))

	r := &onceReport{Goroutines: goroutines, Rounds: rounds, FailFirst: failFirst}
	before := park.Default().Stats()
	start := time.Now()

	for round := 0; round < rounds; round++ {
		want := round + 1
		cell := waitsync.NewOnceCell[int]()
		var attempts, inits atomic.Int64
		initFn := func() int {
			if attempts.Add(1) == 1 && failFirst {
				panic(errFirstAttempt)
			}
			inits.Add(1)
			return want
		}

		results := make([]int, goroutines)
		release := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(goroutines)
		for g := 0; g < goroutines; g++ {
			go func(g int) {
				defer wg.Done()
				<-release
				begin := time.Now()
				results[g] = *getOrInitRetry(cell, initFn)
				getTimer.UpdateSince(begin)
			}(g)
		}
		close(release)
		wg.Wait()

		attemptsHist.Update(attempts.Load())
		ok := inits.Load() == 1
		for _, v := range results {
			ok = ok && v == want
		}
		if failFirst {
			ok = ok && attempts.Load() == 2
		}
		if !ok {
			r.FailedRounds++
			log.Warn("once round failed", "round", round, "inits", inits.Load(), "attempts", attempts.Load())
		}
	}

	r.Elapsed = time.Since(start)
	r.MaxAttempts = attemptsHist.Snapshot().Max()
	r.GetOrInit = latencyOf(getTimer)
	r.Park = parkDelta(before, park.Default().Stats())
	r.OK = r.FailedRounds == 0

	log.Info("stress once finished", "ok", r.OK, "rounds", rounds, "elapsed", r.Elapsed)
	return r
}

// getOrInitRetry calls GetOrInit until it returns, retrying after the
// deliberate first-attempt panic.
func getOrInitRetry(c *waitsync.OnceCell[int], f func() int) *int {
	for {
		if v, ok := tryGetOrInit(c, f); ok {
			return v
		}
	}
}

func tryGetOrInit(c *waitsync.OnceCell[int], f func() int) (v *int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if r != errFirstAttempt {
				panic(r)
			}
			ok = false
		}
	}()
	return c.GetOrInit(f), true
}
