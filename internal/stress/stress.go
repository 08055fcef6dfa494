// Package stress hammers a parameter transfer with concurrent writers and a
// single clearing drainer, then verifies what the drainer saw.
//
// Each writer owns a disjoint slice of indices and writes the values 1..Rounds
// to every slot in its slice, in order. A drained value is therefore valid
// only if it is a whole number in [1, Rounds], and per slot the drained values
// never decrease. After the writers finish, a final drain runs and every slot
// must hold Rounds.
package stress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolkov/paramxfer/transfer"
)

// maxRounds keeps every written value exactly representable as a float32.
const maxRounds = 1 << 24

// ErrInvalidConfig is returned by Run for unusable configurations.
var ErrInvalidConfig = errors.New("invalid stress config")

// Config sizes a stress run.
type Config struct {
	// Writers is the number of concurrent writer goroutines.
	Writers int
	// PerWriter is the number of indices each writer owns.
	PerWriter int
	// Rounds is how many times each writer rewrites its indices.
	Rounds int
}

// Validate reports the first problem with c, or nil.
func (c Config) Validate() error {
	switch {
	case c.Writers < 1:
		return fmt.Errorf("%w: writers must be at least 1, got %d", ErrInvalidConfig, c.Writers)
	case c.PerWriter < 1:
		return fmt.Errorf("%w: per_writer must be at least 1, got %d", ErrInvalidConfig, c.PerWriter)
	case c.Rounds < 1 || c.Rounds > maxRounds:
		return fmt.Errorf("%w: rounds must be in [1, %d], got %d", ErrInvalidConfig, maxRounds, c.Rounds)
	}
	return nil
}

// Report summarises a stress run.
type Report struct {
	Config Config

	// Writes is the number of Set calls made by all writers.
	Writes uint64
	// Drains is the number of clearing drain passes, including the final one.
	Drains uint64
	// Pairs is the number of (index, value) pairs the drainer received.
	Pairs uint64
	// Invalid counts drained values that were never written (torn or garbage).
	Invalid uint64
	// Regressions counts drained values older than one already drained for
	// the same index.
	Regressions uint64
	// Mismatches counts slots whose final value or last drained value is not
	// the writer's last value.
	Mismatches uint64

	Duration time.Duration
}

// Passed reports whether the run found no violations.
func (r *Report) Passed() bool {
	return r.Invalid == 0 && r.Regressions == 0 && r.Mismatches == 0
}

// Print writes a human-readable summary to w.
func (r *Report) Print(w io.Writer) {
	status := "PASS"
	if !r.Passed() {
		status = "FAIL"
	}
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "stress: %s\n", status)
	fmt.Fprintf(w, "  writers:     %d x %d parameters, %d rounds\n",
		r.Config.Writers, r.Config.PerWriter, r.Config.Rounds)
	fmt.Fprintf(w, "  writes:      %d\n", r.Writes)
	fmt.Fprintf(w, "  drains:      %d\n", r.Drains)
	fmt.Fprintf(w, "  pairs:       %d\n", r.Pairs)
	fmt.Fprintf(w, "  invalid:     %d\n", r.Invalid)
	fmt.Fprintf(w, "  regressions: %d\n", r.Regressions)
	fmt.Fprintf(w, "  mismatches:  %d\n", r.Mismatches)
	fmt.Fprintf(w, "  duration:    %s\n", r.Duration)
	fmt.Fprintf(w, "==================\n")
}

// Run executes one stress run against a fresh transfer.
//
// Cancelling ctx stops the writers early; Run then returns the partial report
// together with ctx.Err() and skips the final-value check.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.Writers * cfg.PerWriter
	params := transfer.New(n)
	report := &Report{Config: cfg}
	start := time.Now()

	var (
		wg      sync.WaitGroup
		running atomic.Int32
		writes  atomic.Uint64
	)
	running.Store(int32(cfg.Writers)) //nolint:gosec // G115: validated above.

	for w := 0; w < cfg.Writers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			defer running.Add(-1)
			for r := 1; r <= cfg.Rounds; r++ {
				if ctx.Err() != nil {
					return
				}
				for k := 0; k < cfg.PerWriter; k++ {
					params.Set(base+k, float32(r))
				}
				writes.Add(uint64(cfg.PerWriter)) //nolint:gosec // G115: positive.
				if r%64 == 0 {
					runtime.Gosched()
				}
			}
		}(w * cfg.PerWriter)
	}

	v := newVerifier(n, cfg.Rounds)
	for running.Load() > 0 {
		v.drain(params)
	}
	wg.Wait()
	// Final drain: anything marked after the last pass.
	v.drain(params)

	report.Writes = writes.Load()
	report.Drains = v.drains
	report.Pairs = v.pairs
	report.Invalid = v.invalid
	report.Regressions = v.regressions

	if err := ctx.Err(); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	want := float32(cfg.Rounds)
	for i := 0; i < n; i++ {
		if params.Get(i) != want || v.last[i] != want {
			report.Mismatches++
		}
	}
	report.Duration = time.Since(start)
	return report, nil
}

// verifier checks every drained pair. Owned by the draining goroutine.
type verifier struct {
	last   []float32
	rounds float32

	drains      uint64
	pairs       uint64
	invalid     uint64
	regressions uint64
}

func newVerifier(n, rounds int) *verifier {
	return &verifier{
		last:   make([]float32, n),
		rounds: float32(rounds),
	}
}

func (v *verifier) drain(params *transfer.Transfer) {
	v.drains++
	it := params.Drain(true)
	for {
		index, value, ok := it.Next()
		if !ok {
			return
		}
		v.check(index, value)
	}
}

func (v *verifier) check(index int, value float32) {
	v.pairs++
	if value != float32(int32(value)) || value < 1 || value > v.rounds {
		v.invalid++
		return
	}
	if value < v.last[index] {
		v.regressions++
		return
	}
	v.last[index] = value
}
