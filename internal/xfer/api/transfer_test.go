package api

import (
	"math"
	"math/rand"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

type pair struct {
	index int
	value float32
}

func drainAll(tr *Transfer, clear bool) []pair {
	var out []pair
	it := tr.Drain(clear)
	for {
		i, v, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, pair{i, v})
	}
}

// TestSetGet_Correspondence verifies get returns exactly what set stored.
func TestSetGet_Correspondence(t *testing.T) {
	tr := New(300)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < tr.Len(); i++ {
		v := math.Float32frombits(rng.Uint32())
		tr.Set(i, v)
		if got := tr.Get(i); math.Float32bits(got) != math.Float32bits(v) {
			t.Fatalf("Get(%d) = 0x%08X, want 0x%08X", i, math.Float32bits(got), math.Float32bits(v))
		}
	}
}

// TestGet_Unset returns zero for slots never written.
func TestGet_Unset(t *testing.T) {
	tr := New(10)
	for i := 0; i < tr.Len(); i++ {
		if tr.Get(i) != 0 {
			t.Errorf("Get(%d) = %v, want 0", i, tr.Get(i))
		}
	}
	if got := drainAll(tr, true); len(got) != 0 {
		t.Errorf("fresh Drain = %v, want empty", got)
	}
}

// TestDrain_Scenario walks the N=128 example end to end.
func TestDrain_Scenario(t *testing.T) {
	tr := New(128)

	tr.Set(5, 1.0)
	// 130 is rejected by the host layer before it reaches the transfer; here
	// the bounds check panics.
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Set(130) on a 128-parameter transfer did not panic")
			}
		}()
		tr.Set(130, 9.0)
	}()
	tr.Set(5, 2.0)
	tr.Set(64, 0.5)

	got := drainAll(tr, true)
	want := []pair{{5, 2.0}, {64, 0.5}}
	if !slices.Equal(got, want) {
		t.Errorf("first Drain(true) = %v, want %v", got, want)
	}

	if got := drainAll(tr, true); len(got) != 0 {
		t.Errorf("second Drain(true) = %v, want empty", got)
	}
}

// TestDrain_Completeness checks every set index is reported.
func TestDrain_Completeness(t *testing.T) {
	const n = 1000
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		tr := New(n)
		set := map[int]bool{}
		for k := 0; k < rng.Intn(200); k++ {
			i := rng.Intn(n)
			tr.Set(i, rng.Float32())
			set[i] = true
		}

		got := map[int]bool{}
		for _, p := range drainAll(tr, true) {
			got[p.index] = true
		}
		for i := range set {
			if !got[i] {
				t.Fatalf("round %d: index %d set but not drained", round, i)
			}
		}
	}
}

// TestDrain_LastWriteWins verifies coalescing reports the latest value.
func TestDrain_LastWriteWins(t *testing.T) {
	tr := New(64)

	tr.Set(7, 1.0)
	tr.Set(7, 2.0)
	tr.Set(7, 3.0)

	got := drainAll(tr, true)
	if len(got) != 1 || got[0] != (pair{7, 3.0}) {
		t.Errorf("Drain(true) = %v, want [{7 3}]", got)
	}
}

// TestDrain_NonClearingIdempotent verifies two non-clearing drains agree.
func TestDrain_NonClearingIdempotent(t *testing.T) {
	tr := New(256)
	for _, i := range []int{0, 63, 64, 200, 255} {
		tr.Set(i, float32(i)/10)
	}

	first := drainAll(tr, false)
	second := drainAll(tr, false)
	if !slices.Equal(first, second) {
		t.Errorf("non-clearing drains differ:\n%v\n%v", first, second)
	}
	if len(first) != 5 {
		t.Errorf("len = %d, want 5", len(first))
	}

	// Anything newly marked is added to the same set.
	tr.Set(100, 1)
	third := drainAll(tr, false)
	if len(third) != 6 {
		t.Errorf("after new Set, non-clearing drain has %d entries, want 6", len(third))
	}
}

// TestDrain_ClearingConverges verifies the second clearing drain is empty.
func TestDrain_ClearingConverges(t *testing.T) {
	tr := New(128)
	for i := 0; i < 128; i += 7 {
		tr.Set(i, 1)
	}

	drainAll(tr, true)
	if got := drainAll(tr, true); len(got) != 0 {
		t.Errorf("second Drain(true) = %v, want empty", got)
	}
	if tr.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", tr.Pending())
	}
}

// TestAll_MatchesDrain verifies the range-over-func form yields the same pairs.
func TestAll_MatchesDrain(t *testing.T) {
	tr := New(200)
	tr.Set(3, 0.3)
	tr.Set(150, 1.5)
	tr.Set(199, 1.99)

	want := drainAll(tr, false)

	var got []pair
	for i, v := range tr.All(true) {
		got = append(got, pair{i, v})
	}

	if !slices.Equal(got, want) {
		t.Errorf("All(true) = %v, want %v", got, want)
	}
	if tr.Pending() != 0 {
		t.Errorf("Pending() = %d after All(true), want 0", tr.Pending())
	}
}

// TestAll_BreakKeepsRemainingMarks verifies an early break leaves later marks set.
func TestAll_BreakKeepsRemainingMarks(t *testing.T) {
	tr := New(100)
	tr.Set(1, 1)
	tr.Set(2, 2)
	tr.Set(3, 3)

	for i := range tr.All(true) {
		if i == 1 {
			break
		}
	}

	got := drainAll(tr, true)
	want := []pair{{2, 2}, {3, 3}}
	if !slices.Equal(got, want) {
		t.Errorf("after break, Drain(true) = %v, want %v", got, want)
	}
}

// TestSnapshot copies values without consuming marks.
func TestSnapshot(t *testing.T) {
	tr := New(4)
	tr.Set(1, 0.5)
	tr.Set(3, -1)

	dst := make([]float32, 8)
	if n := tr.Snapshot(dst); n != 4 {
		t.Fatalf("Snapshot copied %d, want 4", n)
	}
	if !slices.Equal(dst[:4], []float32{0, 0.5, 0, -1}) {
		t.Errorf("Snapshot = %v", dst[:4])
	}
	if tr.Pending() != 2 {
		t.Errorf("Snapshot consumed marks: Pending() = %d, want 2", tr.Pending())
	}
}

// TestZeroAllocs verifies Set, Get and a clearing Drain do not allocate.
func TestZeroAllocs(t *testing.T) {
	tr := New(512)

	allocs := testing.AllocsPerRun(200, func() {
		tr.Set(10, 1)
		tr.Set(300, 2)
		_ = tr.Get(10)
		it := tr.Drain(true)
		for {
			if _, _, ok := it.Next(); !ok {
				break
			}
		}
	})

	if allocs != 0 {
		t.Errorf("hot path allocated %.1f times per run, want 0", allocs)
	}
}

// TestConcurrent_WritersAndDrainer runs 8 writers on disjoint ranges against a
// clearing drainer and checks the final state and every drained value.
func TestConcurrent_WritersAndDrainer(t *testing.T) {
	const (
		writers   = 8
		perWriter = 64
		rounds    = 2000
	)
	n := writers * perWriter
	tr := New(n)

	// Values encode (round+1) so a drained value is valid iff it is a whole
	// number in [1, rounds]. Anything else would be torn or garbage.
	var wg sync.WaitGroup
	var running atomic.Int32
	running.Store(writers)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			defer running.Add(-1)
			for r := 1; r <= rounds; r++ {
				for k := 0; k < perWriter; k++ {
					tr.Set(base+k, float32(r))
				}
				if r%100 == 0 {
					runtime.Gosched()
				}
			}
		}(w * perWriter)
	}

	var invalid, drained int
	last := make([]float32, n)
	check := func(i int, v float32) {
		drained++
		if v != float32(int(v)) || v < 1 || v > rounds {
			invalid++
		}
		// Per slot, values only grow: a drained value older than one already
		// seen would mean the store went backwards.
		if v < last[i] {
			invalid++
		}
		last[i] = v
	}

	for running.Load() > 0 {
		it := tr.Drain(true)
		for {
			i, v, ok := it.Next()
			if !ok {
				break
			}
			check(i, v)
		}
	}
	wg.Wait()

	it := tr.Drain(true)
	for {
		i, v, ok := it.Next()
		if !ok {
			break
		}
		check(i, v)
	}

	if invalid != 0 {
		t.Errorf("%d invalid drained values out of %d", invalid, drained)
	}
	for i := 0; i < n; i++ {
		if tr.Get(i) != rounds {
			t.Errorf("Get(%d) = %v, want %d", i, tr.Get(i), rounds)
		}
		if last[i] != rounds {
			t.Errorf("last drained value for %d = %v, want %d", i, last[i], rounds)
		}
	}
	t.Logf("drained %d pairs across the run", drained)
}

func BenchmarkSet(b *testing.B) {
	tr := New(1024)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Set(i&1023, float32(i))
	}
}

func BenchmarkSet_Parallel(b *testing.B) {
	tr := New(1024)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			tr.Set(i&1023, float32(i))
			i++
		}
	})
}

func BenchmarkDrain_100Params(b *testing.B) {
	tr := New(100)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Set(i%100, 1)
		it := tr.Drain(true)
		for {
			if _, _, ok := it.Next(); !ok {
				break
			}
		}
	}
}
