// Bench is a benchmarking tool for measuring mphash build performance,
// decode throughput, and memory usage.
//
// Usage:
//
//	go run ./cmd/bench -keys 1000000 -value 4
//
// Flags:
//
//	-keys      Number of keys (default: 1,000,000)
//	-keylen    Key length in bytes (default: 16)
//	-value     Value size in bytes, 0 for function-only (default: 0)
//	-workers   Verify workers, 0 for GOMAXPROCS (default: 0)
//	-seed      Salt sequence seed (default: 0x1234567890abcdef)
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tamirms/mphash"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// peakSampler tracks peak heap and RSS on a 10ms ticker.
// Uses runtime/metrics instead of ReadMemStats to avoid stop-the-world pauses.
type peakSampler struct {
	heap atomic.Uint64
	rss  atomic.Uint64
	done chan struct{}
}

func startPeakSampler(heap, rss uint64) *peakSampler {
	s := &peakSampler{done: make(chan struct{})}
	s.heap.Store(heap)
	s.rss.Store(rss)
	go func() {
		samples := []metrics.Sample{
			{Name: "/memory/classes/heap/objects:bytes"},
		}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.heap, samples[0].Value.Uint64())
				storeMax(&s.rss, getMaxRSS())
			}
		}
	}()
	return s
}

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

func (s *peakSampler) stop() {
	close(s.done)
	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.heap, final.Alloc)
	storeMax(&s.rss, getMaxRSS())
}

func main() {
	keysFlag := flag.Int("keys", 1_000_000, "number of keys")
	keyLenFlag := flag.Int("keylen", 16, "key length in bytes (>= 4)")
	valueFlag := flag.Int("value", 0, "value size in bytes (0 for function-only)")
	workersFlag := flag.Int("workers", 0, "verify workers (0 = GOMAXPROCS)")
	seedFlag := flag.Uint64("seed", 0x1234567890abcdef, "salt sequence seed")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (build phase only)")
	memprofile := flag.String("memprofile", "", "write memory profile to file (build phase only)")
	flag.Parse()

	numKeys := *keysFlag
	keyLen := max(*keyLenFlag, 4)
	valueSize := *valueFlag

	fmt.Println("Generating keys...")
	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = make([]byte, keyLen)
		_, _ = rand.Read(keys[i]) // crypto/rand.Read error is fatal system issue; ignore for benchmark
		// Index prefix keeps keys distinct.
		binary.BigEndian.PutUint32(keys[i], uint32(i))
	}

	var pairs []mphash.Pair
	if valueSize > 0 {
		fmt.Println("Generating values...")
		pairs = make([]mphash.Pair, numKeys)
		for i := range pairs {
			v := make([]byte, valueSize)
			_, _ = rand.Read(v)
			pairs[i] = mphash.Pair{Key: keys[i], Value: v}
		}
	} else {
		fmt.Println("Function mode (no values)...")
	}

	tmpDir, err := os.MkdirTemp("", "bench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	imagePath := filepath.Join(tmpDir, "test.mph")

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()
	sampler := startPeakSampler(baseline.Alloc, baselineRSS)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Building...")
	ctx := context.Background()
	opts := []mphash.BuildOption{mphash.WithSeed(*seedFlag)}
	buildStart := time.Now()
	var m *mphash.MPHF
	if pairs != nil {
		var t *mphash.Table
		t, err = mphash.BuildTable(ctx, pairs, opts...)
		if err == nil {
			m = t.MPHF()
			err = mphash.SaveTable(imagePath, t)
		}
	} else {
		m, err = mphash.Build(ctx, keys, opts...)
		if err == nil {
			err = mphash.Save(imagePath, m)
		}
	}
	buildDuration := time.Since(buildStart)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Printf("could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Printf("could not write memory profile: %v\n", err)
			}
			_ = f.Close()
		}
	}
	sampler.stop()

	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		return
	}

	fmt.Println("Verifying...")
	verifyStart := time.Now()
	if err := mphash.Verify(ctx, m, keys, *workersFlag); err != nil {
		fmt.Printf("Verify failed: %v\n", err)
		return
	}
	verifyDuration := time.Since(verifyStart)

	idx, err := mphash.Open(imagePath)
	if err != nil {
		fmt.Printf("Open failed: %v\n", err)
		return
	}
	defer func() { _ = idx.Close() }()
	if err := idx.Verify(); err != nil {
		fmt.Printf("Image checksum failed: %v\n", err)
		return
	}

	queryOrder := mrand.Perm(numKeys)
	query := func(k []byte) {
		if pairs != nil {
			_, _ = idx.Lookup(k) // Benchmark: measuring throughput, not correctness
		} else {
			_, _ = idx.Hash(k)
		}
	}

	fmt.Println("Warming up queries...")
	for i := 0; i < 10000; i++ {
		query(keys[queryOrder[i%numKeys]])
	}

	fmt.Println("Benchmarking queries...")
	numQueries := 100000
	queryStart := time.Now()
	for i := 0; i < numQueries; i++ {
		query(keys[queryOrder[i%numKeys]])
	}
	queryDuration := time.Since(queryStart)
	avgLatency := float64(queryDuration.Nanoseconds()) / float64(numQueries) / 1000

	st, err := mphash.GetStats(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats: %v\n", err)
		os.Exit(1)
	}
	valueBits := float64(valueSize * 8)
	mode := "function"
	if pairs != nil {
		mode = "table"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╗\n")
	fmt.Printf("║ Mode: %-14s║ Keys: %-9d║\n", mode, numKeys)
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	fmt.Printf("║ Metric              ║ Value          ║\n")
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	fmt.Printf("║ Image bits per key  ║ %6.3f bits/key║\n", st.BitsPerKey)
	fmt.Printf("║   - MPHF            ║ %6.3f bits/key║\n", m.BitsPerKey())
	fmt.Printf("║   - Values          ║ %6.3f bits/key║\n", valueBits)
	fmt.Printf("║ Range               ║ %-15d║\n", m.Range())
	fmt.Printf("║ Attempts            ║ %-15d║\n", m.Attempts())
	fmt.Printf("║ Query latency       ║ %6.2f μs      ║\n", avgLatency)
	fmt.Printf("║ Build time          ║ %6.2f sec     ║\n", buildDuration.Seconds())
	fmt.Printf("║ Build throughput    ║ %6.2f M/sec   ║\n", float64(numKeys)/buildDuration.Seconds()/1_000_000)
	fmt.Printf("║ Verify time         ║ %6.2f sec     ║\n", verifyDuration.Seconds())
	fmt.Printf("║ Peak heap memory    ║ %6.1f MB      ║\n", float64(sampler.heap.Load()-baseline.Alloc)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %6.1f MB      ║\n", float64(sampler.rss.Load()-baselineRSS)/1_000_000)
	fmt.Printf("╚═════════════════════╩════════════════╝\n")
}
