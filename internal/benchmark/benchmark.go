// Package benchmark measures classification latency and memory use.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/common"
	"github.com/MeKo-Tech/soilsense/internal/pipeline"
)

// Runner classifies raw image bytes. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, data []byte) *pipeline.Result
}

// Result holds the outcome of one benchmark.
type Result struct {
	Name         string
	Iterations   int
	Duration     time.Duration
	MemoryBefore common.MemoryStats
	MemoryAfter  common.MemoryStats
	Statuses     map[pipeline.Status]int
	Error        error
}

// Average returns the mean duration per completed iteration.
func (r Result) Average() time.Duration {
	if r.Iterations <= 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	memDiff := int64(r.MemoryAfter.Alloc) - int64(r.MemoryBefore.Alloc) //nolint:gosec // G115: display only
	s := fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, mem: %+d KB",
		r.Name, r.Iterations, r.Average(), r.Duration, memDiff/1024)
	if len(r.Statuses) > 0 {
		s += " " + formatStatuses(r.Statuses)
	}
	return s
}

func formatStatuses(m map[pipeline.Status]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[pipeline.Status(k)]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

type benchmark struct {
	name     string
	fn       func(ctx context.Context) error
	statuses map[pipeline.Status]int
}

// Suite runs named benchmarks in registration order.
type Suite struct {
	mu         sync.Mutex
	benchmarks []*benchmark
	results    []Result
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers fn under name.
func (s *Suite) Add(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = append(s.benchmarks, &benchmark{name: name, fn: fn})
}

// AddPipeline registers a benchmark that classifies data with r. Outcomes are
// tallied per status; a failed outcome stops the benchmark with an error.
func (s *Suite) AddPipeline(name string, r Runner, data []byte) {
	b := &benchmark{name: name, statuses: map[pipeline.Status]int{}}
	b.fn = func(ctx context.Context) error {
		res := r.Run(ctx, data)
		b.statuses[res.Status]++
		if res.Status == pipeline.StatusFailed {
			return fmt.Errorf("classification failed: %s", res.Message)
		}
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = append(s.benchmarks, b)
}

// Run runs the named benchmark.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.benchmarks {
		if b.name == name {
			return runBenchmark(ctx, b, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs every registered benchmark and stores the results.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, runBenchmark(ctx, b, iterations))
	}
	return append([]Result(nil), s.results...)
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

// Print writes the last results to w.
func (s *Suite) Print(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func runBenchmark(ctx context.Context, b *benchmark, iterations int) Result {
	if iterations <= 0 {
		return Result{Name: b.name, Error: errors.New("iterations must be positive")}
	}
	if b.statuses != nil {
		clear(b.statuses)
	}

	runtime.GC()
	before := common.GetMemoryStats()
	timer := common.NewNamedTimer(b.name)

	done := 0
	var err error
	for range iterations {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = b.fn(ctx); err != nil {
			break
		}
		done++
	}

	res := Result{
		Name:         b.name,
		Iterations:   done,
		Duration:     timer.Stop(),
		MemoryBefore: before,
		MemoryAfter:  common.GetMemoryStats(),
		Error:        err,
	}
	slog.Debug("Benchmark finished", "timer", timer.String(), "iterations", done)
	if b.statuses != nil {
		res.Statuses = make(map[pipeline.Status]int, len(b.statuses))
		for k, v := range b.statuses {
			res.Statuses[k] = v
		}
	}
	return res
}

// Comparison contrasts two runs of the same workload, typically CPU and GPU.
type Comparison struct {
	Baseline  Result
	Candidate Result
}

// Speedup is baseline average over candidate average; 0 when either failed.
func (c Comparison) Speedup() float64 {
	if c.Baseline.Error != nil || c.Candidate.Error != nil {
		return 0
	}
	cand := c.Candidate.Average()
	if cand <= 0 {
		return 0
	}
	return float64(c.Baseline.Average()) / float64(cand)
}

func (c Comparison) String() string {
	if sp := c.Speedup(); sp > 0 {
		return fmt.Sprintf("%s vs %s: %.2fx", c.Candidate.Name, c.Baseline.Name, sp)
	}
	return fmt.Sprintf("%s vs %s: not comparable", c.Candidate.Name, c.Baseline.Name)
}
