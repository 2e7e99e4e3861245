// Package benchmarks provides access-pattern workloads and a harness that
// replays them against memory hierarchies.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/memhier/timing/config"
	"github.com/sarchlab/memhier/timing/hierarchy"
)

// BenchmarkResult holds the results of replaying one workload.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Accesses is the number of reads replayed
	Accesses uint64 `json:"accesses"`

	// Levels holds per-level hit/miss counters
	Levels []hierarchy.LevelStats `json:"levels"`

	// RAMHits and BackingLoads count full cache misses by serving tier
	RAMHits      uint64 `json:"ram_hits"`
	BackingLoads uint64 `json:"backing_loads"`

	// TotalLatency is the simulated latency of all reads in nanoseconds
	TotalLatency uint64 `json:"total_latency_ns"`

	// AverageLatency is TotalLatency per read
	AverageLatency float64 `json:"average_latency_ns"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// L1HitRate returns the hit rate of the first cache level.
func (r BenchmarkResult) L1HitRate() float64 {
	if len(r.Levels) == 0 {
		return 0
	}
	return r.Levels[0].HitRate
}

// Benchmark defines a single workload.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Trace produces the addresses to read, in order
	Trace func() []uint64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Hierarchy describes the hierarchy built fresh for every benchmark
	Hierarchy *config.Config

	// Parallel bounds the number of benchmarks running at once; 0 means
	// one per benchmark
	Parallel int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger is handed to every hierarchy
	Logger *logrus.Logger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Hierarchy: config.DefaultConfig(),
		Output:    os.Stdout,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks, each on its own hierarchy, and returns
// results in the order the benchmarks were added.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, len(h.benchmarks))

	g, ctx := errgroup.WithContext(ctx)
	if h.config.Parallel > 0 {
		g.SetLimit(h.config.Parallel)
	}

	for i, bench := range h.benchmarks {
		g.Go(func() error {
			result, err := h.runBenchmark(ctx, bench)
			if err != nil {
				return fmt.Errorf("benchmark %s: %w", bench.Name, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// runBenchmark executes a single benchmark on a fresh hierarchy.
func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) (BenchmarkResult, error) {
	var opts []hierarchy.Option
	if h.config.Logger != nil {
		opts = append(opts, func(b hierarchy.Builder) hierarchy.Builder {
			return b.WithLogger(h.config.Logger)
		})
	}

	hier, err := hierarchy.FromConfig(bench.Name, h.config.Hierarchy, opts...)
	if err != nil {
		return BenchmarkResult{}, err
	}

	trace := bench.Trace()

	start := time.Now()
	if _, err := hier.ReadTrace(ctx, trace); err != nil {
		return BenchmarkResult{}, err
	}
	wallTime := time.Since(start)

	stats := hier.Stats()

	return BenchmarkResult{
		Name:           bench.Name,
		Description:    bench.Description,
		Accesses:       stats.TotalAccesses,
		Levels:         stats.Levels,
		RAMHits:        stats.RAMHits,
		BackingLoads:   stats.BackingLoads,
		TotalLatency:   stats.TotalLatency,
		AverageLatency: stats.AverageLatency,
		WallTime:       wallTime,
	}, nil
}

// PrintResults outputs benchmark results in human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Memory Hierarchy Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	if h.config.Verbose {
		for _, r := range results {
			_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
			_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
			_, _ = fmt.Fprintf(h.config.Output, "  Accesses:      %d\n", r.Accesses)
			for _, l := range r.Levels {
				_, _ = fmt.Fprintf(h.config.Output, "  %-4s hits: %8d  misses: %8d  evictions: %8d  hit rate: %6.2f%%\n",
					l.Name, l.Hits, l.Misses, l.Evictions, 100*l.HitRate)
			}
			_, _ = fmt.Fprintf(h.config.Output, "  RAM hits:      %d\n", r.RAMHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Backing loads: %d\n", r.BackingLoads)
			_, _ = fmt.Fprintf(h.config.Output, "  Total latency: %d ns\n", r.TotalLatency)
			_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
			_, _ = fmt.Fprintln(h.config.Output, "")
		}
	}

	_, _ = fmt.Fprintf(h.config.Output, "%-15s %10s %16s\n", "Benchmark", "L1 Hit%", "Avg Latency")
	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%-15s %9.2f%% %13.2f ns\n",
			r.Name, 100*r.L1HitRate(), r.AverageLatency)
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,accesses,l1_hit_rate,ram_hits,backing_loads,total_latency_ns,average_latency_ns")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%.4f,%d,%d,%d,%.3f\n",
			r.Name,
			r.Accesses,
			r.L1HitRate(),
			r.RAMHits,
			r.BackingLoads,
			r.TotalLatency,
			r.AverageLatency,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Hierarchy is the configuration every benchmark ran on
	Hierarchy *config.Config `json:"hierarchy"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Hierarchy: h.config.Hierarchy,
		},
		Results: results,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
