// Package hierarchy simulates reads against an inclusive multi-level cache
// hierarchy.
//
// A read probes the cache levels from the fastest to the slowest, charging
// every probed level's latency. The first level holding the line resolves
// the read and the line is promoted into every level above it. A read that
// misses every level is served by main memory (when modeled) or the backing
// store, and the line is inserted into every cache level.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/memhier/timing/cache"
)

var (
	// ErrConfiguration is returned when a hierarchy cannot be built from
	// the given level definitions.
	ErrConfiguration = errors.New("invalid hierarchy configuration")

	// ErrInvalidAddress is returned by Read for addresses outside the
	// simulated address space.
	ErrInvalidAddress = errors.New("invalid address")
)

// HookPosAccess marks a completed read. The hook item is the Result.
var HookPosAccess = &sim.HookPos{Name: "Access"}

// HookPosEvict marks a line leaving a cache level. The hook item is an
// Eviction.
var HookPosEvict = &sim.HookPos{Name: "Evict"}

// ParseAddress parses a decimal or 0x-prefixed hexadecimal address.
func ParseAddress(s string) (uint64, error) {
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}

	addr, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	return addr, nil
}

// Result describes one completed read.
type Result struct {
	Address     uint64 `json:"address"`
	LineAddress uint64 `json:"line_address"`
	Payload     string `json:"payload"`
	// Latency is the total simulated latency in nanoseconds.
	Latency uint64 `json:"latency_ns"`
	// Level is the name of the tier that resolved the read.
	Level string `json:"level"`
}

// Eviction describes a line evicted from a cache level.
type Eviction struct {
	Level       string
	LineAddress uint64
}

// Hierarchy is an ordered chain of cache levels in front of an optional
// main memory and a backing store. It is not safe for concurrent use.
type Hierarchy struct {
	*sim.HookableBase

	name         string
	lineSize     uint64
	addressSpace uint64

	levels  []*cache.Level
	memory  *cache.MainMemory
	backing *cache.BackingStore

	log *logrus.Logger

	totalAccesses uint64
	totalLatency  uint64
}

// Name returns the name of the hierarchy.
func (h *Hierarchy) Name() string {
	return h.name
}

// LineSize returns the line size in bytes.
func (h *Hierarchy) LineSize() uint64 {
	return h.lineSize
}

// AddressSpace returns the exclusive upper bound of valid addresses.
func (h *Hierarchy) AddressSpace() uint64 {
	return h.addressSpace
}

// Levels returns the cache level configurations, fastest first.
func (h *Hierarchy) Levels() []cache.Config {
	configs := make([]cache.Config, len(h.levels))
	for i, l := range h.levels {
		configs[i] = l.Config()
	}
	return configs
}

// Level returns the cache level with the given name.
func (h *Hierarchy) Level(name string) (*cache.Level, bool) {
	for _, l := range h.levels {
		if l.Name() == name {
			return l, true
		}
	}
	return nil, false
}

// MainMemory returns the RAM tier, or nil when the hierarchy has none.
func (h *Hierarchy) MainMemory() *cache.MainMemory {
	return h.memory
}

// BackingStore returns the terminal tier.
func (h *Hierarchy) BackingStore() *cache.BackingStore {
	return h.backing
}

// LineAddress rounds an address down to its line.
func (h *Hierarchy) LineAddress(addr uint64) uint64 {
	return (addr / h.lineSize) * h.lineSize
}

// Read resolves one address. Addresses outside the address space are
// rejected before any tier is touched.
func (h *Hierarchy) Read(addr uint64) (Result, error) {
	if addr >= h.addressSpace {
		return Result{}, fmt.Errorf("%w: %#x is outside the %#x-byte address space",
			ErrInvalidAddress, addr, h.addressSpace)
	}

	lineAddr := h.LineAddress(addr)
	result := Result{Address: addr, LineAddress: lineAddr}

	for i, level := range h.levels {
		// Every probe costs the level's latency, hit or miss
		result.Latency += level.Latency()

		payload, hit := level.Lookup(lineAddr)
		if !hit {
			continue
		}

		h.fill(h.levels[:i], lineAddr, payload)

		result.Payload = payload
		result.Level = level.Name()
		h.complete(result)

		return result, nil
	}

	payload, resolvedBy, latency := h.fetch(lineAddr)
	h.fill(h.levels, lineAddr, payload)

	result.Payload = payload
	result.Level = resolvedBy
	result.Latency += latency
	h.complete(result)

	return result, nil
}

// fetch serves a line that missed every cache level.
func (h *Hierarchy) fetch(lineAddr uint64) (payload, resolvedBy string, latency uint64) {
	if h.memory != nil {
		if payload, ok := h.memory.Lookup(lineAddr); ok {
			return payload, cache.RAMName, h.memory.Latency()
		}
	}

	// First touch: the backing store latency replaces the RAM latency
	payload = h.backing.Load(lineAddr)
	if h.memory != nil {
		h.memory.Insert(lineAddr, payload)
	}

	return payload, cache.BackingStoreName, h.backing.Latency()
}

// fill inserts a line into the given levels, slowest first.
func (h *Hierarchy) fill(levels []*cache.Level, lineAddr uint64, payload string) {
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]

		evicted, ok := level.Insert(lineAddr, payload)
		h.debug("line filled", level.Name(), lineAddr)

		if !ok {
			continue
		}

		h.debug("line evicted", level.Name(), evicted)
		h.InvokeHook(sim.HookCtx{
			Domain: h,
			Pos:    HookPosEvict,
			Item:   Eviction{Level: level.Name(), LineAddress: evicted},
		})
	}
}

func (h *Hierarchy) debug(msg, level string, lineAddr uint64) {
	if !h.log.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	h.log.WithFields(logrus.Fields{
		"hierarchy": h.name,
		"level":     level,
		"line":      fmt.Sprintf("%#x", lineAddr),
	}).Debug(msg)
}

func (h *Hierarchy) complete(result Result) {
	h.totalAccesses++
	h.totalLatency += result.Latency

	h.InvokeHook(sim.HookCtx{
		Domain: h,
		Pos:    HookPosAccess,
		Item:   result,
	})
}

// ReadTrace reads every address in order and returns the number of reads
// completed. It stops at the first invalid address or when ctx is done.
func (h *Hierarchy) ReadTrace(ctx context.Context, addrs []uint64) (int, error) {
	for i, addr := range addrs {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		if _, err := h.Read(addr); err != nil {
			return i, fmt.Errorf("trace entry %d: %w", i, err)
		}
	}

	return len(addrs), nil
}

// Flush drops every line from the cache levels. Main memory, the backing
// store and statistics are untouched.
func (h *Hierarchy) Flush() {
	for _, l := range h.levels {
		l.Flush()
	}
}
