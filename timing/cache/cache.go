// Package cache provides the tiers of a simulated memory hierarchy: bounded
// LRU cache levels built on Akita cache directories, an unbounded main
// memory and a backing store that materializes data on first touch.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds the geometry and timing of one cache level.
type Config struct {
	// Name identifies the level in results and statistics (e.g. "L1").
	Name string
	// LineSize in bytes. It must be the same across a hierarchy.
	LineSize int
	// Capacity in bytes. The level holds Capacity/LineSize lines.
	Capacity int
	// Associativity is the number of ways per set. Zero makes the level
	// fully associative.
	Associativity int
	// Latency in nanoseconds charged every time the level is probed.
	Latency uint64
}

// NumLines returns the maximum number of resident lines.
func (c Config) NumLines() int {
	if c.LineSize <= 0 {
		return 0
	}
	return c.Capacity / c.LineSize
}

// geometry returns the number of sets and ways of the directory.
func (c Config) geometry() (sets, ways int) {
	lines := c.NumLines()
	if c.Associativity <= 0 || c.Associativity >= lines {
		return 1, lines
	}
	return lines / c.Associativity, c.Associativity
}

// Validate checks that the level can hold at least one line and that the
// associativity splits its lines into whole sets.
func (c Config) Validate() error {
	if c.LineSize <= 0 {
		return fmt.Errorf("level %q: line size must be > 0", c.Name)
	}
	lines := c.NumLines()
	if lines < 1 {
		return fmt.Errorf("level %q: capacity %d is smaller than one %d-byte line",
			c.Name, c.Capacity, c.LineSize)
	}
	if c.Associativity < 0 {
		return fmt.Errorf("level %q: associativity must be >= 0", c.Name)
	}
	if c.Associativity > 0 && c.Associativity < lines && lines%c.Associativity != 0 {
		return fmt.Errorf("level %q: %d ways do not divide %d lines",
			c.Name, c.Associativity, lines)
	}
	return nil
}

// Statistics holds per-level counters.
type Statistics struct {
	Hits       uint64
	Misses     uint64
	Insertions uint64
	Evictions  uint64
}

// lineStore holds the resident lines of a level and their recency order.
type lineStore interface {
	// lookup returns a resident payload and marks the line most recently used.
	lookup(lineAddr uint64) (string, bool)
	contains(lineAddr uint64) bool
	// update overwrites a resident line and marks it most recently used.
	update(lineAddr uint64, payload string) bool
	// insert adds a non-resident line, evicting the least recently used line
	// of its set when the set is full.
	insert(lineAddr uint64, payload string) (evicted uint64, ok bool)
	len() int
	resident() []uint64
	reset()
}

// Level is a bounded store of cache lines keyed by line address. Lines are
// replaced in least-recently-used order; both lookups and insertions count
// as uses.
//
// Set-associative levels keep tags in an Akita cache directory. Fully
// associative levels use a hash map and a recency list so that every
// operation is O(1) regardless of capacity.
type Level struct {
	config Config
	store  lineStore
	stats  Statistics
}

// New creates a level. The config must pass Validate.
func New(config Config) *Level {
	sets, ways := config.geometry()

	var store lineStore
	if sets == 1 {
		store = newLRUStore(ways)
	} else {
		store = newDirectoryStore(sets, ways, config.LineSize)
	}

	return &Level{
		config: config,
		store:  store,
	}
}

// Name returns the level name.
func (l *Level) Name() string {
	return l.config.Name
}

// Latency returns the probe latency in nanoseconds.
func (l *Level) Latency() uint64 {
	return l.config.Latency
}

// Config returns the level configuration.
func (l *Level) Config() Config {
	return l.config
}

// Stats returns level statistics.
func (l *Level) Stats() Statistics {
	return l.stats
}

// ResetStats clears level statistics. Resident lines are kept.
func (l *Level) ResetStats() {
	l.stats = Statistics{}
}

// Lookup returns the payload of a resident line and marks it most recently
// used. A miss leaves the resident set untouched.
func (l *Level) Lookup(lineAddr uint64) (string, bool) {
	payload, ok := l.store.lookup(lineAddr)
	if !ok {
		l.stats.Misses++
		return "", false
	}

	l.stats.Hits++

	return payload, true
}

// Contains reports whether a line is resident without touching recency or
// statistics.
func (l *Level) Contains(lineAddr uint64) bool {
	return l.store.contains(lineAddr)
}

// Insert stores a line and marks it most recently used. A resident line is
// overwritten in place. Otherwise, if the level (or the line's set) is full,
// the least recently used line is evicted first and its address returned.
func (l *Level) Insert(lineAddr uint64, payload string) (evicted uint64, ok bool) {
	l.stats.Insertions++

	if l.store.update(lineAddr, payload) {
		return 0, false
	}

	evicted, ok = l.store.insert(lineAddr, payload)
	if ok {
		l.stats.Evictions++
	}

	return evicted, ok
}

// Len returns the number of resident lines.
func (l *Level) Len() int {
	return l.store.len()
}

// Resident returns the resident line addresses of every set, each set from
// least to most recently used.
func (l *Level) Resident() []uint64 {
	return l.store.resident()
}

// Flush drops every resident line. Statistics are kept.
func (l *Level) Flush() {
	l.store.reset()
}

// directoryStore keeps tags and LRU order in an Akita cache directory.
type directoryStore struct {
	ways int

	// Akita cache directory for tag and LRU management
	directory *akitacache.DirectoryImpl

	// Payload storage - indexed by (setID * ways + wayID)
	dataStore []string
}

func newDirectoryStore(sets, ways, lineSize int) *directoryStore {
	return &directoryStore{
		ways: ways,
		directory: akitacache.NewDirectory(
			sets,
			ways,
			lineSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: make([]string, sets*ways),
	}
}

func (d *directoryStore) blockIndex(block *akitacache.Block) int {
	return block.SetID*d.ways + block.WayID
}

func (d *directoryStore) find(lineAddr uint64) *akitacache.Block {
	block := d.directory.Lookup(0, lineAddr)
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

func (d *directoryStore) lookup(lineAddr uint64) (string, bool) {
	block := d.find(lineAddr)
	if block == nil {
		return "", false
	}

	d.directory.Visit(block)

	return d.dataStore[d.blockIndex(block)], true
}

func (d *directoryStore) contains(lineAddr uint64) bool {
	return d.find(lineAddr) != nil
}

func (d *directoryStore) update(lineAddr uint64, payload string) bool {
	block := d.find(lineAddr)
	if block == nil {
		return false
	}

	d.dataStore[d.blockIndex(block)] = payload
	d.directory.Visit(block)

	return true
}

func (d *directoryStore) insert(lineAddr uint64, payload string) (evicted uint64, ok bool) {
	victim := d.directory.FindVictim(lineAddr)
	if victim.IsValid {
		evicted, ok = victim.Tag, true
	}

	// Tag stores the line-aligned address directly
	victim.Tag = lineAddr
	victim.IsValid = true
	victim.IsDirty = false
	d.dataStore[d.blockIndex(victim)] = payload
	d.directory.Visit(victim)

	return evicted, ok
}

func (d *directoryStore) len() int {
	n := 0
	for _, set := range d.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				n++
			}
		}
	}
	return n
}

func (d *directoryStore) resident() []uint64 {
	var lines []uint64
	for _, set := range d.directory.GetSets() {
		for _, block := range set.LRUQueue {
			if block.IsValid {
				lines = append(lines, block.Tag)
			}
		}
	}
	return lines
}

func (d *directoryStore) reset() {
	d.directory.Reset()
	for i := range d.dataStore {
		d.dataStore[i] = ""
	}
}
