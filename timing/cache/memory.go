package cache

// RAMName is the resolved-level name of reads served by main memory.
const RAMName = "RAM"

// MainMemory is an unbounded tier between the last cache level and the
// backing store. Lines enter it when they are loaded from the backing store.
type MainMemory struct {
	latency uint64
	lines   map[uint64]string

	hits   uint64
	misses uint64
}

// NewMainMemory creates an empty main memory.
func NewMainMemory(latency uint64) *MainMemory {
	return &MainMemory{
		latency: latency,
		lines:   make(map[uint64]string),
	}
}

// Lookup returns the payload of a resident line.
func (m *MainMemory) Lookup(lineAddr uint64) (string, bool) {
	payload, ok := m.lines[lineAddr]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return payload, ok
}

// Insert stores a line.
func (m *MainMemory) Insert(lineAddr uint64, payload string) {
	m.lines[lineAddr] = payload
}

// Contains reports whether a line is resident without counting an access.
func (m *MainMemory) Contains(lineAddr uint64) bool {
	_, ok := m.lines[lineAddr]
	return ok
}

// Latency returns the access latency in nanoseconds.
func (m *MainMemory) Latency() uint64 {
	return m.latency
}

// Len returns the number of resident lines.
func (m *MainMemory) Len() int {
	return len(m.lines)
}

// Hits returns the number of lookups served since the last ResetStats.
func (m *MainMemory) Hits() uint64 {
	return m.hits
}

// Misses returns the number of lookups that fell through to the backing
// store since the last ResetStats.
func (m *MainMemory) Misses() uint64 {
	return m.misses
}

// ResetStats clears the counters.
func (m *MainMemory) ResetStats() {
	m.hits = 0
	m.misses = 0
}

// Flush drops every resident line.
func (m *MainMemory) Flush() {
	m.lines = make(map[uint64]string)
}
