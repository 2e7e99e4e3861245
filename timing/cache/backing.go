package cache

import "fmt"

// BackingStoreName is the resolved-level name of reads served by the backing
// store.
const BackingStoreName = "BackingStore"

// Source produces the content of a line the first time the backing store
// sees it. Materialize must be a pure function of the address.
type Source interface {
	Materialize(lineAddr uint64) string
}

// PlaceholderSource materializes a formatted placeholder per line.
type PlaceholderSource struct{}

// Materialize returns "data_0x<line address>".
func (PlaceholderSource) Materialize(lineAddr uint64) string {
	return fmt.Sprintf("data_%#x", lineAddr)
}

// BackingStore is the terminal tier. It resolves every line, records what it
// has materialized and never evicts.
type BackingStore struct {
	latency uint64
	source  Source
	lines   map[uint64]string
	loads   uint64
}

// NewBackingStore creates a backing store. A nil source falls back to
// PlaceholderSource.
func NewBackingStore(latency uint64, source Source) *BackingStore {
	if source == nil {
		source = PlaceholderSource{}
	}

	return &BackingStore{
		latency: latency,
		source:  source,
		lines:   make(map[uint64]string),
	}
}

// Load returns the payload of a line, materializing it on first touch.
func (b *BackingStore) Load(lineAddr uint64) string {
	b.loads++

	if payload, ok := b.lines[lineAddr]; ok {
		return payload
	}

	payload := b.source.Materialize(lineAddr)
	b.lines[lineAddr] = payload

	return payload
}

// Latency returns the load latency in nanoseconds.
func (b *BackingStore) Latency() uint64 {
	return b.latency
}

// Loads returns the number of loads since the last ResetStats.
func (b *BackingStore) Loads() uint64 {
	return b.loads
}

// Materialized returns the number of distinct lines ever loaded.
func (b *BackingStore) Materialized() int {
	return len(b.lines)
}

// ResetStats clears the load counter. Materialized lines are kept.
func (b *BackingStore) ResetStats() {
	b.loads = 0
}
