// Package tracing records every read of a hierarchy into a trace backend.
package tracing

import (
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/memhier/timing/hierarchy"
)

// AccessRecord is one traced read.
type AccessRecord struct {
	RunID       string `json:"run_id"`
	Seq         uint64 `json:"seq"`
	Address     uint64 `json:"address"`
	LineAddress uint64 `json:"line_address"`
	Level       string `json:"level"`
	Latency     uint64 `json:"latency_ns"`
}

// Writer stores access records. Writers may buffer; Flush must persist
// everything written so far.
type Writer interface {
	Write(record AccessRecord)
	Flush()
}

// Tracer is a hook that turns completed reads into access records.
type Tracer struct {
	runID  string
	seq    uint64
	writer Writer
}

// NewTracer creates a tracer with a fresh run id.
func NewTracer(writer Writer) *Tracer {
	return &Tracer{
		runID:  xid.New().String(),
		writer: writer,
	}
}

// RunID returns the id stamped on every record of this tracer.
func (t *Tracer) RunID() string {
	return t.runID
}

// Func records the read carried by an access hook.
func (t *Tracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != hierarchy.HookPosAccess {
		return
	}

	result, ok := ctx.Item.(hierarchy.Result)
	if !ok {
		return
	}

	t.writer.Write(AccessRecord{
		RunID:       t.runID,
		Seq:         t.seq,
		Address:     result.Address,
		LineAddress: result.LineAddress,
		Level:       result.Level,
		Latency:     result.Latency,
	})
	t.seq++
}

// MemoryWriter keeps records in memory. A bounded writer keeps only the
// most recent records. It is safe for concurrent use.
type MemoryWriter struct {
	mu sync.Mutex

	// records is a ring when capacity > 0; start indexes the oldest record
	records  []AccessRecord
	start    int
	capacity int
}

// NewMemoryWriter creates an empty MemoryWriter that keeps every record.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

// NewBoundedMemoryWriter creates an empty MemoryWriter that keeps at most
// capacity records, dropping the oldest first. A capacity <= 0 keeps every
// record.
func NewBoundedMemoryWriter(capacity int) *MemoryWriter {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryWriter{capacity: capacity}
}

// Write appends a record.
func (w *MemoryWriter) Write(record AccessRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capacity == 0 || len(w.records) < w.capacity {
		w.records = append(w.records, record)
		return
	}

	w.records[w.start] = record
	w.start = (w.start + 1) % w.capacity
}

// Flush does nothing; records are always visible.
func (w *MemoryWriter) Flush() {}

// Len returns the number of records held.
func (w *MemoryWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.records)
}

// Records returns a copy of the records held, oldest first.
func (w *MemoryWriter) Records() []AccessRecord {
	return w.Last(w.Len())
}

// Last returns up to n of the most recent records, oldest first. A
// negative n returns nothing.
func (w *MemoryWriter) Last(n int) []AccessRecord {
	w.mu.Lock()
	defer w.mu.Unlock()

	size := len(w.records)
	n = max(0, min(n, size))

	records := make([]AccessRecord, n)
	for i := range records {
		records[i] = w.records[(w.start+size-n+i)%size]
	}
	return records
}

// Reset drops every record.
func (w *MemoryWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.records = nil
	w.start = 0
}
