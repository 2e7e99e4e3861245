package tracing

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVWriter stores access records in a CSV file.
type CSVWriter struct {
	path string
	file *os.File

	records    []AccessRecord
	bufferSize int
}

// NewCSVWriter creates a new CSVWriter. An empty path picks a unique file
// name in the working directory.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Path returns the CSV file name.
func (w *CSVWriter) Path() string {
	return w.path
}

// Init creates the CSV file and writes the header. It fails if the file
// already exists.
func (w *CSVWriter) Init() error {
	if w.path == "" {
		w.path = "memhier_trace_" + xid.New().String() + ".csv"
	}

	if _, err := os.Stat(w.path); err == nil {
		return fmt.Errorf("file %s already exists", w.path)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	w.file = file

	fmt.Fprintf(file, "run_id,seq,address,line_address,level,latency_ns\n")

	atexit.Register(func() { _ = w.Close() })

	return nil
}

// Write buffers a record and flushes once the buffer is full.
func (w *CSVWriter) Write(record AccessRecord) {
	w.records = append(w.records, record)
	if len(w.records) >= w.bufferSize {
		w.Flush()
	}
}

// Flush writes the buffered records to the file. Before Init and after
// Close records stay buffered.
func (w *CSVWriter) Flush() {
	if w.file == nil {
		return
	}

	for _, r := range w.records {
		fmt.Fprintf(w.file, "%s,%d,%#x,%#x,%s,%d\n",
			r.RunID,
			r.Seq,
			r.Address,
			r.LineAddress,
			r.Level,
			r.Latency,
		)
	}

	w.records = nil
}

// Close flushes the buffer and closes the file. Closing twice is a no-op.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}

	w.Flush()

	err := w.file.Close()
	w.file = nil

	return err
}
