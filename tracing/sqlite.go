package tracing

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteWriter writes access records to a SQLite database.
type SQLiteWriter struct {
	*sql.DB
	statement *sql.Stmt

	path      string
	toWrite   []AccessRecord
	batchSize int
}

// NewSQLiteWriter creates a new SQLiteWriter. An empty path picks a unique
// file name in the working directory.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		path:      path,
		batchSize: 100000,
	}
}

// Path returns the database file name.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// Init creates the database. It fails if the file already exists.
func (w *SQLiteWriter) Init() error {
	if w.path == "" {
		w.path = "memhier_trace_" + xid.New().String() + ".sqlite3"
	}

	if _, err := os.Stat(w.path); err == nil {
		return fmt.Errorf("file %s already exists", w.path)
	}

	db, err := sql.Open("sqlite3", w.path)
	if err != nil {
		return fmt.Errorf("failed to open trace database: %w", err)
	}
	w.DB = db

	w.createTable()
	w.prepareStatement()

	atexit.Register(func() { w.Flush() })

	return nil
}

// Write buffers a record and flushes once the batch is full.
func (w *SQLiteWriter) Write(record AccessRecord) {
	w.toWrite = append(w.toWrite, record)
	if len(w.toWrite) >= w.batchSize {
		w.Flush()
	}
}

// Flush writes all the buffered records in one transaction. Before Init
// and after Close records stay buffered.
func (w *SQLiteWriter) Flush() {
	if w.DB == nil || len(w.toWrite) == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for _, r := range w.toWrite {
		_, err := w.statement.Exec(
			r.RunID,
			int64(r.Seq),
			int64(r.Address),
			int64(r.LineAddress),
			r.Level,
			int64(r.Latency),
		)
		if err != nil {
			panic(err)
		}
	}

	w.toWrite = nil
}

// Close flushes the buffer and closes the database. Closing twice is a
// no-op.
func (w *SQLiteWriter) Close() error {
	if w.DB == nil {
		return nil
	}

	w.Flush()

	if err := w.statement.Close(); err != nil {
		return err
	}

	err := w.DB.Close()
	w.DB = nil

	return err
}

func (w *SQLiteWriter) createTable() {
	w.mustExecute(`
		create table access
		(
			run_id       varchar(20)  not null,
			seq          integer      not null,
			address      integer      not null,
			line_address integer      not null,
			level        varchar(100) not null,
			latency_ns   integer      not null
		);
	`)

	w.mustExecute(`
		create index access_run_id_index
			on access (run_id);
	`)

	w.mustExecute(`
		create index access_level_index
			on access (level);
	`)

	w.mustExecute(`
		create index access_line_address_index
			on access (line_address);
	`)
}

func (w *SQLiteWriter) prepareStatement() {
	stmt, err := w.Prepare(`INSERT INTO access VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		panic(err)
	}

	w.statement = stmt
}

func (w *SQLiteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}
	return res
}
