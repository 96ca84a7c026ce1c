// Package report provides Reporter implementations that persist a cache's
// statistics snapshot beyond the lifetime of the process, for querying
// across simulation runs.
package report

import (
	"database/sql"
	"fmt"
	"os"

	// Registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"

	"github.com/sarchlab/cachesim/cache"
)

// SQLiteReporter persists every reported Stats snapshot as one row in a
// "cache_stats" table, tagged with a run ID so rows from separate
// simulation runs against the same database file don't get confused for
// each other.
type SQLiteReporter struct {
	db    *sql.DB
	stmt  *sql.Stmt
	runID string
}

// NewSQLiteReporter opens (creating if necessary) a SQLite database at
// path and prepares the cache_stats table and insert statement. The
// returned reporter owns the connection; call Close when done with it.
func NewSQLiteReporter(path string) (*SQLiteReporter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("report: opening %s: %w", path, err)
	}

	r := &SQLiteReporter{db: db, runID: xid.New().String()}
	if err := r.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	if err := r.prepareStatement(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteReporter) createTable() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_stats (
			run_id         TEXT NOT NULL,
			name           TEXT NOT NULL,
			read_accesses  INTEGER NOT NULL,
			read_misses    INTEGER NOT NULL,
			write_accesses INTEGER NOT NULL,
			write_misses   INTEGER NOT NULL,
			bytes_read     INTEGER NOT NULL,
			bytes_written  INTEGER NOT NULL,
			writebacks     INTEGER NOT NULL,
			miss_rate      REAL NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("report: creating cache_stats table: %w", err)
	}

	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS cache_stats_run_id_index ON cache_stats (run_id);`)
	if err != nil {
		return fmt.Errorf("report: creating run_id index: %w", err)
	}
	return nil
}

func (r *SQLiteReporter) prepareStatement() error {
	stmt, err := r.db.Prepare(`
		INSERT INTO cache_stats (
			run_id, name, read_accesses, read_misses, write_accesses,
			write_misses, bytes_read, bytes_written, writebacks, miss_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("report: preparing insert statement: %w", err)
	}
	r.stmt = stmt
	return nil
}

// Report inserts one row for the given snapshot. It satisfies
// cache.Reporter.
func (r *SQLiteReporter) Report(s cache.Stats) error {
	_, err := r.stmt.Exec(
		r.runID,
		s.Name,
		s.ReadAccesses,
		s.ReadMisses,
		s.WriteAccesses,
		s.WriteMisses,
		s.BytesRead,
		s.BytesWritten,
		s.Writebacks,
		s.MissRate(),
	)
	if err != nil {
		return fmt.Errorf("report: inserting stats for %s: %w", s.Name, err)
	}
	return nil
}

// RunID returns the identifier this reporter stamps on every row, so a
// caller can print it for later querying.
func (r *SQLiteReporter) RunID() string { return r.runID }

// Close releases the underlying database connection.
func (r *SQLiteReporter) Close() error {
	if r.stmt != nil {
		if err := r.stmt.Close(); err != nil {
			return err
		}
	}
	return r.db.Close()
}

// MustOpen is a convenience wrapper for callers that treat a
// reporter database they cannot open as a fatal startup error, printing to
// stderr and exiting rather than propagating the error through layers that
// have no better recovery than aborting.
func MustOpen(path string) *SQLiteReporter {
	r, err := NewSQLiteReporter(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return r
}
