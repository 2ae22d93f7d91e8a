package report

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS reports (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  stage TEXT NOT NULL,
  host TEXT NOT NULL,
  document TEXT NOT NULL,
  ts INTEGER NOT NULL
)`

// SQLiteWriter appends reports to a local SQLite database.
type SQLiteWriter struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteWriter opens (or creates) the database at path.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite init schema: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write inserts one report.
func (w *SQLiteWriter) Write(r Report) error {
	doc, err := r.JSON()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.db.Exec(`INSERT INTO reports(run_id, stage, host, document, ts) VALUES(?,?,?,?,?)`,
		r.Run, r.Stage, r.Host, string(doc), r.CollectedAt.UnixMilli())
	return err
}

// Count returns the number of stored reports for run.
func (w *SQLiteWriter) Count(run string) (int, error) {
	var n int
	err := w.db.QueryRow(`SELECT COUNT(*) FROM reports WHERE run_id = ?`, run).Scan(&n)
	return n, err
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
