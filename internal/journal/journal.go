// Package journal persists run history to a local sqlite database.
// One row per rebalance run: what ran, what it submitted, how it ended.
package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	symphony TEXT NOT NULL,
	status TEXT NOT NULL,
	orders_submitted INTEGER NOT NULL DEFAULT 0,
	orders_rejected INTEGER NOT NULL DEFAULT 0,
	symbols_skipped TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Journal stores run reports in sqlite
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

// RunRecord is one persisted run
type RunRecord struct {
	ID              int64
	StartedAt       time.Time
	FinishedAt      time.Time
	Symphony        string
	Status          string
	OrdersSubmitted int
	OrdersRejected  int
	SymbolsSkipped  []string
	Error           string
}

// Open opens (or creates) the journal database at path
func Open(path string, log zerolog.Logger) (*Journal, error) {
	// Run history is ephemeral operational data: WAL with relaxed fsync
	connStr := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{
		db:  db,
		log: log.With().Str("component", "journal").Logger(),
	}, nil
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts one run report
func (j *Journal) Record(report *domain.RunReport) error {
	_, err := j.db.Exec(
		`INSERT INTO runs (started_at, finished_at, symphony, status, orders_submitted, orders_rejected, symbols_skipped, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.StartedAt.Format(time.RFC3339),
		report.FinishedAt.Format(time.RFC3339),
		report.Symphony,
		report.Status,
		report.Submitted(),
		report.Rejections(),
		strings.Join(report.SkippedSymbols, ","),
		report.Err,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run, or nil when the journal is empty
func (j *Journal) LastRun() (*RunRecord, error) {
	row := j.db.QueryRow(
		`SELECT id, started_at, finished_at, symphony, status, orders_submitted, orders_rejected, symbols_skipped, error
		 FROM runs ORDER BY id DESC LIMIT 1`)

	var rec RunRecord
	var startedAt, finishedAt, skipped string
	err := row.Scan(&rec.ID, &startedAt, &finishedAt, &rec.Symphony, &rec.Status,
		&rec.OrdersSubmitted, &rec.OrdersRejected, &skipped, &rec.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}

	rec.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	rec.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
	if skipped != "" {
		rec.SymbolsSkipped = strings.Split(skipped, ",")
	}
	return &rec, nil
}

// Recent returns up to limit runs, newest first
func (j *Journal) Recent(limit int) ([]RunRecord, error) {
	rows, err := j.db.Query(
		`SELECT id, started_at, finished_at, symphony, status, orders_submitted, orders_rejected, symbols_skipped, error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var startedAt, finishedAt, skipped string
		if err := rows.Scan(&rec.ID, &startedAt, &finishedAt, &rec.Symphony, &rec.Status,
			&rec.OrdersSubmitted, &rec.OrdersRejected, &skipped, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		rec.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
		if skipped != "" {
			rec.SymbolsSkipped = strings.Split(skipped, ",")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
