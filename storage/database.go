// Package storage persists keep-alive run history for the status view.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps the SQLite run-history store.
type Database struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Run is one recorded keep-alive result.
type Run struct {
	ID        int       `json:"id"`
	Identity  string    `json:"identity"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDatabase opens (creating if needed) the run-history database.
func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{db: db, logger: logger}

	if err := database.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	logger.Debug("Run-history database ready")
	return database, nil
}

func (d *Database) initTables() error {
	query := `CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identity TEXT NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := d.db.Exec(query); err != nil {
		return err
	}
	_, err := d.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`)
	return err
}

// RecordRun stores one account result.
func (d *Database) RecordRun(identity, outcome, detail string) error {
	_, err := d.db.Exec(
		`INSERT INTO runs (identity, outcome, detail) VALUES (?, ?, ?)`,
		identity, outcome, detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (d *Database) RecentRuns(limit int) ([]Run, error) {
	rows, err := d.db.Query(
		`SELECT id, identity, outcome, detail, created_at FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Identity, &r.Outcome, &r.Detail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DailyStats returns success/failure counts for the given day.
func (d *Database) DailyStats(day time.Time) (map[string]int, error) {
	stats := map[string]int{"success": 0, "failure": 0}

	rows, err := d.db.Query(
		`SELECT outcome, COUNT(*) FROM runs WHERE DATE(created_at) = DATE(?) GROUP BY outcome`,
		day.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats[outcome] = count
	}
	return stats, rows.Err()
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
