package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance. Use ":memory:" for
// a scan log that disappears with the process.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// RecordScan stores a scan and sets its ID
func (s *SQLiteStorage) RecordScan(ctx context.Context, scan *Scan) error {
	if scan.KnowledgeBase == "" {
		return fmt.Errorf("record scan: knowledge base is required")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (knowledge_base, started_at_ms, duration_ms, document_count, error)
		VALUES (?, ?, ?, ?, ?)`,
		scan.KnowledgeBase,
		scan.StartedAt.UnixMilli(),
		scan.Duration.Milliseconds(),
		scan.DocumentCount,
		scan.Error,
	)
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	scan.ID = id
	return nil
}

// LastScan returns the most recent scan for a knowledge base
func (s *SQLiteStorage) LastScan(ctx context.Context, knowledgeBase string) (*Scan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, knowledge_base, started_at_ms, duration_ms, document_count, error
		FROM scans
		WHERE knowledge_base = ?
		ORDER BY started_at_ms DESC, id DESC
		LIMIT 1`, knowledgeBase)

	scan, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("last scan: %w", err)
	}
	return scan, nil
}

// RecentScans returns up to limit scans, newest first
func (s *SQLiteStorage) RecentScans(ctx context.Context, limit int) ([]*Scan, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, knowledge_base, started_at_ms, duration_ms, document_count, error
		FROM scans
		ORDER BY started_at_ms DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scans []*Scan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("recent scans: %w", err)
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// ScanStats aggregates scans per knowledge base, ordered by id
func (s *SQLiteStorage) ScanStats(ctx context.Context) ([]KnowledgeBaseStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT knowledge_base,
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), 0),
		       MAX(started_at_ms)
		FROM scans
		GROUP BY knowledge_base
		ORDER BY knowledge_base`)
	if err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []KnowledgeBaseStats
	for rows.Next() {
		var st KnowledgeBaseStats
		var lastMs int64
		if err := rows.Scan(&st.KnowledgeBase, &st.TotalScans, &st.FailedScans, &lastMs); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		st.LastScanAt = time.UnixMilli(lastMs)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(r rowScanner) (*Scan, error) {
	var (
		scan       Scan
		startedMs  int64
		durationMs int64
	)
	if err := r.Scan(&scan.ID, &scan.KnowledgeBase, &startedMs, &durationMs, &scan.DocumentCount, &scan.Error); err != nil {
		return nil, err
	}
	scan.StartedAt = time.UnixMilli(startedMs)
	scan.Duration = time.Duration(durationMs) * time.Millisecond
	return &scan, nil
}
