package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore remembers posting fingerprints that have already been
// notified, so watch mode only reports new postings.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath (MemoryPath for a store that
// lives only as long as the process) and ensures the table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if dbPath == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS seen_postings (
		fingerprint TEXT PRIMARY KEY,
		first_seen  INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating seen_postings table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// HasSeen reports whether fingerprint has been recorded.
func (s *SQLiteStore) HasSeen(fingerprint string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM seen_postings WHERE fingerprint = ?", fingerprint).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s: %w", fingerprint, err)
	}
	return true, nil
}

// MarkSeen records fingerprint. Recording it twice is a no-op.
func (s *SQLiteStore) MarkSeen(fingerprint string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO seen_postings (fingerprint, first_seen) VALUES (?, ?)",
		fingerprint, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("marking %s as seen: %w", fingerprint, err)
	}
	return nil
}

// Cleanup forgets fingerprints first seen longer ago than olderThan.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).UnixNano()
	if _, err := s.db.Exec("DELETE FROM seen_postings WHERE first_seen < ?", cutoff); err != nil {
		return fmt.Errorf("cleaning up seen postings older than %v: %w", olderThan, err)
	}
	return nil
}

// IsEmpty reports whether nothing has been recorded yet.
func (s *SQLiteStore) IsEmpty() (bool, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM seen_postings").Scan(&count); err != nil {
		return false, fmt.Errorf("checking if store is empty: %w", err)
	}
	return count == 0, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
