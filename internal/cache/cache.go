package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsift/internal/model"
)

// DefaultTTL is how long a cached result stays fresh.
const DefaultTTL = 5 * time.Minute

// Entry is a cached pipeline result.
type Entry struct {
	Postings []model.Posting
	Metadata model.RunMetadata
	StoredAt time.Time
}

// Info summarizes the cache contents.
type Info struct {
	Entries int           `json:"entries"`
	Fresh   int           `json:"fresh"`
	TTL     time.Duration `json:"-"`
	TTLText string        `json:"ttl"`
	Keys    []string      `json:"keys"`
}

// Cache stores pipeline results by search key.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	Invalidate(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Info(ctx context.Context) (Info, error)
}

// Key builds the cache key for a search.
func Key(keywords string, hours, limit int, mode string) string {
	return strings.ToLower(strings.TrimSpace(keywords)) + "_" + strconv.Itoa(hours) + "_" + strconv.Itoa(limit) + "_" + mode
}

// SQLiteCache keeps results in an in-memory SQLite database. Nothing is
// written to disk.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteCache opens a private in-memory database. A non-positive ttl
// uses DefaultTTL.
func NewSQLiteCache(ttl time.Duration) (*SQLiteCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite cache: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS results (
		cache_key TEXT PRIMARY KEY,
		postings  TEXT NOT NULL,
		metadata  TEXT NOT NULL,
		stored_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating results table: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the entry for key if present and not older than the TTL.
// Expired entries are deleted on read.
func (c *SQLiteCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	var postingsJSON, metaJSON string
	var storedAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT postings, metadata, stored_at FROM results WHERE cache_key = ?", key,
	).Scan(&postingsJSON, &metaJSON, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading cache entry %s: %w", key, err)
	}

	stored := time.Unix(0, storedAt)
	if c.now().Sub(stored) >= c.ttl {
		if err := c.Invalidate(ctx, key); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	}

	e := Entry{StoredAt: stored}
	if err := json.Unmarshal([]byte(postingsJSON), &e.Postings); err != nil {
		return Entry{}, false, fmt.Errorf("decoding cached postings: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
		return Entry{}, false, fmt.Errorf("decoding cached metadata: %w", err)
	}
	return e, true, nil
}

// Put stores e under key, replacing any previous entry.
func (c *SQLiteCache) Put(ctx context.Context, key string, e Entry) error {
	postingsJSON, err := json.Marshal(e.Postings)
	if err != nil {
		return fmt.Errorf("encoding postings: %w", err)
	}
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO results (cache_key, postings, metadata, stored_at) VALUES (?, ?, ?, ?)",
		key, string(postingsJSON), string(metaJSON), c.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return nil
}

// Invalidate removes key. Missing keys are not an error.
func (c *SQLiteCache) Invalidate(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM results WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("invalidating cache entry %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM results"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Info reports entry counts and keys, oldest first.
func (c *SQLiteCache) Info(ctx context.Context) (Info, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT cache_key, stored_at FROM results ORDER BY stored_at")
	if err != nil {
		return Info{}, fmt.Errorf("listing cache entries: %w", err)
	}
	defer rows.Close()

	info := Info{TTL: c.ttl, TTLText: c.ttl.String(), Keys: []string{}}
	now := c.now()
	for rows.Next() {
		var key string
		var storedAt int64
		if err := rows.Scan(&key, &storedAt); err != nil {
			return Info{}, fmt.Errorf("scanning cache entry: %w", err)
		}
		info.Entries++
		if now.Sub(time.Unix(0, storedAt)) < c.ttl {
			info.Fresh++
		}
		info.Keys = append(info.Keys, key)
	}
	if err := rows.Err(); err != nil {
		return Info{}, fmt.Errorf("iterating cache entries: %w", err)
	}
	return info, nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
