package artifact

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested artifact is not in the store.
var ErrNotFound = errors.New("artifact not found")

// SourceKey returns the cache key for a source text: the hex SHA-256 of
// its bytes. The transformation is deterministic, so identical sources
// always map to identical artifacts.
func SourceKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Entry is one cached transpilation result.
type Entry struct {
	Key       string // SourceKey of the input
	IR        []byte // canonical CBOR encoding of the oblivious IR
	Code      string // emitted Go source
	CreatedAt time.Time
}

// Store is a SQLite-backed artifact cache.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) an artifact store at the given path.
// The parent directory is created if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (
		key        TEXT PRIMARY KEY,
		ir         BLOB NOT NULL,
		code       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put inserts or replaces an artifact.
func (s *Store) Put(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO artifacts (key, ir, code, created_at) VALUES (?, ?, ?, ?)`,
		e.Key, e.IR, e.Code, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing artifact %s: %w", e.Key, err)
	}
	return nil
}

// Get looks up an artifact by key. Returns ErrNotFound if absent.
func (s *Store) Get(key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e Entry
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT key, ir, code, created_at FROM artifacts WHERE key = ?`, key,
	).Scan(&e.Key, &e.IR, &e.Code, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading artifact %s: %w", key, err)
	}

	e.CreatedAt = time.Unix(createdAt, 0)
	return &e, nil
}

// Count returns the number of cached artifacts.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM artifacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting artifacts: %w", err)
	}
	return n, nil
}
