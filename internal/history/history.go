// Package history persists a record of everything the pipeline has
// published so later runs can refuse to repeat the same story.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"autopress/internal/core"
	"autopress/internal/textutil"
)

// MaxEntries caps the table so the database never grows without bound.
const MaxEntries = 500

// DefaultRetention is how long entries survive before Append ages
// them out.
const DefaultRetention = 30 * 24 * time.Hour

// Store is the SQLite-backed publication history.
type Store struct {
	db        *sql.DB
	path      string
	retention time.Duration

	mu     sync.Mutex
	cache  []core.HistoryEntry
	cached bool
}

// NewStore opens (creating if needed) the history database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "autopress.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath, retention: DefaultRetention}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	table := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		title_key TEXT NOT NULL,
		topic_key TEXT,
		topic_tokens TEXT,
		source_url TEXT,
		created_at DATETIME NOT NULL
	);`
	if _, err := s.db.Exec(table); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	index := `CREATE INDEX IF NOT EXISTS idx_history_created_at ON history (created_at);`
	if _, err := s.db.Exec(index); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// SetRetention overrides how long Append keeps old entries. Zero or
// negative disables the age prune on writes.
func (s *Store) SetRetention(d time.Duration) {
	s.retention = d
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewEntry builds a history entry for a published article.
func NewEntry(title, sourceURL string, now time.Time) core.HistoryEntry {
	return core.HistoryEntry{
		ID:          uuid.New().String(),
		TitleKey:    textutil.Normalize(title),
		TopicKey:    textutil.BuildTopicKey(title, textutil.DefaultTopicTokens),
		TopicTokens: textutil.TopicTokens(title, textutil.DefaultTopicTokens),
		SourceURL:   sourceURL,
		CreatedAt:   now.UTC(),
	}
}

// Append records a published article, then prunes entries beyond the
// retention age and the entry cap.
func (s *Store) Append(entry core.HistoryEntry) error {
	tokens, err := json.Marshal(entry.TopicTokens)
	if err != nil {
		return fmt.Errorf("failed to encode topic tokens: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO history
	(id, title_key, topic_key, topic_tokens, source_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query,
		entry.ID,
		entry.TitleKey,
		entry.TopicKey,
		string(tokens),
		entry.SourceURL,
		entry.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	if s.retention > 0 {
		cutoff := entry.CreatedAt.UTC().Add(-s.retention)
		if _, err := s.db.Exec(`DELETE FROM history WHERE created_at <= ?`, cutoff); err != nil {
			return fmt.Errorf("failed to age out history: %w", err)
		}
	}
	if err := s.enforceCap(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cached = false
	s.cache = nil
	s.mu.Unlock()
	return nil
}

// enforceCap keeps at most MaxEntries rows, dropping the oldest first.
func (s *Store) enforceCap() error {
	query := `
	DELETE FROM history WHERE id NOT IN (
		SELECT id FROM history ORDER BY created_at DESC LIMIT ?
	)`
	if _, err := s.db.Exec(query, MaxEntries); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// Recent returns every entry created within the window, newest first.
// Results are cached until the next write.
func (s *Store) Recent(window time.Duration, now time.Time) ([]core.HistoryEntry, error) {
	entries, err := s.all()
	if err != nil {
		return nil, err
	}
	cutoff := now.UTC().Add(-window)
	recent := make([]core.HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.CreatedAt.After(cutoff) {
			recent = append(recent, entry)
		}
	}
	return recent, nil
}

// All returns every retained entry, newest first.
func (s *Store) All() ([]core.HistoryEntry, error) {
	return s.all()
}

func (s *Store) all() ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached {
		return s.cache, nil
	}

	query := `
	SELECT id, title_key, topic_key, topic_tokens, source_url, created_at
	FROM history ORDER BY created_at DESC`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []core.HistoryEntry
	for rows.Next() {
		var entry core.HistoryEntry
		var tokensJSON string
		if err := rows.Scan(
			&entry.ID,
			&entry.TitleKey,
			&entry.TopicKey,
			&tokensJSON,
			&entry.SourceURL,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if tokensJSON != "" {
			if err := json.Unmarshal([]byte(tokensJSON), &entry.TopicTokens); err != nil {
				return nil, fmt.Errorf("failed to decode topic tokens: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	s.cache = entries
	s.cached = true
	return entries, nil
}

// Prune removes entries older than maxAge and re-applies the entry cap.
// It returns the number of rows deleted.
func (s *Store) Prune(maxAge time.Duration, now time.Time) (int, error) {
	cutoff := now.UTC().Add(-maxAge)
	result, err := s.db.Exec(`DELETE FROM history WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	removed, _ := result.RowsAffected()

	if err := s.enforceCap(); err != nil {
		return int(removed), err
	}

	s.mu.Lock()
	s.cached = false
	s.cache = nil
	s.mu.Unlock()
	return int(removed), nil
}

// Stats summarizes the stored history.
type Stats struct {
	Total  int
	Oldest time.Time
	Newest time.Time
}

// Stats reports how many entries exist and the age range they span.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	row := s.db.QueryRow(`SELECT COUNT(*) FROM history`)
	if err := row.Scan(&stats.Total); err != nil {
		return Stats{}, fmt.Errorf("failed to count history: %w", err)
	}
	if stats.Total == 0 {
		return stats, nil
	}
	row = s.db.QueryRow(`SELECT created_at FROM history ORDER BY created_at ASC LIMIT 1`)
	if err := row.Scan(&stats.Oldest); err != nil {
		return Stats{}, fmt.Errorf("failed to read oldest entry: %w", err)
	}
	row = s.db.QueryRow(`SELECT created_at FROM history ORDER BY created_at DESC LIMIT 1`)
	if err := row.Scan(&stats.Newest); err != nil {
		return Stats{}, fmt.Errorf("failed to read newest entry: %w", err)
	}
	return stats, nil
}
