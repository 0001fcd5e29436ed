package respcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteStore persists entries in a WAL-mode SQLite database so they survive restarts
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens or creates the cache database at path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// OpenStore opens the SQLite store at path and falls back to an empty store
// when the file cannot be used. A corrupt file is moved aside as path+".corrupt"
// and a fresh database is tried once before settling on memory.
func OpenStore(path string, memorySize int, logger zerolog.Logger) Store {
	store, err := OpenSQLiteStore(path)
	if err == nil {
		return store
	}

	logger.Warn().Err(err).Str("path", path).Msg("Response cache unreadable, starting empty")

	if _, statErr := os.Stat(path); statErr == nil {
		if renameErr := os.Rename(path, path+".corrupt"); renameErr == nil {
			os.Remove(path + "-wal")
			os.Remove(path + "-shm")
			if store, err = OpenSQLiteStore(path); err == nil {
				return store
			}
		}
	}

	logger.Warn().Err(err).Msg("Falling back to in-memory response cache")
	mem, _ := NewMemoryStore(memorySize)
	return mem
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			response TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_responses_created ON responses(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	var response string
	var created int64
	err := s.db.QueryRowContext(ctx,
		"SELECT response, created_at FROM responses WHERE key = ?", key,
	).Scan(&response, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to load cache entry: %w", err)
	}
	return Entry{Response: response, CreatedAt: time.Unix(0, created)}, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (key, response, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET response = excluded.response, created_at = excluded.created_at
	`, key, entry.Response, entry.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE created_at <= ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM responses").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Path returns the database file location
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
