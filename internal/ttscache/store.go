// Package ttscache remembers synthesized narration so unchanged captions are
// not sent to a speech backend twice.
package ttscache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ivlev/quickcut/internal/tts"
)

// Entry is one cached narration.
type Entry struct {
	Key       string
	AudioPath string
	Duration  float64
	Backend   string
	CreatedAt time.Time
}

// Store is a SQLite index over audio files kept in Dir.
type Store struct {
	db  *sql.DB
	Dir string
}

// Open creates dir if needed and opens the index inside it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "narration.db"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS narrations (
        cache_key TEXT PRIMARY KEY,
        audio_file TEXT NOT NULL,
        duration REAL NOT NULL,
        backend TEXT NOT NULL,
        created_at TEXT NOT NULL
    )`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, Dir: dir}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key identifies a request for a given backend.
func Key(backend string, req tts.Request) string {
	h := sha256.New()
	for _, part := range []string{backend, req.Language, req.Voice, strconv.FormatFloat(req.Speed, 'f', -1, 64), req.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the entry for key. A row whose audio file has disappeared
// counts as a miss.
func (s *Store) Lookup(ctx context.Context, key string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT audio_file, duration, backend, created_at FROM narrations WHERE cache_key = ?`, key)

	var (
		file    string
		created string
		e       = Entry{Key: key}
	)
	if err := row.Scan(&file, &e.Duration, &e.Backend, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup narration: %w", err)
	}
	e.AudioPath = filepath.Join(s.Dir, file)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)

	if _, err := os.Stat(e.AudioPath); err != nil {
		return nil, false, nil
	}
	return &e, true, nil
}

// Put copies audioPath into the cache directory and records it under key.
func (s *Store) Put(ctx context.Context, key, backend, audioPath string, duration float64) (*Entry, error) {
	file := key + filepath.Ext(audioPath)
	dst := filepath.Join(s.Dir, file)
	if err := copyFile(audioPath, dst); err != nil {
		return nil, fmt.Errorf("store narration audio: %w", err)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO narrations (cache_key, audio_file, duration, backend, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(cache_key) DO UPDATE SET
            audio_file = excluded.audio_file,
            duration = excluded.duration,
            backend = excluded.backend,
            created_at = excluded.created_at`,
		key, file, duration, backend, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert narration: %w", err)
	}
	return &Entry{Key: key, AudioPath: dst, Duration: duration, Backend: backend, CreatedAt: now}, nil
}

// Count returns the number of cached narrations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM narrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count narrations: %w", err)
	}
	return n, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
