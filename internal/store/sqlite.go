package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raysh454/phishlens/internal/logging"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteKV stores values in a single kv table.
type SQLiteKV struct {
	db     *sql.DB
	logger logging.Logger
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger logging.Logger) (*SQLiteKV, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure dir %s: %w", dir, err)
		}
	}
	// busy_timeout in the DSN applies to every connection the pool opens.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps WAL contention out of the picture.
	db.SetMaxOpenConns(1)
	kv, err := NewSQLiteKV(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

// NewSQLiteKV applies pragmas and the schema to db.
func NewSQLiteKV(db *sql.DB, logger logging.Logger) (*SQLiteKV, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &SQLiteKV{db: db, logger: logger.With(logging.Field{Key: "component", Value: "sqlite-store"})}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return v, nil
}

const upsertSQL = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, upsertSQL, key, value, time.Now().UnixMilli())
	if err != nil {
		s.logger.Warn("sqlite set failed",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err})
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// Update runs fn inside a BEGIN IMMEDIATE transaction. The write lock is
// taken before the read, so writers in other processes queue on
// busy_timeout instead of overwriting each other.
func (s *SQLiteKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("sqlite update %s: %w", key, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("sqlite update %s: begin: %w", key, err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	var cur []byte
	err = conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&cur)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite update %s: read: %w", key, err)
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, upsertSQL, key, next, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("sqlite update %s: write: %w", key, err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		s.logger.Warn("sqlite commit failed",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err})
		return fmt.Errorf("sqlite update %s: commit: %w", key, err)
	}
	committed = true
	return nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
