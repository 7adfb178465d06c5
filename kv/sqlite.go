package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/kv/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single-file SQLite database.
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the embedded
// migrations. Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrUnavailable, err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases are
	// private to the connection that created them.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// NewSQLite wraps an already migrated database.
func NewSQLite(db *sqlx.DB) *SQLite {
	return &SQLite{db: db}
}

// RunMigrations applies every pending migration from the embedded set.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	var value []byte
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *SQLite) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	var (
		res sql.Result
		err error
	)
	switch {
	case prev == nil && next == nil:
		cur, err := s.Get(ctx, key)
		if err != nil {
			return false, err
		}
		return cur == nil, nil
	case prev == nil:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, next, time.Now().Unix())
	case next == nil:
		res, err = s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ? AND value = ?`, key, prev)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE kv SET value = ?, updated_at = ? WHERE key = ? AND value = ?`,
			next, time.Now().Unix(), key, prev)
	}
	if err != nil {
		return false, fmt.Errorf("%w: cas %s: %v", ErrUnavailable, key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: cas %s: %v", ErrUnavailable, key, err)
	}
	return n == 1, nil
}
