package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/on-the-ground/effectpipe/effects/log"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"
)

// SQLStore keeps records in a SQLite table. SQLite admits one writer at a
// time; writers queue on a semaphore so a cancelled caller stops waiting.
type SQLStore struct {
	db     *sql.DB
	writer *semaphore.Weighted
	closed atomic.Bool
}

var _ AtomicStore = (*SQLStore)(nil)

// OpenSQLStore opens (or creates) the database at dsn. ":memory:" gives a
// private in-memory database.
func OpenSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store %q: %w", dsn, err)
	}
	if dsn == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		log.Effect(ctx, log.LogWarn, "sqlite store: WAL journal not enabled", map[string]interface{}{
			"dsn":   dsn,
			"error": err.Error(),
		})
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS records (
		key     TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}
	return &SQLStore{db: db, writer: semaphore.NewWeighted(1)}, nil
}

func (s *SQLStore) WriteIfAbsent(ctx context.Context, key string, payload []byte) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.writer.Release(1)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (key, payload) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
		key, payload,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM records WHERE key = ?`, key).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return payload, true, nil
}

// Len counts stored records.
func (s *SQLStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

func (s *SQLStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
