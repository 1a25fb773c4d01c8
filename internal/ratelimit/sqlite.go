package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HendryAvila/taskpilot/internal/storage"
)

// SQLiteStore keeps the hit log in a SQLite file. TryAdd runs inside an
// immediate transaction, so processes sharing the file serialise on it.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) ratelimit.db under dataDir.
func OpenSQLiteStore(dataDir string) (*SQLiteStore, error) {
	db, err := storage.Open(dataDir, "ratelimit.db")
	if err != nil {
		return nil, fmt.Errorf("ratelimit: %w", err)
	}
	if err := storage.Migrate(db, `
		CREATE TABLE IF NOT EXISTS rate_hits (
			id  INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT    NOT NULL,
			at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_rate_hits_key_at ON rate_hits(key, at);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ratelimit: %w", err)
	}
	// One connection per process; other processes contend through the file lock.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Count(ctx context.Context, key string, since time.Time) (int, time.Time, error) {
	return countHits(ctx, s.db, key, since)
}

func (s *SQLiteStore) Add(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO rate_hits (key, at) VALUES (?, ?)`, key, at.UnixNano())
	return err
}

func (s *SQLiteStore) TryAdd(ctx context.Context, key string, now, since time.Time, limit int) (count int, oldest time.Time, added bool, err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, time.Time{}, false, err
	}
	defer func() { _ = conn.Close() }()

	// database/sql cannot request BEGIN IMMEDIATE, so the transaction is
	// driven by hand on a pinned connection.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return 0, time.Time{}, false, err
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	if _, err = conn.ExecContext(ctx, `DELETE FROM rate_hits WHERE key = ? AND at <= ?`, key, since.UnixNano()); err != nil {
		return 0, time.Time{}, false, err
	}
	count, oldest, err = countHits(ctx, conn, key, since)
	if err != nil {
		return 0, time.Time{}, false, err
	}
	if count < limit {
		if _, err = conn.ExecContext(ctx, `INSERT INTO rate_hits (key, at) VALUES (?, ?)`, key, now.UnixNano()); err != nil {
			return 0, time.Time{}, false, err
		}
		added = true
		if oldest.IsZero() {
			oldest = now
		}
	}
	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return 0, time.Time{}, false, err
	}
	return count, oldest, added, nil
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func countHits(ctx context.Context, q rowQueryer, key string, since time.Time) (int, time.Time, error) {
	var (
		n      int
		oldest sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(at) FROM rate_hits WHERE key = ? AND at > ?`, key, since.UnixNano(),
	).Scan(&n, &oldest)
	if err != nil {
		return 0, time.Time{}, err
	}
	if !oldest.Valid {
		return n, time.Time{}, nil
	}
	return n, time.Unix(0, oldest.Int64), nil
}
