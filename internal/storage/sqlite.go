// Package storage opens the SQLite databases behind the conversation log,
// the workspace domain and the shared rate window.
package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is swapped in tests.
var timeNow = time.Now

// Pragmas applied to every pooled connection through the DSN, so that
// foreign keys and the busy timeout hold on all of them, not only the first.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// Open creates dataDir if needed and opens dataDir/file with the standard
// pragmas. The returned handle has been pinged.
func Open(dataDir, file string) (*sql.DB, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("storage: data dir is required")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}

	db, err := openDB("sqlite", DSN(filepath.Join(dataDir, file)))
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", file, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: open %s: %w", file, err)
	}
	return db, nil
}

// DSN builds the modernc connection string for path.
func DSN(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Migrate runs each statement block in order. Blocks must be idempotent.
func Migrate(db *sql.DB, blocks ...string) error {
	for i, b := range blocks {
		if _, err := db.Exec(b); err != nil {
			return fmt.Errorf("storage: migration %d: %w", i, err)
		}
	}
	return nil
}

// Now returns the current UTC time in the format stored in TEXT columns.
func Now() string {
	return timeNow().UTC().Format(time.RFC3339)
}

// NullableString maps "" to NULL.
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NullableInt maps 0 to NULL.
func NullableInt(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
