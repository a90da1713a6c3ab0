package library

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// DiskCache persists resolved Members keyed by (logical name, content hash)
// in a local SQLite file, so repeated analyses of a large macro library
// across process restarts don't re-fetch over the library-provider
// transport. It wraps a Provider the same way Cache does, but the backing
// store survives past one process's lifetime. The hlasmcore commands do not
// open one; a caller creates it with OpenDiskCache.
type DiskCache struct {
	provider Provider
	db       *sql.DB
}

// OpenDiskCache opens (creating if necessary) a SQLite database at path and
// returns a DiskCache wrapping provider. The driver is pure Go
// (modernc.org/sqlite), so no cgo toolchain is required to build hlasmcore.
func OpenDiskCache(path string, provider Provider) (*DiskCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS members (
		logical_name TEXT NOT NULL,
		hash TEXT NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (logical_name, hash)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &DiskCache{provider: provider, db: db}, nil
}

func (d *DiskCache) Close() error { return d.db.Close() }

// Fetch satisfies Provider: it first tries the most recently cached text
// for logicalName (any hash), falling back to the wrapped provider on a
// miss and persisting the result.
func (d *DiskCache) Fetch(ctx context.Context, logicalName string) (string, bool, error) {
	row := d.db.QueryRowContext(ctx, `SELECT text FROM members WHERE logical_name = ? ORDER BY rowid DESC LIMIT 1`, logicalName)
	var text string
	switch err := row.Scan(&text); err {
	case nil:
		return text, true, nil
	case sql.ErrNoRows:
		// fall through to provider
	default:
		return "", false, err
	}

	text, found, err := d.provider.Fetch(ctx, logicalName)
	if err != nil || !found {
		return "", found, err
	}
	hash := contentHash(text)
	_, _ = d.db.ExecContext(ctx, `INSERT OR REPLACE INTO members(logical_name, hash, text) VALUES (?, ?, ?)`, logicalName, hash, text)
	return text, true, nil
}
