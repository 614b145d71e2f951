// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/openmined/syftrpc/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS futures (
	id            TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	response_path TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL,
	fingerprint   TEXT NOT NULL,
	resolved      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_futures_fingerprint ON futures(fingerprint);
CREATE INDEX IF NOT EXISTS idx_futures_expires ON futures(expires_at);
`

// Future is one row of the durable future index.
type Future struct {
	ID           ulid.ULID
	URL          string
	ResponsePath string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Fingerprint  string
	Resolved     bool
}

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist. Use ":memory:" for an in-process store (tests only —
	// PoolSize is forced to 1 in that case since each in-memory
	// connection is an independent database).
	Path string

	// PoolSize is the number of pooled connections. Defaults to
	// sqlitepool's own default (max(NumCPU, 4)).
	PoolSize int

	// Logger receives operational messages. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// Store is the durable future index for one app on one datasite.
// Safe for concurrent use.
type Store struct {
	pool *sqlitepool.Pool
}

// Open opens (creating if necessary) the future store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	poolSize := cfg.PoolSize
	if cfg.Path == ":memory:" {
		poolSize = 1
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rpcstore: opening %s: %w", cfg.Path, err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Register inserts a new future record. The id must not already be
// registered.
func (s *Store) Register(ctx context.Context, f Future) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("rpcstore: register: %w", err)
	}
	defer s.pool.Put(conn)

	resolved := 0
	if f.Resolved {
		resolved = 1
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO futures (id, url, response_path, created_at, expires_at, fingerprint, resolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				f.ID.String(),
				f.URL,
				f.ResponsePath,
				f.CreatedAt.UnixMilli(),
				f.ExpiresAt.UnixMilli(),
				f.Fingerprint,
				resolved,
			},
		})
	if err != nil {
		return fmt.Errorf("rpcstore: register %s: %w", f.ID, err)
	}
	return nil
}

// Lookup returns the future record for id, if any.
func (s *Store) Lookup(ctx context.Context, id ulid.ULID) (Future, bool, error) {
	return s.lookupBy(ctx, "id = ?", id.String())
}

// LookupByFingerprint returns the most recently created, still-pending
// future whose fingerprint matches — the cache-hit path for a
// repeated identical send.
func (s *Store) LookupByFingerprint(ctx context.Context, fingerprint string) (Future, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Future{}, false, fmt.Errorf("rpcstore: lookup by fingerprint: %w", err)
	}
	defer s.pool.Put(conn)

	var found Future
	var ok bool
	err = sqlitex.Execute(conn,
		`SELECT id, url, response_path, created_at, expires_at, fingerprint, resolved
		 FROM futures WHERE fingerprint = ? AND resolved = 0
		 ORDER BY created_at DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{fingerprint},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = scanFuture(stmt)
				ok = true
				return nil
			},
		})
	if err != nil {
		return Future{}, false, fmt.Errorf("rpcstore: lookup by fingerprint: %w", err)
	}
	return found, ok, nil
}

func (s *Store) lookupBy(ctx context.Context, where string, args ...any) (Future, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Future{}, false, fmt.Errorf("rpcstore: lookup: %w", err)
	}
	defer s.pool.Put(conn)

	var found Future
	var ok bool
	err = sqlitex.Execute(conn,
		`SELECT id, url, response_path, created_at, expires_at, fingerprint, resolved
		 FROM futures WHERE `+where,
		&sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = scanFuture(stmt)
				ok = true
				return nil
			},
		})
	if err != nil {
		return Future{}, false, fmt.Errorf("rpcstore: lookup: %w", err)
	}
	return found, ok, nil
}

// ListPending returns every future that is neither resolved nor
// expired as of now.
func (s *Store) ListPending(ctx context.Context, now time.Time) ([]Future, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("rpcstore: list pending: %w", err)
	}
	defer s.pool.Put(conn)

	var pending []Future
	err = sqlitex.Execute(conn,
		`SELECT id, url, response_path, created_at, expires_at, fingerprint, resolved
		 FROM futures WHERE resolved = 0 AND expires_at > ?
		 ORDER BY created_at`,
		&sqlitex.ExecOptions{
			Args: []any{now.UnixMilli()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				pending = append(pending, scanFuture(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("rpcstore: list pending: %w", err)
	}
	return pending, nil
}

// MarkResolved flags id as resolved, excluding it from future
// list_pending scans and fingerprint cache hits without removing its
// row (the row still records that the id existed until Drop or
// cleanup removes it).
func (s *Store) MarkResolved(ctx context.Context, id ulid.ULID) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("rpcstore: mark resolved: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE futures SET resolved = 1 WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id.String()}})
	if err != nil {
		return fmt.Errorf("rpcstore: mark resolved %s: %w", id, err)
	}
	return nil
}

// Drop removes id's future record entirely.
func (s *Store) Drop(ctx context.Context, id ulid.ULID) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("rpcstore: drop: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM futures WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id.String()}})
	if err != nil {
		return fmt.Errorf("rpcstore: drop %s: %w", id, err)
	}
	return nil
}

// DropExpiredBefore removes every future whose expiry (plus the
// caller-supplied retention) is before cutoff. Used by the cleanup
// service; returns the number of rows removed.
func (s *Store) DropExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("rpcstore: drop expired: %w", err)
	}
	defer s.pool.Put(conn)

	before := conn.Changes()
	err = sqlitex.Execute(conn, `DELETE FROM futures WHERE expires_at < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff.UnixMilli()}})
	if err != nil {
		return 0, fmt.Errorf("rpcstore: drop expired: %w", err)
	}
	return conn.Changes() - before, nil
}

func scanFuture(stmt *sqlite.Stmt) Future {
	var id ulid.ULID
	if parsed, err := ulid.Parse(stmt.ColumnText(0)); err == nil {
		id = parsed
	}
	return Future{
		ID:           id,
		URL:          stmt.ColumnText(1),
		ResponsePath: stmt.ColumnText(2),
		CreatedAt:    time.UnixMilli(stmt.ColumnInt64(3)).UTC(),
		ExpiresAt:    time.UnixMilli(stmt.ColumnInt64(4)).UTC(),
		Fingerprint:  stmt.ColumnText(5),
		Resolved:     stmt.ColumnInt(6) != 0,
	}
}
