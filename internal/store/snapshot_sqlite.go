package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"canvas-cli/internal/model"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const (
	snapshotDBFileName = "canvas.sqlite"
	lockFileName       = "canvas.lock"

	defaultKeepSnapshots = 50
)

var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

var ErrLocked = errors.New("canvas store is locked by another process")

// Store caches document snapshots in a per-directory SQLite db. It is the
// last-known-good source when the live document is empty, and the hand-off
// between one-shot CLI invocations.
type Store struct {
	Dir string

	// Keep bounds how many snapshots are retained (0 = default).
	Keep int
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) sqlitePath() string {
	return filepath.Join(s.Dir, snapshotDBFileName)
}

func (s Store) dsn() string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return s.sqlitePath() + "?" + q.Encode()
}

func (s Store) keep() int {
	if s.Keep > 0 {
		return s.Keep
	}
	return defaultKeepSnapshots
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite". DSN pragmas run on every
	// pooled connection in order; busy_timeout must precede journal_mode so
	// a concurrent open waits instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrateSnapshots(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSnapshots(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			json TEXT NOT NULL,
			populated INTEGER NOT NULL,
			last_action TEXT NOT NULL DEFAULT '',
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS snapshots_populated ON snapshots(populated, seq);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Save appends doc as the newest snapshot and prunes old ones.
func (s Store) Save(ctx context.Context, doc model.Document) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	nowMs := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots(json, populated, last_action, created_at_unixms) VALUES(?, ?, ?, ?)`,
		string(raw), boolToInt(doc.IsPopulated()), strings.TrimSpace(doc.LastAction), nowMs); err != nil {
		return err
	}
	// Always keep the newest populated snapshot, even when it falls outside the window.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE seq NOT IN (SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?)
		  AND seq <> COALESCE((SELECT MAX(seq) FROM snapshots WHERE populated = 1), -1)`, s.keep()); err != nil {
		return err
	}
	return tx.Commit()
}

// Latest returns the newest snapshot. ok is false when nothing was saved yet.
func (s Store) Latest(ctx context.Context) (model.Document, bool, error) {
	return s.readOne(ctx, `SELECT json FROM snapshots ORDER BY seq DESC LIMIT 1`)
}

// LatestPopulated returns the newest snapshot that carries user content.
func (s Store) LatestPopulated(ctx context.Context) (model.Document, bool, error) {
	return s.readOne(ctx, `SELECT json FROM snapshots WHERE populated = 1 ORDER BY seq DESC LIMIT 1`)
}

func (s Store) readOne(ctx context.Context, query string) (model.Document, bool, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Document{}, false, err
	}
	defer db.Close()

	var raw string
	if err := db.QueryRowContext(ctx, query).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.EmptyDocument(), false, nil
		}
		return model.Document{}, false, err
	}
	var doc model.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return model.Document{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Items == nil {
		doc.Items = []model.Item{}
	}
	return doc, true, nil
}

// Count returns how many snapshots are retained.
func (s Store) Count(ctx context.Context) (int, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n)
	return n, err
}

// Lock takes the cross-process writer lock for this directory. Callers must
// call the returned release func.
func (s Store) Lock(ctx context.Context) (func(), error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(s.Dir, lockFileName))
	ok, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrLocked
		}
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() { _ = fl.Unlock() }, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
