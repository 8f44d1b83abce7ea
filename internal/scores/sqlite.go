// internal/scores/sqlite.go
//
// SQLite-backed Recorder.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Inserting scores and pruning below the top Size in one transaction.

package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/astromatch/assets"
)

// SQLiteStore is a Recorder persisted in a SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	size int
}

// OpenSQLite opens (creating if missing) the database at dsn and migrates it.
func OpenSQLite(dsn string, size int) (*SQLiteStore, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &SQLiteStore{db: db, size: size}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// openDB ensures the parent directory exists and opens the file with WAL
// journaling and a busy timeout.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dsn+sep+"_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// One writer keeps insert+prune serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies embedded migrations in lexical order, each in its own
// transaction, skipping any already recorded in _migrations.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	migrations, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	for _, m := range migrations {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, m.Name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", m.Name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Msg("applied")
	}
	return nil
}

// Record inserts e and prunes rows that fell out of the top Size.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	e.Player = NormalizePlayer(e.Player)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO scores (player, score, flips, elapsed_seconds, pairs, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		e.Player, e.Score, e.Flips, e.ElapsedSeconds, e.Pairs, e.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert score: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        DELETE FROM scores
        WHERE seq NOT IN (
            SELECT seq FROM scores ORDER BY score DESC, seq ASC LIMIT ?
        )`, s.size,
	); err != nil {
		return fmt.Errorf("prune scores: %w", err)
	}
	return tx.Commit()
}

// Top returns up to n entries ordered by score desc, then insertion order.
func (s *SQLiteStore) Top(ctx context.Context, n int) ([]Entry, error) {
	n = clampLimit(n, s.size)
	rows, err := s.db.QueryContext(ctx, `
        SELECT player, score, flips, elapsed_seconds, pairs, created_at
        FROM scores
        ORDER BY score DESC, seq ASC
        LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.Player, &e.Score, &e.Flips, &e.ElapsedSeconds, &e.Pairs, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
