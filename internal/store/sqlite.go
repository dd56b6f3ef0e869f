package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dkeller9/capver/internal/config"
	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/version"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// SQLiteStore keeps one document row per capsule history plus a
// content-addressed blobs table. Saves run inside a transaction, so a crash
// mid-write cannot leave a partial document.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite initializes the SQLite database at baseDir/capver.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.capver.
func OpenSQLite(baseDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "capver.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return &SQLiteStore{db: db}, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func (s *SQLiteStore) ConfigurePool(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		s.db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		s.db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// DB exposes the underlying handle for tests.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, capsuleID string) (*version.History, error) {
	if capsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}

	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM histories WHERE capsule_id = ?`, capsuleID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("capsule", capsuleID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	h := &version.History{}
	if err := json.Unmarshal([]byte(doc), h); err != nil {
		return nil, errors.NewCorruptHistory(capsuleID, err)
	}
	if err := h.Validate(); err != nil {
		return nil, errors.NewCorruptHistory(capsuleID, err)
	}
	return h, nil
}

// Save implements Store. The upsert is a single statement, atomic under
// SQLite's transactional guarantees.
func (s *SQLiteStore) Save(ctx context.Context, h *version.History) error {
	if h.CapsuleID == "" {
		return errors.NewInvalidRequest("capsule_id is required")
	}

	doc, err := json.Marshal(h)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO histories (capsule_id, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(capsule_id) DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`, h.CapsuleID, string(doc), time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT capsule_id FROM histories ORDER BY capsule_id`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ids, nil
}

// PutBlob implements Store. INSERT OR IGNORE gives content-addressed
// deduplication for free.
func (s *SQLiteStore) PutBlob(ctx context.Context, hash string, content []byte) error {
	if hash == "" {
		return errors.NewInvalidRequest("blob hash is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blobs (hash, content, created_at)
		VALUES (?, ?, ?)
	`, hash, content, time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetBlob implements Store.
func (s *SQLiteStore) GetBlob(ctx context.Context, hash string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM blobs WHERE hash = ?`, hash,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("blob", hash)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return content, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	schemaVersion, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if schemaVersion < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS histories (
		  capsule_id  TEXT PRIMARY KEY,
		  doc         TEXT NOT NULL,
		  updated_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS blobs (
		  hash        TEXT PRIMARY KEY,
		  content     BLOB NOT NULL,
		  created_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_histories_updated
		ON histories(updated_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
