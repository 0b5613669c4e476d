package workspacestate

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var sqliteSchema string

// Schema version tracking:
// 1 - workspace_state snapshot table
const sqliteSchemaVersion = 1

const sqliteStateKey = "default"

// SQLiteStateBackend keeps the document as a single row in a local SQLite
// database. It suits hosts where the state directory sits on storage that
// does not handle rename-over well.
type SQLiteStateBackend struct {
	db       *sql.DB
	stateKey string
}

// OpenSQLiteStateBackend creates or opens the database at path, applying
// pragmas and migrations. Safe to call repeatedly on the same path.
func OpenSQLiteStateBackend(path string) (*SQLiteStateBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidInput
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applySQLitePragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySQLiteSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStateBackend{db: db, stateKey: sqliteStateKey}, nil
}

func (b *SQLiteStateBackend) Load(ctx context.Context) (*Document, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}
	var payload string
	err := b.db.QueryRowContext(ctx,
		"SELECT snapshot FROM workspace_state WHERE state_key = ?", b.stateKey,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDocument([]byte(payload))
}

func (b *SQLiteStateBackend) Save(ctx context.Context, doc *Document) error {
	if b == nil || b.db == nil || doc == nil {
		return nil
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO workspace_state (state_key, snapshot, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (state_key)
		DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		b.stateKey, string(payload), formatTimestamp(time.Now()),
	)
	return err
}

func (b *SQLiteStateBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySQLiteSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version >= sqliteSchemaVersion {
		return nil
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
