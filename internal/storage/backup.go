package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/smarttransit/internal/common"
)

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrBackupExists    = errors.New("backup already exists")
	ErrInvalidBackupID = errors.New("invalid backup id")
)

// BackupInfo describes a stored backup of the local collections.
type BackupInfo struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Keys          []string  `json:"keys"`
	FileSize      int64     `json:"file_size"`
	SchemaVersion int       `json:"schema_version"`
}

// BackupManager snapshots the key/value database next to it, in a
// "backups" directory.
type BackupManager struct {
	kv  *SQLiteKV
	now func() time.Time
	dir string
}

// NewBackupManager creates the backups directory for kv.
func NewBackupManager(kv *SQLiteKV) (*BackupManager, error) {
	if kv.dbPath == ":memory:" {
		return nil, errors.New("cannot back up an in-memory database")
	}

	dir := filepath.Join(filepath.Dir(kv.dbPath), "backups")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	return &BackupManager{kv: kv, dir: dir, now: time.Now}, nil
}

// Create writes a consistent copy of the database. An empty id is
// generated from the current time.
func (bm *BackupManager) Create(ctx context.Context, id string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		id = "backup-" + bm.now().Format("2006-01-02-150405")
	}
	if err := validateBackupID(id); err != nil {
		return nil, err
	}

	dbPath := bm.path(id)
	if _, err := os.Stat(dbPath); err == nil {
		return nil, ErrBackupExists
	}

	var schemaVersion int
	if err := bm.kv.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	keys, err := listKeys(ctx, bm.kv.db)
	if err != nil {
		return nil, err
	}

	if _, err := bm.kv.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	if _, err := bm.kv.db.ExecContext(ctx, "VACUUM INTO ?", dbPath); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	info := BackupInfo{
		ID:            id,
		CreatedAt:     bm.now(),
		Keys:          keys,
		FileSize:      stat.Size(),
		SchemaVersion: schemaVersion,
	}
	if err := bm.saveInfo(info); err != nil {
		if rmErr := os.Remove(dbPath); rmErr != nil {
			slog.Error("Failed to remove backup after metadata failure", "error", rmErr)
		}
		return nil, err
	}

	slog.Info("Created backup", "id", id, "keys", len(keys), "size", info.FileSize)
	return &info, nil
}

// List returns all backups, newest first. Unreadable metadata is skipped.
func (bm *BackupManager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := bm.loadInfo(strings.TrimSuffix(entry.Name(), ".meta.json"))
		if err != nil {
			slog.Debug("Skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, *info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Restore replaces every key of the live database with the backup's
// contents. Stores opened before the restore keep their cached lists and
// must be reopened.
func (bm *BackupManager) Restore(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBackupID(id); err != nil {
		return err
	}
	if _, err := os.Stat(bm.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}

	src, err := sql.Open("sqlite3", bm.path(id)+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			slog.Error("Failed to close backup database", "error", closeErr)
		}
	}()

	var result string
	if err := src.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil || result != "ok" {
		return ErrBackupCorrupted
	}

	rows, err := src.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	values := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan backup row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	tx, err := bm.kv.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear database: %w", err)
	}
	now := bm.now().UTC()
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)`, key, value, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to restore key %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit restore: %w", err)
	}

	slog.Info("Restored backup", "id", id, "keys", len(values))
	return nil
}

// Delete removes a backup and its metadata.
func (bm *BackupManager) Delete(id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}
	if err := os.Remove(bm.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	if err := os.Remove(bm.metaPath(id)); err != nil && !os.IsNotExist(err) {
		slog.Debug("Failed to remove backup metadata", "id", id, "error", err)
	}
	return nil
}

func (bm *BackupManager) path(id string) string {
	return filepath.Join(bm.dir, id+".db")
}

func (bm *BackupManager) metaPath(id string) string {
	return filepath.Join(bm.dir, id+".meta.json")
}

func (bm *BackupManager) saveInfo(info BackupInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	tmp := bm.metaPath(info.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}
	return os.Rename(tmp, bm.metaPath(info.ID))
}

func (bm *BackupManager) loadInfo(id string) (*BackupInfo, error) {
	data, err := os.ReadFile(bm.metaPath(id)) // #nosec G304 -- id is validated
	if err != nil {
		return nil, err
	}
	var info BackupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedState, err)
	}
	return &info, nil
}

func listKeys(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func validateBackupID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidBackupID, id)
	}
	return nil
}
