package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteKVStore はSQLite（modernc.org/sqlite）を使用したキーバリューストア。
// ローカルモードでブラウザのlocalStorage相当の役割を担う。
type SQLiteKVStore struct {
	db *sql.DB
}

// NewSQLiteKVStore はSQLiteKVStoreを生成する。
// dbはdatabase.OpenSQLiteで開いたものを渡すこと。
func NewSQLiteKVStore(db *sql.DB) *SQLiteKVStore {
	return &SQLiteKVStore{db: db}
}

// Get はキーの値を返す。キーが存在しない場合はfound=falseを返す。
func (s *SQLiteKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = ?`,
		key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get kv entry %q: %w", key, err)
	}

	return []byte(value), true, nil
}

// PutAll は複数のキーを1トランザクションでUPSERTする。
func (s *SQLiteKVStore) PutAll(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, key := range sortedKeys(entries) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv_entries (key, value, updated_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (key) DO UPDATE
			 SET value = excluded.value, updated_at = excluded.updated_at`,
			key, string(entries[key]), now,
		)
		if err != nil {
			return fmt.Errorf("failed to put kv entry %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete は指定キーを削除する。存在しないキーは無視する。
func (s *SQLiteKVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete kv entry %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ KVStore = (*SQLiteKVStore)(nil)
