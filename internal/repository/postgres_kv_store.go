package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
)

// PostgresKVStore はPostgreSQLのkv_entriesテーブルを使用したキーバリューストア。
type PostgresKVStore struct {
	db *sql.DB
}

// NewPostgresKVStore はPostgresKVStoreを生成する。
func NewPostgresKVStore(db *sql.DB) *PostgresKVStore {
	return &PostgresKVStore{db: db}
}

// Get はキーの値を返す。キーが存在しない場合はfound=falseを返す。
func (s *PostgresKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = $1`,
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
// デッドロックを避けるため、キーはソート順に書き込む。
func (s *PostgresKVStore) PutAll(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, key := range sortedKeys(entries) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv_entries (key, value, updated_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (key) DO UPDATE
			 SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
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
func (s *PostgresKVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE key = ANY($1)`,
		pq.Array(keys),
	)
	if err != nil {
		return fmt.Errorf("failed to delete kv entries: %w", err)
	}
	return nil
}

// sortedKeys はマップのキーを昇順に並べて返す。
func sortedKeys(entries map[string][]byte) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compile-time interface check
var _ KVStore = (*PostgresKVStore)(nil)
