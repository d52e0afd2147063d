package repository

import (
	"context"
	"sync"
)

// MemoryKVStore はプロセス内メモリのキーバリューストア。
// テストや永続化不要な一時利用を想定している。
type MemoryKVStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryKVStore は空のMemoryKVStoreを生成する。
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{entries: make(map[string][]byte)}
}

// Get はキーの値のコピーを返す。
func (s *MemoryKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// PutAll はロックを保持したまま全キーを書き込む。
func (s *MemoryKVStore) PutAll(ctx context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.entries[k] = append([]byte(nil), v...)
	}
	return nil
}

// Delete は指定キーを削除する。
func (s *MemoryKVStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// Len は保持しているキーの数を返す。
func (s *MemoryKVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// compile-time interface check
var _ KVStore = (*MemoryKVStore)(nil)
