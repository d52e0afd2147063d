package focus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/growmind/internal/model"
	"github.com/hitoshi/growmind/internal/repository"
)

// 永続化する論理キー名。
const (
	KeySessions          = "sessions"
	KeyStreak            = "streak"
	KeyTotalMinutes      = "total-minutes"
	KeyCompletedSessions = "completed-sessions"
)

const keyPrefix = "growmind-"

// LogicalKeys は1ユーザー分の集計値を構成する論理キーの一覧を返す。
func LogicalKeys() []string {
	return []string{KeySessions, KeyStreak, KeyTotalMinutes, KeyCompletedSessions}
}

// StorageKey は論理キー名と名前空間から実際の保存キーを組み立てる。
func StorageKey(name, namespace string) string {
	if namespace == "" {
		return keyPrefix + name
	}
	return keyPrefix + name + "-" + namespace
}

// ProgressStore は集計値をKVStoreに読み書きする。
// 読み込み失敗は既定値に置き換え、呼び出し側にエラーを返さない。
type ProgressStore struct {
	kv       repository.KVStore
	logger   *slog.Logger
	observer Observer
}

// NewProgressStore はProgressStoreを生成する。
func NewProgressStore(kv repository.KVStore, logger *slog.Logger, observer Observer) *ProgressStore {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &ProgressStore{kv: kv, logger: logger, observer: observer}
}

// Load は名前空間の集計値を読み込む。キーが無ければゼロ値を使う。
func (s *ProgressStore) Load(ctx context.Context, namespace string) model.Progress {
	return model.Progress{
		SessionCount:        s.loadCount(ctx, KeySessions, namespace),
		Streak:              s.loadCount(ctx, KeyStreak, namespace),
		TotalFocusedMinutes: s.loadCount(ctx, KeyTotalMinutes, namespace),
		History:             s.loadHistory(ctx, namespace),
	}
}

// Save は4つのキーを1回のPutAllで書き込む。
func (s *ProgressStore) Save(ctx context.Context, namespace string, p model.Progress) error {
	history := p.History
	if history == nil {
		history = []model.FocusSession{}
	}

	entries := make(map[string][]byte, 4)
	for name, v := range map[string]any{
		KeySessions:          p.SessionCount,
		KeyStreak:            p.Streak,
		KeyTotalMinutes:      p.TotalFocusedMinutes,
		KeyCompletedSessions: history,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		entries[StorageKey(name, namespace)] = b
	}

	if err := s.kv.PutAll(ctx, entries); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Delete は名前空間の集計値を全て削除する。退会時のみ使用する。
func (s *ProgressStore) Delete(ctx context.Context, namespace string) error {
	keys := make([]string, 0, 4)
	for _, name := range LogicalKeys() {
		keys = append(keys, StorageKey(name, namespace))
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) loadCount(ctx context.Context, name, namespace string) int {
	var n int
	if !s.read(ctx, name, namespace, &n) {
		return 0
	}
	if n < 0 {
		s.fallback(name, namespace, fmt.Errorf("negative value %d", n))
		return 0
	}
	return n
}

func (s *ProgressStore) loadHistory(ctx context.Context, namespace string) []model.FocusSession {
	var history []model.FocusSession
	if !s.read(ctx, KeyCompletedSessions, namespace, &history) {
		return []model.FocusSession{}
	}
	if history == nil {
		return []model.FocusSession{}
	}
	return history
}

// read は値をdstに読み込む。成功した場合のみtrueを返す。
func (s *ProgressStore) read(ctx context.Context, name, namespace string, dst any) bool {
	key := StorageKey(name, namespace)

	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.fallback(name, namespace, err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.fallback(name, namespace, err)
		return false
	}
	return true
}

func (s *ProgressStore) fallback(name, namespace string, err error) {
	s.logger.Warn("progress value unreadable, using default",
		slog.String("key", StorageKey(name, namespace)),
		slog.String("error", err.Error()),
	)
	s.observer.StorageFallback(name)
}
