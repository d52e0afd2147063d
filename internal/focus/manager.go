package focus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager はユーザーIDごとのEngineを保持する。Engineは初回アクセス時に生成し、
// ユーザーIDをそのまま保存先の名前空間として使う。
type Manager struct {
	mu         sync.Mutex
	engines    map[string]*Engine
	lastAccess map[string]time.Time
	store      *ProgressStore
	opts       Options

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager はManagerを生成する。
func NewManager(store *ProgressStore, opts Options) *Manager {
	return &Manager{
		engines:    make(map[string]*Engine),
		lastAccess: make(map[string]time.Time),
		store:      store,
		opts:       opts.withDefaults(),
		stopCh:     make(chan struct{}),
	}
}

// Get はユーザーのEngineを返す。無ければ集計値を読み込んで生成する。
func (m *Manager) Get(ctx context.Context, userID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastAccess[userID] = m.opts.Clock()
	if e, ok := m.engines[userID]; ok {
		return e
	}
	e := NewEngine(ctx, m.store, userID, m.opts)
	m.engines[userID] = e
	m.opts.Observer.ActiveEngines(len(m.engines))
	return e
}

// Evict はユーザーのEngineのタイマーを止めて破棄する。
func (m *Manager) Evict(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.engines[userID]; ok {
		e.Close()
		m.remove(userID)
		m.opts.Observer.ActiveEngines(len(m.engines))
	}
}

// EvictIdle は実行中でなく、最後のGetからttlを超えたEngineを破棄する。
// 一時停止中の残り時間は失われる。破棄した数を返す。
func (m *Manager) EvictIdle(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Clock()
	evicted := 0
	for id, e := range m.engines {
		if now.Sub(m.lastAccess[id]) <= ttl || e.State() == StateRunning {
			continue
		}
		e.Close()
		m.remove(id)
		evicted++
	}
	if evicted > 0 {
		m.opts.Observer.ActiveEngines(len(m.engines))
		m.opts.Logger.Info("idle focus engines evicted",
			slog.Int("evicted", evicted),
			slog.Int("active", len(m.engines)),
		)
	}
	return evicted
}

// StartIdleEviction はintervalごとにEvictIdle(ttl)を実行するgoroutineを開始する。
// Shutdownで停止する。
func (m *Manager) StartIdleEviction(interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.EvictIdle(ttl)
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Shutdown は全てのEngineのタイマーを止める。複数回呼んでもよい。
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stopCh) })

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.engines {
		e.Close()
		m.remove(id)
	}
	m.opts.Observer.ActiveEngines(0)
}

// ActiveCount は保持しているEngineの数を返す。
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

func (m *Manager) remove(userID string) {
	delete(m.engines, userID)
	delete(m.lastAccess, userID)
}
