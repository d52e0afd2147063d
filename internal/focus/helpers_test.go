package focus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/growmind/internal/model"
	"github.com/hitoshi/growmind/internal/repository"
)

// fakeScheduler はテストから明示的にティックを発火させるScheduler。
type fakeScheduler struct {
	mu       sync.Mutex
	next     Handle
	live     map[Handle]func()
	all      map[Handle]func()
	canceled int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		live: make(map[Handle]func()),
		all:  make(map[Handle]func()),
	}
}

func (s *fakeScheduler) Schedule(_ time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.live[s.next] = fn
	s.all[s.next] = fn
	return s.next
}

func (s *fakeScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[h]; ok {
		delete(s.live, h)
		s.canceled++
	}
}

// Fire は有効な全てのハンドルのコールバックを1回ずつ呼び出す。
func (s *fakeScheduler) Fire() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.live))
	for _, fn := range s.live {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *fakeScheduler) FireN(n int) {
	for i := 0; i < n; i++ {
		s.Fire()
	}
}

// Callback はキャンセル済みを含む任意のハンドルのコールバックを返す。
func (s *fakeScheduler) Callback(h Handle) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all[h]
}

func (s *fakeScheduler) LastHandle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *fakeScheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// recordingObserver はObserverへの通知を記録する。
type recordingObserver struct {
	mu          sync.Mutex
	transitions []string
	ticks       int
	completed   []model.FocusSession
	fallbacks   []string
	engines     []int
}

func (o *recordingObserver) TimerTransition(t string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, t)
}

func (o *recordingObserver) TimerTick() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ticks++
}

func (o *recordingObserver) SessionCompleted(s model.FocusSession) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = append(o.completed, s)
}

func (o *recordingObserver) StorageFallback(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, key)
}

func (o *recordingObserver) ActiveEngines(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.engines = append(o.engines, n)
}

// failingKVStore は全ての操作でエラーを返すKVStore。
type failingKVStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingKVStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errStoreDown
}

func (failingKVStore) PutAll(context.Context, map[string][]byte) error { return errStoreDown }

func (failingKVStore) Delete(context.Context, ...string) error { return errStoreDown }

var _ repository.KVStore = failingKVStore{}

var fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	engine *Engine
	sched  *fakeScheduler
	obs    *recordingObserver
	kv     repository.KVStore
	store  *ProgressStore
}

func newTestEnv(kv repository.KVStore, namespace string) *testEnv {
	sched := newFakeScheduler()
	obs := &recordingObserver{}
	store := NewProgressStore(kv, discardLogger(), obs)

	ids := 0
	engine := NewEngine(context.Background(), store, namespace, Options{
		Scheduler: sched,
		Observer:  obs,
		Logger:    discardLogger(),
		Clock:     func() time.Time { return fixedNow },
		NewID: func() string {
			ids++
			return "session-" + string(rune('0'+ids))
		},
	})

	return &testEnv{engine: engine, sched: sched, obs: obs, kv: kv, store: store}
}
