package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/growmind/internal/focus"
	"github.com/hitoshi/growmind/internal/middleware"
	"github.com/hitoshi/growmind/internal/model"
	"github.com/hitoshi/growmind/internal/repository"
)

var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// withUserID はテスト用にコンテキストにユーザーIDを設定するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// manualScheduler はテストから明示的にティックを発火させるfocus.Scheduler。
type manualScheduler struct {
	mu   sync.Mutex
	next focus.Handle
	live map[focus.Handle]func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{live: make(map[focus.Handle]func())}
}

func (s *manualScheduler) Schedule(_ time.Duration, fn func()) focus.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.live[s.next] = fn
	return s.next
}

func (s *manualScheduler) Cancel(h focus.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, h)
}

// FireN は有効な全てのコールバックをn回呼び出す。
func (s *manualScheduler) FireN(n int) {
	for i := 0; i < n; i++ {
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
}

// testEngines はテスト用のfocus.Managerとその依存をまとめたもの。
type testEngines struct {
	manager   *focus.Manager
	scheduler *manualScheduler
	kv        *repository.MemoryKVStore
}

func newTestEngines(t *testing.T) *testEngines {
	t.Helper()

	kv := repository.NewMemoryKVStore()
	sched := newManualScheduler()
	var mu sync.Mutex
	seq := 0
	store := focus.NewProgressStore(kv, discardLogger, nil)
	manager := focus.NewManager(store, focus.Options{
		Scheduler: sched,
		Logger:    discardLogger,
		Clock:     testClock,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("session-%d", seq)
		},
	})
	t.Cleanup(manager.Shutdown)

	return &testEngines{manager: manager, scheduler: sched, kv: kv}
}

// completeSession は1分のセッションを最後まで進める。
func (te *testEngines) completeSession(t *testing.T, userID string) {
	t.Helper()

	e := te.manager.Get(context.Background(), userID)
	e.Reset()
	e.SetDuration(1)
	e.Start()
	te.scheduler.FireN(60)
	if e.State() != focus.StateCompleted {
		t.Fatalf("state = %q, want %q", e.State(), focus.StateCompleted)
	}
}

// --- モック定義 ---

type mockAuthService struct {
	loginFn          func(ctx context.Context, username string) (*model.Session, *model.User, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, username string) (*model.Session, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// mockSessionFinder はRouterテスト用のSessionFinderモック。
type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}
