// Package focus はフォーカスタイマーの状態機械と、完了セッションの集計・永続化を扱う。
package focus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/growmind/internal/model"
)

// State はタイマーの状態。
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// DefaultDurationMinutes はタイマーの既定の長さ（分）。
const DefaultDurationMinutes = 25

// MaxDurationMinutes はタイマーに設定できる最大の長さ（分）。
const MaxDurationMinutes = 24 * 60

// Options はEngineの依存関係と設定値。ゼロ値の項目には既定値が使われる。
type Options struct {
	Scheduler              Scheduler
	Observer               Observer
	Logger                 *slog.Logger
	Clock                  func() time.Time
	NewID                  func() string
	TickInterval           time.Duration
	StorageTimeout         time.Duration
	DefaultDurationMinutes int
}

func (o Options) withDefaults() Options {
	if o.Scheduler == nil {
		o.Scheduler = NewTickerScheduler()
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
	if o.DefaultDurationMinutes < 1 || o.DefaultDurationMinutes > MaxDurationMinutes {
		o.DefaultDurationMinutes = DefaultDurationMinutes
	}
	return o
}

// Snapshot はある時点のタイマー状態。
type Snapshot struct {
	State            State   `json:"state"`
	DurationMinutes  int     `json:"durationMinutes"`
	RemainingSeconds int     `json:"remainingSeconds"`
	Formatted        string  `json:"formatted"`
	Running          bool    `json:"running"`
	JustCompleted    bool    `json:"justCompleted"`
	ProgressPercent  float64 `json:"progressPercent"`
	GrowthPercent    float64 `json:"growthPercent"`
}

// Engine は1ユーザー分のフォーカスタイマー。
// 前提条件を満たさない操作は何もせずに戻る。全てのメソッドは並行に呼び出してよい。
type Engine struct {
	mu   sync.Mutex
	opts Options

	store     *ProgressStore
	namespace string

	durationMinutes  int
	remainingSeconds int
	running          bool
	justCompleted    bool
	progress         model.Progress

	// handleは実行中のみ有効。generationは停止のたびに進め、
	// 停止前に発火済みだったティックを無視するために使う。
	handle     Handle
	hasHandle  bool
	generation uint64
}

// NewEngine はnamespaceの集計値を読み込んだEngineを生成する。
func NewEngine(ctx context.Context, store *ProgressStore, namespace string, opts Options) *Engine {
	opts = opts.withDefaults()

	e := &Engine{
		opts:            opts,
		store:           store,
		namespace:       namespace,
		durationMinutes: opts.DefaultDurationMinutes,
	}
	e.remainingSeconds = e.durationMinutes * 60
	e.progress = e.load(ctx, namespace)
	return e
}

// Namespace は現在の保存先の名前空間を返す。
func (e *Engine) Namespace() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.namespace
}

// SetDuration はタイマーの長さを変更する。実行中は何もしない。
// 1未満は1に、MaxDurationMinutesを超える値はMaxDurationMinutesに補正する。
func (e *Engine) SetDuration(minutes int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	if minutes < 1 {
		minutes = 1
	}
	if minutes > MaxDurationMinutes {
		minutes = MaxDurationMinutes
	}
	e.durationMinutes = minutes
	e.remainingSeconds = minutes * 60
	e.justCompleted = false
}

// Start はカウントダウンを開始する。実行中または残り時間が0の場合は何もしない。
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running || e.remainingSeconds <= 0 {
		return
	}
	e.running = true
	e.justCompleted = false
	e.startTicking()
	e.opts.Observer.TimerTransition(TransitionStart)
}

// Pause はカウントダウンを一時停止する。残り時間はそのまま保持する。
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.stopTicking()
	e.running = false
	e.opts.Observer.TimerTransition(TransitionPause)
}

// Reset はどの状態からでもIdleに戻す。
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTicking()
	e.running = false
	e.justCompleted = false
	e.remainingSeconds = e.durationMinutes * 60
	e.opts.Observer.TimerTransition(TransitionReset)
}

// SwitchUser は別の名前空間に切り替える。タイマーを停止してIdleに戻し、
// メモリ上の集計値を破棄して新しい名前空間から読み込み直す。
func (e *Engine) SwitchUser(ctx context.Context, namespace string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTicking()
	e.running = false
	e.justCompleted = false
	e.remainingSeconds = e.durationMinutes * 60
	e.namespace = namespace
	e.progress = e.load(ctx, namespace)
	e.opts.Observer.TimerTransition(TransitionSwitchUser)

	e.opts.Logger.Info("focus namespace switched", slog.String("namespace", namespace))
}

// Close はタイマーを停止する。集計値には触れない。
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTicking()
	e.running = false
}

// Snapshot は現在のタイマー状態を返す。
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		State:            e.state(),
		DurationMinutes:  e.durationMinutes,
		RemainingSeconds: e.remainingSeconds,
		Formatted:        FormatTime(e.remainingSeconds),
		Running:          e.running,
		JustCompleted:    e.justCompleted,
		ProgressPercent:  ProgressPercent(e.durationMinutes, e.remainingSeconds),
		GrowthPercent:    GrowthPercent(e.durationMinutes, e.remainingSeconds),
	}
}

// State は現在の状態を返す。
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

// Progress は集計値と履歴のコピーを返す。
func (e *Engine) Progress() model.Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress.Clone()
}

// ExportCSV は現在の履歴をCSVテキストで返す。
func (e *Engine) ExportCSV(loc *time.Location) string {
	return ExportCSV(e.Progress().History, loc)
}

func (e *Engine) state() State {
	switch {
	case e.running:
		return StateRunning
	case e.justCompleted || e.remainingSeconds <= 0:
		return StateCompleted
	case e.remainingSeconds == e.durationMinutes*60:
		return StateIdle
	default:
		return StatePaused
	}
}

// startTicking はロックを保持した状態で呼び出す。
func (e *Engine) startTicking() {
	e.stopTicking()

	gen := e.generation
	e.handle = e.opts.Scheduler.Schedule(e.opts.TickInterval, func() {
		e.tick(gen)
	})
	e.hasHandle = true
}

// stopTicking はロックを保持した状態で呼び出す。
func (e *Engine) stopTicking() {
	if e.hasHandle {
		e.opts.Scheduler.Cancel(e.handle)
		e.hasHandle = false
		e.handle = 0
	}
	e.generation++
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || gen != e.generation {
		return
	}

	e.remainingSeconds--
	e.opts.Observer.TimerTick()

	if e.remainingSeconds > 0 {
		return
	}

	e.remainingSeconds = 0
	e.stopTicking()
	e.running = false
	e.justCompleted = true
	e.complete()
}

// complete は完了セッションを記録する。集計値の更新は1回の代入で反映する。
func (e *Engine) complete() {
	session := model.NewFocusSession(e.opts.NewID(), e.durationMinutes, e.opts.Clock())

	next := e.progress.Clone()
	next.History = append(next.History, session)
	next.SessionCount++
	next.Streak++
	next.TotalFocusedMinutes += e.durationMinutes
	e.progress = next

	e.opts.Observer.TimerTransition(TransitionComplete)
	e.opts.Observer.SessionCompleted(session)

	e.opts.Logger.Info("focus session completed",
		slog.String("namespace", e.namespace),
		slog.String("session_id", session.ID),
		slog.Int("duration_minutes", session.DurationMinutes),
		slog.String("tree_type", string(session.Type)),
		slog.Int("session_count", next.SessionCount),
	)

	e.persist(next)
}

func (e *Engine) load(ctx context.Context, namespace string) model.Progress {
	if e.store == nil {
		return model.Progress{History: []model.FocusSession{}}
	}
	ctx, cancel := context.WithTimeout(ctx, e.opts.StorageTimeout)
	defer cancel()
	return e.store.Load(ctx, namespace)
}

func (e *Engine) persist(p model.Progress) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.StorageTimeout)
	defer cancel()

	if err := e.store.Save(ctx, e.namespace, p); err != nil {
		e.opts.Logger.Error("failed to persist focus progress",
			slog.String("namespace", e.namespace),
			slog.String("error", err.Error()),
		)
	}
}
