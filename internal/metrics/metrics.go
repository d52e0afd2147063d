// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/growmind/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// フォーカスエンジン、HTTPミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	TimerTransition(transition string)
	TimerTick()
	SessionCompleted(session model.FocusSession)
	StorageFallback(key string)
	ActiveEngines(n int)
	RecordHTTPStatus(statusCode int)
	RecordSessionsCleaned(count int64)
	RecordCleanupLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sessionsCompleted *prometheus.CounterVec
	focusedMinutes    prometheus.Counter
	timerTicks        prometheus.Counter
	transitions       *prometheus.CounterVec
	storageFallbacks  *prometheus.CounterVec
	activeEngines     prometheus.Gauge
	httpStatus        *prometheus.CounterVec
	sessionsCleaned   prometheus.Counter
	cleanupLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "growmind_focus_sessions_completed_total",
			Help: "完了したフォーカスセッションの合計数",
		}, []string{"tree_type"}),
		focusedMinutes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "growmind_focused_minutes_total",
			Help: "完了セッションの集中時間の合計（分）",
		}),
		timerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "growmind_timer_ticks_total",
			Help: "処理したタイマーティックの合計数",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "growmind_timer_transitions_total",
			Help: "タイマーの状態遷移の数",
		}, []string{"transition"}),
		storageFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "growmind_storage_fallbacks_total",
			Help: "読み込みに失敗し既定値を使った回数",
		}, []string{"key"}),
		activeEngines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "growmind_active_engines",
			Help: "メモリ上に保持しているタイマーの数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "growmind_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "growmind_login_sessions_cleaned_total",
			Help: "削除した期限切れログインセッションの合計数",
		}),
		cleanupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "growmind_cleanup_latency_seconds",
			Help:    "期限切れセッション削除の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sessionsCompleted,
		c.focusedMinutes,
		c.timerTicks,
		c.transitions,
		c.storageFallbacks,
		c.activeEngines,
		c.httpStatus,
		c.sessionsCleaned,
		c.cleanupLatency,
	)

	return c
}

// TimerTransition は状態遷移を記録する。
func (c *Collector) TimerTransition(transition string) {
	c.transitions.WithLabelValues(transition).Inc()
}

// TimerTick はティックを記録する。
func (c *Collector) TimerTick() {
	c.timerTicks.Inc()
}

// SessionCompleted は完了セッションを木の種類別に記録する。
func (c *Collector) SessionCompleted(session model.FocusSession) {
	c.sessionsCompleted.WithLabelValues(string(session.Type)).Inc()
	c.focusedMinutes.Add(float64(session.DurationMinutes))
}

// StorageFallback は既定値へのフォールバックを記録する。
func (c *Collector) StorageFallback(key string) {
	c.storageFallbacks.WithLabelValues(key).Inc()
}

// ActiveEngines は保持中のタイマー数を設定する。
func (c *Collector) ActiveEngines(n int) {
	c.activeEngines.Set(float64(n))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsCleaned は削除したログインセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// RecordCleanupLatency はクリーンアップの所要時間を記録する。
func (c *Collector) RecordCleanupLatency(duration time.Duration) {
	c.cleanupLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
