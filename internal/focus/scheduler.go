package focus

import (
	"sync"
	"time"
)

// Handle はScheduleで登録した周期実行を識別する。ゼロ値は無効なハンドル。
type Handle uint64

// Scheduler は周期的なティックの発生源。
// Cancelは冪等で、呼び出し後に新しいティックが発火してはならない。
type Scheduler interface {
	Schedule(interval time.Duration, fn func()) Handle
	Cancel(h Handle)
}

// TickerScheduler はハンドルごとにgoroutineとtime.Tickerを1つ使うScheduler実装。
type TickerScheduler struct {
	mu    sync.Mutex
	next  Handle
	stops map[Handle]chan struct{}
}

// NewTickerScheduler はTickerSchedulerを生成する。
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{stops: make(map[Handle]chan struct{})}
}

// Schedule はintervalごとにfnを呼び出す周期実行を開始する。
// intervalが0以下の場合は1秒として扱う。
func (s *TickerScheduler) Schedule(interval time.Duration, fn func()) Handle {
	if interval <= 0 {
		interval = time.Second
	}

	s.mu.Lock()
	s.next++
	h := s.next
	stop := make(chan struct{})
	s.stops[h] = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// 停止とティックが同時に到着した場合は停止を優先する
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	return h
}

// Cancel は周期実行を停止する。ブロックせず、未知のハンドルは無視する。
func (s *TickerScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stop, ok := s.stops[h]; ok {
		close(stop)
		delete(s.stops, h)
	}
}

// Active は現在動作中の周期実行の数を返す。
func (s *TickerScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stops)
}

// Stop は全ての周期実行を停止する。
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, stop := range s.stops {
		close(stop)
		delete(s.stops, h)
	}
}

var _ Scheduler = (*TickerScheduler)(nil)
