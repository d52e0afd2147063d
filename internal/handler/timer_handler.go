package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/growmind/internal/focus"
	"github.com/hitoshi/growmind/internal/model"
)

// EngineProvider はユーザーごとのタイマーエンジンを返す。
// focus.Managerが実装する。
type EngineProvider interface {
	Get(ctx context.Context, userID string) *focus.Engine
}

// TimerHandler はフォーカスタイマー操作のHTTPハンドラー。
type TimerHandler struct {
	engines EngineProvider
}

// NewTimerHandler はTimerHandlerを生成する。
func NewTimerHandler(engines EngineProvider) *TimerHandler {
	return &TimerHandler{engines: engines}
}

type setDurationRequest struct {
	Minutes *int `json:"minutes"`
}

type statsResponse struct {
	Sessions     int `json:"sessions"`
	Streak       int `json:"streak"`
	TotalMinutes int `json:"totalMinutes"`
}

// engine はリクエストのユーザーに対応するエンジンを返す。
func (h *TimerHandler) engine(w http.ResponseWriter, r *http.Request) (*focus.Engine, bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return nil, false
	}
	return h.engines.Get(r.Context(), userID), true
}

// GetTimer は現在のタイマー状態を返す。
// GET /api/timer
func (h *TimerHandler) GetTimer(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

// Start はカウントダウンを開始・再開する。
// POST /api/timer/start
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*focus.Engine).Start)
}

// Pause はカウントダウンを一時停止する。
// POST /api/timer/pause
func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*focus.Engine).Pause)
}

// Reset はタイマーを初期状態に戻す。
// POST /api/timer/reset
func (h *TimerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*focus.Engine).Reset)
}

// SetDuration はタイマーの長さ（分）を設定する。
// 実行中は変更されず、現在のスナップショットをそのまま返す。
// PUT /api/timer/duration
func (h *TimerHandler) SetDuration(w http.ResponseWriter, r *http.Request) {
	var req setDurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Minutes == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidBodyError())
		return
	}
	if *req.Minutes <= 0 || *req.Minutes > focus.MaxDurationMinutes {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDurationError(*req.Minutes))
		return
	}

	h.apply(w, r, func(e *focus.Engine) { e.SetDuration(*req.Minutes) })
}

// Presets はプリセットの長さ一覧を返す。
// GET /api/timer/presets
func (h *TimerHandler) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, focus.Presets())
}

// Stats は累計の集計値を返す。
// GET /api/stats
func (h *TimerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	p := e.Progress()
	writeJSON(w, http.StatusOK, statsResponse{
		Sessions:     p.SessionCount,
		Streak:       p.Streak,
		TotalMinutes: p.TotalFocusedMinutes,
	})
}

func (h *TimerHandler) apply(w http.ResponseWriter, r *http.Request, op func(*focus.Engine)) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	op(e)
	writeJSON(w, http.StatusOK, e.Snapshot())
}
