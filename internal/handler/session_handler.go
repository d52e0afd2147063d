package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/growmind/internal/focus"
	"github.com/hitoshi/growmind/internal/model"
)

const csvContentType = "text/csv; charset=utf-8"

// SessionHandler は完了済みフォーカスセッション履歴のHTTPハンドラー。
type SessionHandler struct {
	engines  EngineProvider
	location *time.Location
	now      func() time.Time
}

// NewSessionHandler はSessionHandlerを生成する。
// locはCSVの日時とダウンロードファイル名の日付に使うタイムゾーン。nilの場合はLocal。
func NewSessionHandler(engines EngineProvider, loc *time.Location, now func() time.Time) *SessionHandler {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &SessionHandler{
		engines:  engines,
		location: loc,
		now:      now,
	}
}

type sessionListResponse struct {
	Sessions []model.FocusSession `json:"sessions"`
	Count    int                  `json:"count"`
}

// ListSessions は完了済みセッションを古い順に返す。
// GET /api/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	history := h.engines.Get(r.Context(), userID).Progress().History
	if history == nil {
		history = []model.FocusSession{}
	}
	writeJSON(w, http.StatusOK, sessionListResponse{
		Sessions: history,
		Count:    len(history),
	})
}

// Export は履歴をCSV本文として返す。
// GET /api/sessions/export
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(w, r, false)
}

// Download は履歴をCSVファイルとしてダウンロードさせる。
// GET /api/sessions/export/download
func (h *SessionHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(w, r, true)
}

func (h *SessionHandler) writeCSV(w http.ResponseWriter, r *http.Request, attachment bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	body := h.engines.Get(r.Context(), userID).ExportCSV(h.location)

	w.Header().Set("Content-Type", csvContentType)
	if attachment {
		name := focus.DownloadFileName(h.now().In(h.location))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Warn("failed to write csv export",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
