package focus

import (
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/growmind/internal/model"
)

// CSVHeader はエクスポートCSVのヘッダー行。
const CSVHeader = "Date,Time,Duration (minutes),Tree Type,Session ID"

// ExportCSV は履歴をCSVテキストに変換する。行は履歴の順序のまま出力し、
// 値のエスケープは行わない。locがnilの場合はtime.Localを使う。
func ExportCSV(history []model.FocusSession, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	lines := make([]string, 0, len(history)+1)
	lines = append(lines, CSVHeader)
	for _, s := range history {
		at := s.CompletedAt.In(loc)
		lines = append(lines, strings.Join([]string{
			at.Format("2006-01-02"),
			at.Format("15:04"),
			strconv.Itoa(s.DurationMinutes),
			string(s.Type),
			s.ID,
		}, ","))
	}
	return strings.Join(lines, "\n")
}

// DownloadFileName はエクスポート日を含むダウンロード用ファイル名を返す。
func DownloadFileName(exportedAt time.Time) string {
	return "focus-sessions-" + exportedAt.Format("2006-01-02") + ".csv"
}
