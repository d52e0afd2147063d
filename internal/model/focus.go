package model

import "time"

// TreeType はフォーカスセッションの長さから導出される木の大きさを表す。
type TreeType string

const (
	TreeSmall  TreeType = "small"
	TreeMedium TreeType = "medium"
	TreeLarge  TreeType = "large"
)

// 木の大きさの境界（分）。
const (
	mediumTreeMinMinutes = 15
	mediumTreeMaxMinutes = 45
)

// ClassifyTreeType は分単位の長さから木の大きさを判定する。
// 15分未満はsmall、15〜45分はmedium、45分超はlarge。
func ClassifyTreeType(minutes int) TreeType {
	if minutes < mediumTreeMinMinutes {
		return TreeSmall
	}
	if minutes <= mediumTreeMaxMinutes {
		return TreeMedium
	}
	return TreeLarge
}

// FocusSession は完了したフォーカスセッション1件を表す。
// Typeは作成時に1度だけ決まり、以後変更しない。
type FocusSession struct {
	ID              string    `json:"id"`
	DurationMinutes int       `json:"duration"`
	CompletedAt     time.Time `json:"completedAt"`
	Type            TreeType  `json:"type"`
}

// NewFocusSession は完了時刻と長さからFocusSessionを生成する。
func NewFocusSession(id string, durationMinutes int, completedAt time.Time) FocusSession {
	return FocusSession{
		ID:              id,
		DurationMinutes: durationMinutes,
		CompletedAt:     completedAt,
		Type:            ClassifyTreeType(durationMinutes),
	}
}

// Progress はユーザーごとに永続化される集計値とセッション履歴。
type Progress struct {
	SessionCount        int
	Streak              int
	TotalFocusedMinutes int
	History             []FocusSession
}

// Clone は履歴スライスを複製したコピーを返す。
func (p Progress) Clone() Progress {
	c := p
	if p.History != nil {
		c.History = make([]FocusSession, len(p.History))
		copy(c.History, p.History)
	}
	return c
}
