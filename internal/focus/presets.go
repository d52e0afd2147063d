package focus

import (
	"strconv"

	"github.com/hitoshi/growmind/internal/model"
)

// Preset はUIに並べるタイマー時間の選択肢。
type Preset struct {
	Label    string         `json:"label"`
	Minutes  int            `json:"minutes"`
	TreeType model.TreeType `json:"treeType"`
}

var presetMinutes = []int{10, 25, 50, 90}

// Presets は既定のタイマー時間の選択肢を返す。
func Presets() []Preset {
	out := make([]Preset, 0, len(presetMinutes))
	for _, m := range presetMinutes {
		out = append(out, Preset{
			Label:    FormatMinutesLabel(m),
			Minutes:  m,
			TreeType: model.ClassifyTreeType(m),
		})
	}
	return out
}

// FormatMinutesLabel は "25 min" 形式のラベルを返す。
func FormatMinutesLabel(minutes int) string {
	return strconv.Itoa(minutes) + " min"
}
