package focus

import "fmt"

// ElapsedFraction はカウントダウンの経過割合を[0,1]で返す。
func ElapsedFraction(durationMinutes, remainingSeconds int) float64 {
	full := durationMinutes * 60
	if full <= 0 {
		return 0
	}
	f := float64(full-remainingSeconds) / float64(full)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ProgressPercent は経過割合をパーセントで返す。範囲の補正は行わない。
func ProgressPercent(durationMinutes, remainingSeconds int) float64 {
	full := durationMinutes * 60
	if full <= 0 {
		return 0
	}
	return float64(full-remainingSeconds) / float64(full) * 100
}

// GrowthPercent は木の成長度を返す。100を超えることはない。
func GrowthPercent(durationMinutes, remainingSeconds int) float64 {
	g := ProgressPercent(durationMinutes, remainingSeconds)
	if g > 100 {
		return 100
	}
	if g < 0 {
		return 0
	}
	return g
}

// FormatTime は秒数を MM:SS 形式に変換する。分は60で折り返さない。
func FormatTime(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}
