package focus

import "github.com/hitoshi/growmind/internal/model"

// 状態遷移の種類。Observer.TimerTransitionに渡される。
const (
	TransitionStart      = "start"
	TransitionPause      = "pause"
	TransitionReset      = "reset"
	TransitionComplete   = "complete"
	TransitionSwitchUser = "switch_user"
)

// Observer はエンジンの出来事を受け取る。実装はブロックしてはならない。
type Observer interface {
	TimerTransition(transition string)
	TimerTick()
	SessionCompleted(session model.FocusSession)
	StorageFallback(key string)
	ActiveEngines(n int)
}

// NopObserver は何もしないObserver。
type NopObserver struct{}

func (NopObserver) TimerTransition(string)              {}
func (NopObserver) TimerTick()                          {}
func (NopObserver) SessionCompleted(model.FocusSession) {}
func (NopObserver) StorageFallback(string)              {}
func (NopObserver) ActiveEngines(int)                   {}

var _ Observer = NopObserver{}
