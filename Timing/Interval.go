package Timing

import "fmt"

// SignalState 光信号状态
type SignalState int

const (
	StateOff SignalState = 0 // 灭 (Space)
	StateOn  SignalState = 1 // 亮 (Mark)
)

func (s SignalState) String() string {
	if s == StateOn {
		return "ON"
	}
	return "OFF"
}

// StateOf 把检测器的 bool 状态换成 SignalState
func StateOf(on bool) SignalState {
	if on {
		return StateOn
	}
	return StateOff
}

// Interval 一段持续的亮或灭，时间单位为秒
type Interval struct {
	State SignalState
	Start float64
	End   float64
}

// Duration 持续时长 (秒)
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s[%.3f-%.3f %.3fs]", iv.State, iv.Start, iv.End, iv.Duration())
}
