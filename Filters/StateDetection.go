package Filters

import "math"

/*
滞回 (施密特) 状态检测
判断当前的光是亮还是灭

两个阈值都是观测到的动态范围的比例:
  enter = lo + EnterOn*(hi-lo)   灭 -> 亮
  exit  = lo + ExitOn*(hi-lo)    亮 -> 灭
EnterOn > ExitOn，中间的死区吸收阈值附近的抖动。
*/

// 范围追踪方式
const (
	RangePeak       = "peak"
	RangePercentile = "percentile"
)

// DetectorConfig 状态检测参数
type DetectorConfig struct {
	AutoRange   bool    `mapstructure:"auto_range"`   // false 时范围固定为 [0,1]
	RangeMode   string  `mapstructure:"range_mode"`   // peak | percentile
	EnterOn     float64 `mapstructure:"enter_on"`     // 进入亮状态的比例
	ExitOn      float64 `mapstructure:"exit_on"`      // 退出亮状态的比例
	RangeDecay  float64 `mapstructure:"range_decay"`  // peak 模式的包络衰减系数
	MinRange    float64 `mapstructure:"min_range"`    // 静噪门限
	HistorySize int     `mapstructure:"history_size"` // percentile 模式的历史帧数
}

// DefaultDetectorConfig 默认值
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		AutoRange:   true,
		RangeMode:   RangePeak,
		EnterOn:     0.6,
		ExitOn:      0.4,
		RangeDecay:  0.998,
		MinRange:    0.15,
		HistorySize: 300,
	}
}

// StateTransition 一次完整的状态结束事件
// 例如：一段亮刚刚结束，从 Start 持续到 End
type StateTransition struct {
	FinishedState bool    // 刚刚结束的状态 (true=亮, false=灭)
	Start         float64 // 秒
	End           float64 // 秒
}

// Duration 持续时长 (秒)
func (t *StateTransition) Duration() float64 {
	return t.End - t.Start
}

// HysteresisDetector 滞回比较器
type HysteresisDetector struct {
	cfg     DetectorConfig
	tracker RangeTracker

	state      bool    // 当前状态，初始为灭
	stateStart float64 // 当前状态的开始时间
	started    bool

	enter, exit float64
}

// NewHysteresisDetector 创建检测器
func NewHysteresisDetector(cfg DetectorConfig) *HysteresisDetector {
	d := &HysteresisDetector{cfg: cfg}
	if cfg.AutoRange {
		if cfg.RangeMode == RangePercentile {
			d.tracker = NewPercentileRangeTracker(cfg.HistorySize, cfg.MinRange)
		} else {
			d.tracker = NewPeakRangeTracker(cfg.RangeDecay, cfg.MinRange)
		}
	}
	d.enter, d.exit = d.squelch()
	return d
}

// Feed 输入一帧调理后的亮度，返回状态变化事件
// 没有发生状态切换时返回 nil
func (d *HysteresisDetector) Feed(s Sample) *StateTransition {
	if !d.started {
		d.stateStart = s.Timestamp
		d.started = true
	}
	// 坏帧等同于重复上一帧，不会引起切换
	if !s.Valid() {
		return nil
	}

	d.enter, d.exit = d.thresholds(s.Value)

	next := d.state
	if d.state {
		if s.Value <= d.exit {
			next = false
		}
	} else if s.Value >= d.enter {
		next = true
	}

	if next == d.state {
		return nil
	}

	tr := &StateTransition{
		FinishedState: d.state,
		Start:         d.stateStart,
		End:           s.Timestamp,
	}
	d.state = next
	d.stateStart = s.Timestamp
	return tr
}

// Close 流结束时关闭当前的亮区间
// 当前为灭或者还没有任何样本时返回 nil
func (d *HysteresisDetector) Close(at float64) *StateTransition {
	if !d.started || !d.state || at <= d.stateStart {
		return nil
	}
	tr := &StateTransition{
		FinishedState: true,
		Start:         d.stateStart,
		End:           at,
	}
	d.state = false
	d.stateStart = at
	return tr
}

func (d *HysteresisDetector) thresholds(v float64) (enter, exit float64) {
	lo, hi := 0.0, 1.0
	if d.tracker != nil {
		var ok bool
		lo, hi, ok = d.tracker.Update(v)
		if !ok {
			return d.squelch()
		}
	}
	span := hi - lo
	return lo + d.cfg.EnterOn*span, lo + d.cfg.ExitOn*span
}

// squelch 返回一组输入永远无法进入、亮状态一定会退出的阈值
func (d *HysteresisDetector) squelch() (enter, exit float64) {
	return math.Inf(1), math.Inf(1)
}

// State 当前状态 (true=亮)
func (d *HysteresisDetector) State() bool {
	return d.state
}

// StateStart 当前状态开始的时间
func (d *HysteresisDetector) StateStart() float64 {
	return d.stateStart
}

// Started 是否已经收到过样本
func (d *HysteresisDetector) Started() bool {
	return d.started
}

// Thresholds 最近一帧使用的阈值
func (d *HysteresisDetector) Thresholds() (enter, exit float64) {
	return d.enter, d.exit
}

// Reset 回到初始的灭状态
func (d *HysteresisDetector) Reset() {
	d.state = false
	d.started = false
	d.stateStart = 0
	if d.tracker != nil {
		d.tracker.Reset()
	}
	d.enter, d.exit = d.squelch()
}
