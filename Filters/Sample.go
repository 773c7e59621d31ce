package Filters

import "math"

// Sample 一帧的亮度采样
// Timestamp 单调递增 (秒)，Value 通常在 0.0 ~ 1.0
type Sample struct {
	Timestamp float64
	Value     float64
}

// Valid 值是否可用，NaN 和 Inf 视为坏帧
func (s Sample) Valid() bool {
	return !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0)
}
