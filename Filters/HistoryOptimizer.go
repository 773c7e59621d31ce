package Filters

import (
	"sort"
)

// PercentileRangeTracker 维护一段历史亮度，用分位数估计底部和顶部。
// 比 PeakRangeTracker 更抗单帧的反光尖峰，但对亮度突变反应更慢。
type PercentileRangeTracker struct {
	buffer   []float64 // 环形缓冲区
	head     int
	isFull   bool
	minRange float64

	refreshEvery int // 每 N 帧重新排序一次
	counter      int
	lo, hi       float64
	scratch      []float64
}

// NewPercentileRangeTracker historySize: 历史帧数，30fps 下 300 帧约 10 秒
func NewPercentileRangeTracker(historySize int, minRange float64) *PercentileRangeTracker {
	if historySize < 8 {
		historySize = 8
	}
	refresh := historySize / 30
	if refresh < 1 {
		refresh = 1
	}
	return &PercentileRangeTracker{
		buffer:       make([]float64, historySize),
		scratch:      make([]float64, 0, historySize),
		minRange:     minRange,
		refreshEvery: refresh,
	}
}

// Update 写入一帧并返回当前范围
func (h *PercentileRangeTracker) Update(v float64) (lo, hi float64, ok bool) {
	h.buffer[h.head] = v
	h.head = (h.head + 1) % len(h.buffer)
	if h.head == 0 {
		h.isFull = true
	}

	h.counter++
	// 上升沿要立刻看到，不等下一次排序
	if h.counter >= h.refreshEvery || v > h.hi || v < h.lo {
		h.counter = 0
		h.recompute()
	}
	return h.lo, h.hi, h.hi-h.lo >= h.minRange
}

func (h *PercentileRangeTracker) recompute() {
	var data []float64
	if h.isFull {
		data = append(h.scratch[:0], h.buffer...)
	} else {
		data = append(h.scratch[:0], h.buffer[:h.head]...)
	}
	if len(data) == 0 {
		return
	}
	sort.Float64s(data)
	count := len(data)

	// 低位 10% 代表底噪，高位 95% 排除极端的反光
	h.lo = data[int(float64(count-1)*0.10)]
	h.hi = data[int(float64(count-1)*0.95)]
}

// Reset 清空历史
func (h *PercentileRangeTracker) Reset() {
	h.head = 0
	h.isFull = false
	h.counter = 0
	h.lo, h.hi = 0, 0
}
