package Filters

// RangeTracker 追踪信号的动态范围，给滞回检测器提供上下参考
// ok=false 表示范围太小，当前没有有效信号
type RangeTracker interface {
	Update(v float64) (lo, hi float64, ok bool)
	Reset()
}

// PeakRangeTracker 双路包络追踪：峰值快升慢降，底噪快降慢升。
// 可以抵抗亮度慢慢变化 (环境光、自动曝光)，并具备静噪功能。
type PeakRangeTracker struct {
	maxLevel    float64 // 信号顶部包络
	minLevel    float64 // 底部包络
	initialized bool

	decayRate float64 // 衰减系数 (0.0 ~ 1.0)，控制 max 下降和 min 上升的速度
	minRange  float64 // 最小动态范围，小于此值视为静噪
}

// NewPeakRangeTracker decayRate 推荐 0.998 (30fps)，minRange 推荐 0.15
func NewPeakRangeTracker(decayRate, minRange float64) *PeakRangeTracker {
	return &PeakRangeTracker{
		decayRate: decayRate,
		minRange:  minRange,
	}
}

// Update 更新包络并返回当前范围
func (t *PeakRangeTracker) Update(v float64) (lo, hi float64, ok bool) {
	if !t.initialized {
		t.maxLevel = v
		t.minLevel = v
		t.initialized = true
	}

	span := t.maxLevel - t.minLevel
	leak := span * (1.0 - t.decayRate)

	// Fast Attack, Slow Decay
	if v > t.maxLevel {
		t.maxLevel = v
	} else {
		t.maxLevel -= leak
	}

	// min 总是试图向上漂浮，直到碰到真实的底部样本被压下去
	if v < t.minLevel {
		t.minLevel = v
	} else {
		t.minLevel += leak
	}

	if t.minLevel > t.maxLevel {
		t.minLevel = t.maxLevel
	}

	lo, hi = t.minLevel, t.maxLevel
	return lo, hi, hi-lo >= t.minRange
}

// Reset 丢弃包络
func (t *PeakRangeTracker) Reset() {
	t.initialized = false
	t.maxLevel = 0
	t.minLevel = 0
}
