package Filters

// SimpleAGC 实现"快充慢放"的自动增益控制
// 用于把音调幅度归一化到 0.0 - 1.0，之后才能当作亮度处理
type SimpleAGC struct {
	peak      float64
	floor     float64 // 峰值底限，防止在纯静音时放大底噪
	decayRate float64 // 衰减系数，控制适应速度
}

// NewSimpleAGC decayFactor 越接近 1 峰值保持越久
func NewSimpleAGC(decayFactor, floor float64) *SimpleAGC {
	if floor <= 0 {
		floor = 0.005
	}
	return &SimpleAGC{
		peak:      floor,
		floor:     floor,
		decayRate: decayFactor,
	}
}

// Update 处理样本并返回归一化后的值 (0.0 - 1.0)
func (agc *SimpleAGC) Update(sample float64) float64 {
	val := sample
	if val < 0 {
		val = -val
	}

	if val > agc.peak {
		agc.peak = val
	} else {
		agc.peak *= agc.decayRate
		if agc.peak < agc.floor {
			agc.peak = agc.floor
		}
	}

	out := val / agc.peak
	if out > 1.0 {
		out = 1.0
	}
	return out
}

// Peak 当前峰值
func (agc *SimpleAGC) Peak() float64 {
	return agc.peak
}

// Reset 峰值回到底限
func (agc *SimpleAGC) Reset() {
	agc.peak = agc.floor
}
