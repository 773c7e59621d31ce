package Timing

import (
	"math"
	"sort"
)

// EstimatorConfig 单位时长 (1t) 估计参数
type EstimatorConfig struct {
	InitialUnit        float64 `mapstructure:"initial_unit"`        // 不校准时使用的初始 unit (秒)
	MinUnit            float64 `mapstructure:"min_unit"`            // unit 下限 (秒)
	MaxUnit            float64 `mapstructure:"max_unit"`            // unit 上限 (秒)
	LearningRate       float64 `mapstructure:"learning_rate"`       // EMA 平滑因子
	CalibrationSymbols int     `mapstructure:"calibration_symbols"` // 种子之后再看 N 个区间 (亮或灭) 校准，0 表示直接用 InitialUnit
	OutlierLow         float64 `mapstructure:"outlier_low"`         // 低于 OutlierLow*unit 的样本不参与更新
	OutlierHigh        float64 `mapstructure:"outlier_high"`        // 高于 OutlierHigh*unit 的样本不参与更新
}

// DefaultEstimatorConfig 默认值
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		InitialUnit:        0.1,
		MinUnit:            0.02,
		MaxUnit:            2.0,
		LearningRate:       0.15,
		CalibrationSymbols: 6,
		OutlierLow:         0.3,
		OutlierHigh:        10.0,
	}
}

// UnitEstimator 自适应 unit 估计。
// 它是一个值类型：Calibrate/Observe 返回新的估计，不修改原值，
// 所以 "分类器 -> 估计器 -> 分类器" 的反馈环在调用方是显式的。
type UnitEstimator struct {
	cfg             EstimatorConfig
	unit            float64
	seeded          bool
	confirmed       bool
	calibrationLeft int
	candidates      []Interval
	updates         int
}

// 校准时同一簇的区间最长不超过最短的 clusterSpread 倍。
// 1t 抖动 ±20% 时比值最大 1.5，而 3t 至少是 1t 的 2 倍。
const clusterSpread = 1.6

// 比最常见的一簇短太多的簇当作毛刺
const minClusterRatio = 0.25

// NewUnitEstimator 创建估计器
func NewUnitEstimator(cfg EstimatorConfig) UnitEstimator {
	e := UnitEstimator{cfg: cfg}
	e.unit = e.clamp(cfg.InitialUnit)
	if cfg.CalibrationSymbols <= 0 {
		e.seeded = true
		e.confirmed = true
	}
	return e
}

// Unit 当前 unit (秒)，永远为正。校准期间是暂定值。
func (e UnitEstimator) Unit() float64 {
	return e.unit
}

// WPM 按 PARIS 标准换算: unit = 1.2 / WPM
func (e UnitEstimator) WPM() float64 {
	return 1.2 / e.unit
}

// Seeded 是否已经拿到第一个亮区间
func (e UnitEstimator) Seeded() bool {
	return e.seeded
}

// Calibrating 是否还在校准窗口内
func (e UnitEstimator) Calibrating() bool {
	return !e.seeded || e.calibrationLeft > 0
}

// Confirmed 暂定的 unit 是否已经有至少两个相近的区间支持
func (e UnitEstimator) Confirmed() bool {
	return e.confirmed
}

// Updates EMA 已经吸收的样本数
func (e UnitEstimator) Updates() int {
	return e.updates
}

// Calibrate 在区间分类之前调用，收集第一个亮区间及之后 N 个区间 (亮或灭) 的时长。
// unit 取最短的一簇相近时长的平均值，单独一个区间不能决定 unit：
// 开头的一次闪烁得不到确认，开头的划也会被字符内 1t 间隔取代。
func (e UnitEstimator) Calibrate(iv Interval) UnitEstimator {
	if e.cfg.CalibrationSymbols <= 0 || (e.seeded && e.calibrationLeft <= 0) {
		return e
	}
	d := iv.Duration()
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return e
	}

	if !e.seeded {
		if iv.State != StateOn {
			return e
		}
		e.seeded = true
		e.calibrationLeft = e.cfg.CalibrationSymbols
	} else {
		e.calibrationLeft--
	}
	// 复制一份，旧值共享的底层数组不受影响
	e.candidates = append(e.candidates[:len(e.candidates):len(e.candidates)], iv)
	e.unit, e.confirmed = e.estimate()
	if e.calibrationLeft == 0 {
		e.candidates = nil
	}
	return e
}

// estimate 根据已收集的区间给出暂定 unit
func (e UnitEstimator) estimate() (float64, bool) {
	durations := make([]float64, 0, len(e.candidates))
	var marks []float64
	for _, iv := range e.candidates {
		durations = append(durations, iv.Duration())
		if iv.State == StateOn {
			marks = append(marks, iv.Duration())
		}
	}
	sort.Float64s(durations)

	// 每个时长作为簇的下界，统计 [d, clusterSpread*d] 内的区间
	type cluster struct {
		mean  float64
		count int
	}
	var clusters []cluster
	best := 0
	for i, lo := range durations {
		if i > 0 && lo == durations[i-1] {
			continue
		}
		sum, n := 0.0, 0
		for _, d := range durations[i:] {
			if d > clusterSpread*lo {
				break
			}
			sum += d
			n++
		}
		if n < 2 {
			continue
		}
		clusters = append(clusters, cluster{mean: sum / float64(n), count: n})
		if n > clusters[best].count {
			best = len(clusters) - 1
		}
	}

	for _, c := range clusters {
		if c.mean >= minClusterRatio*clusters[best].mean {
			return e.clamp(c.mean), true
		}
	}

	// 没有得到确认的簇：取亮区间的中位数
	sort.Float64s(marks)
	return e.clamp(marks[len(marks)/2]), false
}

// FinishCalibration 提前结束校准，例如遇到长时间静默或流结束
func (e UnitEstimator) FinishCalibration() UnitEstimator {
	e.calibrationLeft = 0
	e.candidates = nil
	return e
}

// Observe 用一个已分类的区间更新 unit。
// 点和字符内间隔直接计入 (两者都是 1t)，划按 dur/3 还原成 1t；其它分类不参与。
func (e UnitEstimator) Observe(iv Interval, c Class) UnitEstimator {
	if !e.seeded {
		return e
	}

	d := iv.Duration()
	var sample float64
	switch c {
	case ClassDot, ClassIntraGap:
		sample = d
	case ClassDash:
		sample = d / 3.0
	default:
		return e
	}

	// 异常值剔除，防止极长或极短的干扰带偏速度
	if d < e.cfg.OutlierLow*e.unit || d > e.cfg.OutlierHigh*e.unit {
		return e
	}
	if sample > 2.0*e.unit {
		return e
	}

	alpha := e.cfg.LearningRate
	e.unit = e.clamp(alpha*sample + (1.0-alpha)*e.unit)
	e.updates++
	return e
}

func (e UnitEstimator) clamp(u float64) float64 {
	lo, hi := e.cfg.MinUnit, e.cfg.MaxUnit
	if lo <= 0 {
		lo = 1e-3
	}
	if hi < lo {
		hi = lo
	}
	if math.IsNaN(u) || u <= 0 {
		return lo
	}
	return math.Max(lo, math.Min(hi, u))
}
