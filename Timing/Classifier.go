package Timing

// Class 区间的分类结果
type Class int

const (
	ClassNoise    Class = iota // 毛刺，丢弃
	ClassDot                   // 点
	ClassDash                  // 划
	ClassIntraGap              // 点划之间的间隔
	ClassCharGap               // 字符间隔
	ClassWordGap               // 单词间隔
)

var classNames = [...]string{"noise", "dot", "dash", "intra-gap", "char-gap", "word-gap"}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return "unknown"
	}
	return classNames[c]
}

// IsMark 点或划
func (c Class) IsMark() bool {
	return c == ClassDot || c == ClassDash
}

// ClassifierConfig 分类阈值，全部是 unit 的倍数
type ClassifierConfig struct {
	NoiseFloorRatio float64 `mapstructure:"noise_floor_ratio"` // 小于 0.2u 视为毛刺
	DotDashRatio    float64 `mapstructure:"dot_dash_ratio"`    // 点/划 分界，1u 与 3u 的中点
	ElementGapRatio float64 `mapstructure:"element_gap_ratio"` // 字符内/字符间 间隔分界
	WordGapRatio    float64 `mapstructure:"word_gap_ratio"`    // 字符间/单词间 间隔分界，3u 与 7u 的中点
}

// DefaultClassifierConfig 标准 1/3/7 时序的中点
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		NoiseFloorRatio: 0.2,
		DotDashRatio:    2.0,
		ElementGapRatio: 2.0,
		WordGapRatio:    5.0,
	}
}

// Classify 根据当前 unit 对一个区间分类。
// 纯函数：同样的输入永远得到同样的结果，落在边界上的值归入较短的一类。
func Classify(iv Interval, unit float64, cfg ClassifierConfig) Class {
	d := iv.Duration()
	if d < cfg.NoiseFloorRatio*unit {
		return ClassNoise
	}

	if iv.State == StateOn {
		if d <= cfg.DotDashRatio*unit {
			return ClassDot
		}
		return ClassDash
	}

	switch {
	case d <= cfg.ElementGapRatio*unit:
		return ClassIntraGap
	case d <= cfg.WordGapRatio*unit:
		return ClassCharGap
	default:
		return ClassWordGap
	}
}
