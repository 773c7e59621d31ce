package Filters

import (
	"sort"

	"github.com/mjibson/go-dsp/window"
)

// 平滑方式
const (
	ConditionerMean    = "mean"
	ConditionerMedian  = "median"
	ConditionerHamming = "hamming"
	ConditionerLowpass = "lowpass"
)

// ConditionerConfig 信号调理参数
type ConditionerConfig struct {
	Mode       string  `mapstructure:"mode"`        // mean | median | hamming | lowpass
	WindowSize int     `mapstructure:"window_size"` // 滑动窗口帧数，<=1 表示直通
	FrameRate  float64 `mapstructure:"frame_rate"`  // lowpass 使用的帧率 (Hz)
	CutoffHz   float64 `mapstructure:"cutoff_hz"`   // lowpass 截止频率 (Hz)
}

// DefaultConditionerConfig 默认 3 帧均值
func DefaultConditionerConfig() ConditionerConfig {
	return ConditionerConfig{
		Mode:       ConditionerMean,
		WindowSize: 3,
		FrameRate:  30.0,
		CutoffHz:   8.0,
	}
}

// Conditioner 对原始亮度做时间上的低通，压掉单帧的闪烁和噪声。
// 窗口在第一个样本到达时用该样本填满，所以开头不会出现假的上升沿。
type Conditioner struct {
	cfg     ConditionerConfig
	buffer  []float64
	weights []float64 // 按时间顺序排列，最老的在前
	scratch []float64
	cursor  int
	primed  bool
	last    float64
	lowpass *ButterworthFilter
}

// NewConditioner 创建调理器
func NewConditioner(cfg ConditionerConfig) *Conditioner {
	c := &Conditioner{cfg: cfg}
	size := cfg.WindowSize
	if size < 1 {
		size = 1
	}

	switch cfg.Mode {
	case ConditionerLowpass:
		c.lowpass = NewButterworthLowpass(2, cfg.FrameRate, cfg.CutoffHz)
	case ConditionerHamming:
		if size > 1 {
			c.weights = window.Hamming(size)
		}
	}

	c.buffer = make([]float64, size)
	c.scratch = make([]float64, size)
	return c
}

// Process 输入一帧，输出平滑后的一帧。时间戳不变。
// NaN/Inf 当作上一帧的重复。
func (c *Conditioner) Process(s Sample) Sample {
	v := s.Value
	if !s.Valid() {
		v = c.last
	}
	c.last = v

	if !c.primed {
		for i := range c.buffer {
			c.buffer[i] = v
		}
		if c.lowpass != nil {
			c.lowpass.Prime(v)
		}
		c.primed = true
	}

	if c.lowpass != nil {
		return Sample{Timestamp: s.Timestamp, Value: c.lowpass.Process(v)}
	}

	if len(c.buffer) <= 1 {
		return Sample{Timestamp: s.Timestamp, Value: v}
	}

	c.buffer[c.cursor] = v
	c.cursor = (c.cursor + 1) % len(c.buffer)

	var out float64
	switch c.cfg.Mode {
	case ConditionerMedian:
		out = c.median()
	case ConditionerHamming:
		out = c.weighted()
	default:
		out = c.mean()
	}
	return Sample{Timestamp: s.Timestamp, Value: out}
}

// Reset 清空窗口，下一帧重新填充
func (c *Conditioner) Reset() {
	c.primed = false
	c.cursor = 0
	c.last = 0
}

func (c *Conditioner) mean() float64 {
	sum := 0.0
	for _, v := range c.buffer {
		sum += v
	}
	return sum / float64(len(c.buffer))
}

func (c *Conditioner) median() float64 {
	copy(c.scratch, c.buffer)
	sort.Float64s(c.scratch)
	n := len(c.scratch)
	if n%2 == 1 {
		return c.scratch[n/2]
	}
	return (c.scratch[n/2-1] + c.scratch[n/2]) / 2.0
}

func (c *Conditioner) weighted() float64 {
	// cursor 指向最老的一帧
	n := len(c.buffer)
	sum, norm := 0.0, 0.0
	for i := 0; i < n; i++ {
		w := c.weights[i]
		sum += w * c.buffer[(c.cursor+i)%n]
		norm += w
	}
	if norm == 0 {
		return c.mean()
	}
	return sum / norm
}
