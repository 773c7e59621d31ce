package flashcw

import (
	"math"

	"flashcw/Filters"
)

// Goertzel 计算单个频率的能量
type Goertzel struct {
	coeff  float64
	q1, q2 float64
	n      int
}

// NewGoertzel 目标频率 targetFreq (Hz)
func NewGoertzel(sampleRate, targetFreq float64) *Goertzel {
	// coeff = 2 * cos(2 * PI * f / fs)
	return &Goertzel{coeff: 2.0 * math.Cos(2.0*math.Pi*targetFreq/sampleRate)}
}

// Reset 每个块开始前调用
func (g *Goertzel) Reset() {
	g.q1, g.q2, g.n = 0, 0, 0
}

// ProcessSample 处理单个采样点
func (g *Goertzel) ProcessSample(sample float64) {
	q0 := g.coeff*g.q1 - g.q2 + sample
	g.q2 = g.q1
	g.q1 = q0
	g.n++
}

// Amplitude 当前块里目标频率的幅度，与块长无关
// 一个幅度为 A 的正弦波返回约 A
func (g *Goertzel) Amplitude() float64 {
	if g.n == 0 {
		return 0
	}
	// magnitude^2 = q1^2 + q2^2 - q1*q2*coeff
	m2 := g.q1*g.q1 + g.q2*g.q2 - g.q1*g.q2*g.coeff
	if m2 < 0 {
		return 0
	}
	return 2.0 * math.Sqrt(m2) / float64(g.n)
}

// ToneDetector 把音调调制的光接收器音频变成亮度帧
// 每 blockSize 个采样点输出一帧：Goertzel 幅度经过 AGC 归一化到 0~1
type ToneDetector struct {
	goertzel   *Goertzel
	agc        *Filters.SimpleAGC
	sampleRate float64
	blockSize  int
	filled     int
	frames     int64
}

// NewToneDetector agcDecay 是每块的峰值衰减系数
func NewToneDetector(sampleRate int, toneHz float64, blockSize int, agcDecay float64) *ToneDetector {
	if blockSize <= 0 {
		blockSize = sampleRate / 100
	}
	return &ToneDetector{
		goertzel:   NewGoertzel(float64(sampleRate), toneHz),
		agc:        Filters.NewSimpleAGC(agcDecay, 0.01),
		sampleRate: float64(sampleRate),
		blockSize:  blockSize,
	}
}

// FrameRate 输出的帧率
func (t *ToneDetector) FrameRate() float64 {
	return t.sampleRate / float64(t.blockSize)
}

// Process 输入任意长度的音频，返回这期间完成的帧
// 时间戳是块的开始时间
func (t *ToneDetector) Process(audio []float32) []IntensitySample {
	var out []IntensitySample
	for _, s := range audio {
		t.goertzel.ProcessSample(float64(s))
		t.filled++
		if t.filled < t.blockSize {
			continue
		}
		out = append(out, IntensitySample{
			Timestamp: float64(t.frames) * float64(t.blockSize) / t.sampleRate,
			Value:     t.agc.Update(t.goertzel.Amplitude()),
		})
		t.frames++
		t.filled = 0
		t.goertzel.Reset()
	}
	return out
}

// Reset 丢弃未完成的块和 AGC 状态
func (t *ToneDetector) Reset() {
	t.goertzel.Reset()
	t.agc.Reset()
	t.filled = 0
	t.frames = 0
}
