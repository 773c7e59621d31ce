package flashcw

import (
	"math"
	"math/rand"
	"strings"

	"flashcw/Filters"
	"flashcw/Timing"
)

// GeneratorConfig 合成闪光信号的参数
type GeneratorConfig struct {
	Unit      float64 // 1t 时长 (秒)
	FrameRate float64 // 帧率 (Hz)
	Jitter    float64 // 每个区间时长的随机误差比例，模拟手动发报 (0.1 = ±10%)
	Noise     float64 // 每帧高斯噪声的标准差
	OnLevel   float64 // 亮的亮度
	OffLevel  float64 // 灭的亮度
	LeadIn    float64 // 开头的静默 (unit 倍数)
	TailOut   float64 // 结尾的静默 (unit 倍数)
	Seed      int64
}

// DefaultGeneratorConfig 30fps、12 WPM
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Unit:      0.1,
		FrameRate: 30.0,
		OnLevel:   1.0,
		OffLevel:  0.0,
		LeadIn:    5,
		TailOut:   10,
		Seed:      1,
	}
}

// UnitFromWPM PARIS 标准: unit = 1.2 / WPM
func UnitFromWPM(wpm float64) float64 {
	return 1.2 / wpm
}

// TimingPattern 按标准时序把文本变成亮灭区间，从 t=0 的第一个亮开始
// 点 1t，划 3t，字符内间隔 1t，字符间隔 3t，单词间隔 7t。表外字符跳过。
func TimingPattern(text string, unit float64) []Timing.Interval {
	var out []Timing.Interval
	t := 0.0
	add := func(state Timing.SignalState, units float64) {
		d := units * unit
		out = append(out, Timing.Interval{State: state, Start: t, End: t + d})
		t += d
	}

	for wi, word := range strings.Split(NormalizeText(text), " ") {
		if word == "" {
			continue
		}
		if wi > 0 {
			add(Timing.StateOff, 7)
		}
		for ci, r := range word {
			pattern, _ := EncodeRune(r)
			if ci > 0 {
				add(Timing.StateOff, 3)
			}
			for si, sym := range pattern {
				if si > 0 {
					add(Timing.StateOff, 1)
				}
				if Symbol(sym) == SymbolDash {
					add(Timing.StateOn, 3)
				} else {
					add(Timing.StateOn, 1)
				}
			}
		}
	}
	return out
}

// SignalGenerator 生成带抖动和噪声的测试信号
type SignalGenerator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewSignalGenerator 同样的 Seed 生成同样的信号
func NewSignalGenerator(cfg GeneratorConfig) *SignalGenerator {
	return &SignalGenerator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Intervals 带抖动的区间序列，第一个亮从 LeadIn 处开始
func (g *SignalGenerator) Intervals(text string) []Timing.Interval {
	pattern := TimingPattern(text, g.cfg.Unit)
	out := make([]Timing.Interval, 0, len(pattern))
	t := g.cfg.LeadIn * g.cfg.Unit
	for _, iv := range pattern {
		d := iv.Duration()
		if g.cfg.Jitter > 0 {
			d *= 1 + (g.rng.Float64()*2-1)*g.cfg.Jitter
		}
		out = append(out, Timing.Interval{State: iv.State, Start: t, End: t + d})
		t += d
	}
	return out
}

// Samples 按帧率采样的亮度序列
func (g *SignalGenerator) Samples(text string) []Filters.Sample {
	intervals := g.Intervals(text)
	end := g.cfg.LeadIn * g.cfg.Unit
	if n := len(intervals); n > 0 {
		end = intervals[n-1].End
	}
	end += g.cfg.TailOut * g.cfg.Unit

	fps := g.cfg.FrameRate
	total := int(math.Round(end * fps))
	samples := make([]Filters.Sample, total)

	// 区间边界对齐到最近的帧，避免浮点累加误差让某个区间多一帧或少一帧
	lit := make([]bool, total)
	for _, iv := range intervals {
		if iv.State != Timing.StateOn {
			continue
		}
		from := int(math.Round(iv.Start * fps))
		to := int(math.Round(iv.End * fps))
		for i := from; i < to && i < total; i++ {
			lit[i] = true
		}
	}

	for i := range samples {
		v := g.cfg.OffLevel
		if lit[i] {
			v = g.cfg.OnLevel
		}
		if g.cfg.Noise > 0 {
			v += g.rng.NormFloat64() * g.cfg.Noise
		}
		samples[i] = Filters.Sample{
			Timestamp: float64(i) / fps,
			Value:     math.Max(0, math.Min(1, v)),
		}
	}
	return samples
}

// ToneAudio 把闪光换成音调调制的音频，亮的时候发出 toneHz 的正弦波
// 用于测试声卡/WAV 输入的光接收器
func (g *SignalGenerator) ToneAudio(text string, sampleRate int, toneHz float64) []float32 {
	intervals := g.Intervals(text)
	end := g.cfg.LeadIn * g.cfg.Unit
	if n := len(intervals); n > 0 {
		end = intervals[n-1].End
	}
	end += g.cfg.TailOut * g.cfg.Unit

	sr := float64(sampleRate)
	total := int(math.Round(end * sr))
	out := make([]float32, total)
	omega := 2.0 * math.Pi * toneHz / sr

	for _, iv := range intervals {
		if iv.State != Timing.StateOn {
			continue
		}
		from := int(math.Round(iv.Start * sr))
		to := int(math.Round(iv.End * sr))
		for i := from; i < to && i < total; i++ {
			out[i] = float32(0.8 * math.Sin(omega*float64(i)))
		}
	}

	if g.cfg.Noise > 0 {
		for i := range out {
			out[i] += float32(g.rng.NormFloat64() * g.cfg.Noise)
		}
	}
	return out
}
