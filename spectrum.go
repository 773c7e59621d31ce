package flashcw

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// ErrNoTone 录音里找不到明显的音调
var ErrNoTone = errors.New("no tone found")

// SpectrumAnalyzer 累加多块音频的幅度谱，找出接收器的调制音调
type SpectrumAnalyzer struct {
	SampleRate float64
	FFTSize    int
	window     []float64
	sum        []float64
	blocks     int
}

// NewSpectrumAnalyzer fftSize 决定分辨率: SampleRate / fftSize Hz
func NewSpectrumAnalyzer(sampleRate float64, fftSize int) *SpectrumAnalyzer {
	return &SpectrumAnalyzer{
		SampleRate: sampleRate,
		FFTSize:    fftSize,
		window:     window.Hann(fftSize),
		sum:        make([]float64, fftSize/2+1),
	}
}

// Add 累加一块音频，长度不足 FFTSize 的部分补零
func (sa *SpectrumAnalyzer) Add(samples []float32) {
	input := make([]float64, sa.FFTSize)
	for i := 0; i < sa.FFTSize && i < len(samples); i++ {
		input[i] = float64(samples[i]) * sa.window[i]
	}
	spectrum := fft.FFTReal(input)
	for i := range sa.sum {
		sa.sum[i] += cmplx.Abs(spectrum[i])
	}
	sa.blocks++
}

// Peak 在 [minHz, maxHz] 内找最强的分量
// 返回频率 (抛物线插值) 和它相对平均幅度的倍数
func (sa *SpectrumAnalyzer) Peak(minHz, maxHz float64) (freq, ratio float64) {
	if sa.blocks == 0 {
		return 0, 0
	}
	binWidth := sa.SampleRate / float64(sa.FFTSize)
	start := int(math.Ceil(minHz / binWidth))
	end := int(maxHz / binWidth)
	if start < 1 {
		start = 1
	}
	if end > len(sa.sum)-2 {
		end = len(sa.sum) - 2
	}
	if start > end {
		return 0, 0
	}

	best := start
	total := 0.0
	for i := start; i <= end; i++ {
		total += sa.sum[i]
		if sa.sum[i] > sa.sum[best] {
			best = i
		}
	}
	mean := total / float64(end-start+1)
	if mean == 0 {
		return 0, 0
	}

	// p = 0.5 * (alpha - gamma) / (alpha - 2*beta + gamma)
	alpha, beta, gamma := sa.sum[best-1], sa.sum[best], sa.sum[best+1]
	pos := float64(best)
	if denom := alpha - 2*beta + gamma; denom != 0 {
		pos += 0.5 * (alpha - gamma) / denom
	}
	return pos * binWidth, beta / mean
}

// Reset 清空累加的谱
func (sa *SpectrumAnalyzer) Reset() {
	for i := range sa.sum {
		sa.sum[i] = 0
	}
	sa.blocks = 0
}

const (
	toneSearchMinHz = 200.0
	toneSearchMaxHz = 3000.0
	toneMinRatio    = 4.0 // 峰值至少是平均幅度的 4 倍
)

// DetectTone 扫描 WAV 开头 seconds 秒找出调制音调，结束后回到数据开头
func DetectTone(r *WavReader, seconds float64) (float64, error) {
	size := 1
	for size*2 <= r.SampleRate/4 {
		size *= 2
	}
	sa := NewSpectrumAnalyzer(float64(r.SampleRate), size)

	budget := int(seconds * float64(r.SampleRate))
	for budget > 0 {
		block, err := r.ReadSamples(min(size, budget))
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("scan tone: %w", err)
		}
		sa.Add(block)
		budget -= len(block)
	}
	if err := r.Rewind(); err != nil {
		return 0, err
	}

	maxHz := math.Min(toneSearchMaxHz, float64(r.SampleRate)/2*0.9)
	freq, ratio := sa.Peak(toneSearchMinHz, maxHz)
	if ratio < toneMinRatio {
		return 0, fmt.Errorf("%w (peak %.0f Hz, %.1fx mean)", ErrNoTone, freq, ratio)
	}
	return freq, nil
}
