package flashcw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

// ToneConfig 音调调制的光接收器参数
// 光电管接到一个振荡器上，亮的时候发出 ToneHz 的音调，用声卡采集。
type ToneConfig struct {
	Device     string  `mapstructure:"device"`      // 声卡名称的子串，空表示默认设备
	SampleRate int     `mapstructure:"sample_rate"` // 音频采样率
	ToneHz     float64 `mapstructure:"tone_hz"`     // 调制音调频率
	BlockSize  int     `mapstructure:"block_size"`  // 每块采样点数，一块对应一帧亮度
	AGCDecay   float64 `mapstructure:"agc_decay"`   // 每块的峰值衰减
	AutoTone   bool    `mapstructure:"auto_tone"`   // 回放 WAV 时先扫描频谱找音调，找不到再用 ToneHz
}

const autoToneScanSeconds = 10.0

// FrameSeconds 一帧亮度的时长
func (c ToneConfig) FrameSeconds() float64 {
	return float64(c.BlockSize) / float64(c.SampleRate)
}

// WavToneSource 回放录好的接收器音频
type WavToneSource struct {
	ToneHz   float64 // 实际使用的音调频率
	reader   *WavReader
	detector *ToneDetector
	queue    []IntensitySample
	chunk    int
}

// OpenWavTone 以文件自己的采样率为准，块长按比例换算，保持帧时长不变
func OpenWavTone(path string, cfg ToneConfig) (*WavToneSource, error) {
	if cfg.ToneHz <= 0 || cfg.BlockSize <= 0 || cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: tone config %+v", ErrInvalidSource, cfg)
	}
	r, err := OpenWav(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	if cfg.AutoTone {
		freq, err := DetectTone(r, autoToneScanSeconds)
		switch {
		case err == nil:
			cfg.ToneHz = freq
		case !errors.Is(err, ErrNoTone):
			r.Close()
			return nil, err
		}
	}
	if cfg.ToneHz >= float64(r.SampleRate)/2 {
		r.Close()
		return nil, fmt.Errorf("%w: tone %.0f Hz above nyquist of %d Hz file", ErrInvalidSource, cfg.ToneHz, r.SampleRate)
	}

	block := int(math.Round(cfg.FrameSeconds() * float64(r.SampleRate)))
	if block < 1 {
		block = 1
	}
	return &WavToneSource{
		ToneHz:   cfg.ToneHz,
		reader:   r,
		detector: NewToneDetector(r.SampleRate, cfg.ToneHz, block, cfg.AGCDecay),
		chunk:    block * 32,
	}, nil
}

// FrameRate 输出帧率
func (s *WavToneSource) FrameRate() float64 {
	return s.detector.FrameRate()
}

func (s *WavToneSource) Next(ctx context.Context) (IntensitySample, error) {
	for len(s.queue) == 0 {
		if err := ctx.Err(); err != nil {
			return IntensitySample{}, err
		}
		audio, err := s.reader.ReadSamples(s.chunk)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return IntensitySample{}, io.EOF
			}
			return IntensitySample{}, fmt.Errorf("read wav: %w", err)
		}
		s.queue = s.detector.Process(audio)
	}
	v := s.queue[0]
	s.queue = s.queue[1:]
	return v, nil
}

func (s *WavToneSource) Close() error {
	return s.reader.Close()
}

var _ SampleSource = (*WavToneSource)(nil)
