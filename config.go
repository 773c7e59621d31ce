package flashcw

import (
	"errors"
	"fmt"
	"time"

	"flashcw/Filters"
	"flashcw/Timing"
	"flashcw/store"
	"flashcw/web"
)

// 配置校验错误
var (
	ErrInvalidConditioner = errors.New("invalid conditioner config")
	ErrInvalidThresholds  = errors.New("invalid detector thresholds")
	ErrInvalidUnit        = errors.New("invalid unit estimator config")
	ErrInvalidRatios      = errors.New("invalid classifier ratios")
	ErrInvalidSource      = errors.New("invalid source config")
)

// Config 集中管理解码器和外围组件的所有可调参数
type Config struct {
	// --- 解码核心 ---
	Conditioner Filters.ConditionerConfig `mapstructure:"conditioner"`
	Detector    Filters.DetectorConfig    `mapstructure:"detector"`
	Estimator   Timing.EstimatorConfig    `mapstructure:"estimator"`
	Classifier  Timing.ClassifierConfig   `mapstructure:"classifier"`
	Assembler   AssemblerConfig           `mapstructure:"assembler"`

	// --- 串口光传感器 ---
	Serial struct {
		Port        string        `mapstructure:"port"`         // 设备名，例如 /dev/ttyUSB0
		BaudRate    int           `mapstructure:"baud_rate"`    // 波特率
		ReadTimeout time.Duration `mapstructure:"read_timeout"` // 单次读超时
	} `mapstructure:"serial"`

	// --- 音调调制的光接收器 (声卡输入或 WAV) ---
	Tone ToneConfig `mapstructure:"tone"`

	Store store.Config `mapstructure:"store"`
	Web   web.Config   `mapstructure:"web"`

	Logging struct {
		Level  string `mapstructure:"level"`  // debug | info | warn | error
		Format string `mapstructure:"format"` // text | json
	} `mapstructure:"logging"`
}

// DefaultConfig 返回默认配置：30fps 视频、约 12 WPM 的手动闪光
func DefaultConfig() *Config {
	cfg := &Config{
		Conditioner: Filters.DefaultConditionerConfig(),
		Detector:    Filters.DefaultDetectorConfig(),
		Estimator:   Timing.DefaultEstimatorConfig(),
		Classifier:  Timing.DefaultClassifierConfig(),
		Assembler:   DefaultAssemblerConfig(),
	}

	cfg.Serial.BaudRate = 115200
	cfg.Serial.ReadTimeout = 500 * time.Millisecond

	cfg.Tone.SampleRate = 48000
	cfg.Tone.ToneHz = 1000.0
	cfg.Tone.BlockSize = 480 // 48kHz 下 10ms 一帧
	cfg.Tone.AGCDecay = 0.999

	cfg.Store.Path = "flashcw.db"

	cfg.Web.Host = "127.0.0.1"
	cfg.Web.Port = 8080

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// Validate 检查参数之间的约束
func (c *Config) Validate() error {
	switch c.Conditioner.Mode {
	case Filters.ConditionerMean, Filters.ConditionerMedian, Filters.ConditionerHamming:
	case Filters.ConditionerLowpass:
		if c.Conditioner.FrameRate <= 0 || c.Conditioner.CutoffHz <= 0 {
			return fmt.Errorf("%w: lowpass needs positive frame_rate and cutoff_hz", ErrInvalidConditioner)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConditioner, c.Conditioner.Mode)
	}
	if c.Conditioner.WindowSize < 0 {
		return fmt.Errorf("%w: window_size %d", ErrInvalidConditioner, c.Conditioner.WindowSize)
	}

	d := c.Detector
	if d.EnterOn <= d.ExitOn || d.ExitOn < 0 || d.EnterOn > 1 {
		return fmt.Errorf("%w: need 0 <= exit_on (%.2f) < enter_on (%.2f) <= 1", ErrInvalidThresholds, d.ExitOn, d.EnterOn)
	}
	if d.AutoRange && d.RangeMode != Filters.RangePeak && d.RangeMode != Filters.RangePercentile {
		return fmt.Errorf("%w: unknown range_mode %q", ErrInvalidThresholds, d.RangeMode)
	}

	e := c.Estimator
	if e.MinUnit <= 0 || e.MaxUnit < e.MinUnit || e.InitialUnit <= 0 {
		return fmt.Errorf("%w: units must satisfy 0 < min_unit <= max_unit", ErrInvalidUnit)
	}
	if e.LearningRate <= 0 || e.LearningRate > 1 {
		return fmt.Errorf("%w: learning_rate %.3f", ErrInvalidUnit, e.LearningRate)
	}
	if e.CalibrationSymbols < 0 {
		return fmt.Errorf("%w: calibration_symbols %d", ErrInvalidUnit, e.CalibrationSymbols)
	}
	if e.OutlierLow <= 0 || e.OutlierHigh <= e.OutlierLow {
		return fmt.Errorf("%w: need 0 < outlier_low (%.2f) < outlier_high (%.2f)", ErrInvalidUnit, e.OutlierLow, e.OutlierHigh)
	}

	r := c.Classifier
	if r.NoiseFloorRatio <= 0 || r.NoiseFloorRatio >= r.DotDashRatio || r.ElementGapRatio >= r.WordGapRatio || r.NoiseFloorRatio >= r.ElementGapRatio {
		return fmt.Errorf("%w: need noise_floor < dot_dash and noise_floor < element_gap < word_gap", ErrInvalidRatios)
	}
	// 毛刺不能进入 unit 的更新
	if r.NoiseFloorRatio > e.OutlierLow {
		return fmt.Errorf("%w: noise_floor_ratio (%.2f) above outlier_low (%.2f)", ErrInvalidRatios, r.NoiseFloorRatio, e.OutlierLow)
	}

	if c.Tone.BlockSize <= 0 || c.Tone.SampleRate <= 0 || c.Tone.ToneHz <= 0 || c.Tone.ToneHz >= float64(c.Tone.SampleRate)/2 {
		return fmt.Errorf("%w: tone block_size/sample_rate/tone_hz", ErrInvalidSource)
	}
	return nil
}
