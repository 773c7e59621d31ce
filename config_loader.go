package flashcw

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig 从文件和环境变量加载配置
// path 为空时在当前目录和 ~/.config/flashcw 下查找 flashcw.{yaml,toml,json}，找不到就用默认值
// 环境变量前缀 FLASHCW_，例如 FLASHCW_DETECTOR_ENTER_ON=0.7
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("flashcw")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/flashcw")
	}

	v.SetEnvPrefix("FLASHCW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("conditioner.mode", d.Conditioner.Mode)
	v.SetDefault("conditioner.window_size", d.Conditioner.WindowSize)
	v.SetDefault("conditioner.frame_rate", d.Conditioner.FrameRate)
	v.SetDefault("conditioner.cutoff_hz", d.Conditioner.CutoffHz)

	v.SetDefault("detector.auto_range", d.Detector.AutoRange)
	v.SetDefault("detector.range_mode", d.Detector.RangeMode)
	v.SetDefault("detector.enter_on", d.Detector.EnterOn)
	v.SetDefault("detector.exit_on", d.Detector.ExitOn)
	v.SetDefault("detector.range_decay", d.Detector.RangeDecay)
	v.SetDefault("detector.min_range", d.Detector.MinRange)
	v.SetDefault("detector.history_size", d.Detector.HistorySize)

	v.SetDefault("estimator.initial_unit", d.Estimator.InitialUnit)
	v.SetDefault("estimator.min_unit", d.Estimator.MinUnit)
	v.SetDefault("estimator.max_unit", d.Estimator.MaxUnit)
	v.SetDefault("estimator.learning_rate", d.Estimator.LearningRate)
	v.SetDefault("estimator.calibration_symbols", d.Estimator.CalibrationSymbols)
	v.SetDefault("estimator.outlier_low", d.Estimator.OutlierLow)
	v.SetDefault("estimator.outlier_high", d.Estimator.OutlierHigh)

	v.SetDefault("classifier.noise_floor_ratio", d.Classifier.NoiseFloorRatio)
	v.SetDefault("classifier.dot_dash_ratio", d.Classifier.DotDashRatio)
	v.SetDefault("classifier.element_gap_ratio", d.Classifier.ElementGapRatio)
	v.SetDefault("classifier.word_gap_ratio", d.Classifier.WordGapRatio)

	v.SetDefault("assembler.unknown_marker", d.Assembler.UnknownMarker)
	v.SetDefault("assembler.max_symbols", d.Assembler.MaxSymbols)
	v.SetDefault("assembler.live_flush", d.Assembler.LiveFlush)

	v.SetDefault("serial.port", d.Serial.Port)
	v.SetDefault("serial.baud_rate", d.Serial.BaudRate)
	v.SetDefault("serial.read_timeout", d.Serial.ReadTimeout)

	v.SetDefault("tone.device", d.Tone.Device)
	v.SetDefault("tone.sample_rate", d.Tone.SampleRate)
	v.SetDefault("tone.tone_hz", d.Tone.ToneHz)
	v.SetDefault("tone.block_size", d.Tone.BlockSize)
	v.SetDefault("tone.agc_decay", d.Tone.AGCDecay)
	v.SetDefault("tone.auto_tone", d.Tone.AutoTone)

	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("web.enabled", d.Web.Enabled)
	v.SetDefault("web.host", d.Web.Host)
	v.SetDefault("web.port", d.Web.Port)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}
