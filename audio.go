package flashcw

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"flashcw/logger"

	"github.com/gen2brain/malgo"
)

// AudioCallback 音频数据回调
type AudioCallback func(samples []float32)

// AudioCapture 声卡采集 (单声道 float32)
type AudioCapture struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	SampleRate int
	Callback   AudioCallback
}

// NewAudioCapture deviceName 为空时用默认输入设备
func NewAudioCapture(sampleRate int, deviceName string, callback AudioCallback, log *logger.Logger) (*AudioCapture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init malgo context: %w", err)
	}

	ac := &AudioCapture{
		ctx:        ctx,
		SampleRate: sampleRate,
		Callback:   callback,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if deviceName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			log.Warn("Failed to list capture devices", logger.Error(err))
		}
		found := false
		for _, info := range infos {
			if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(deviceName)) {
				deviceConfig.Capture.DeviceID = info.ID.Pointer()
				log.Info("Selected audio device", logger.String("device", info.Name()))
				found = true
				break
			}
		}
		if !found {
			log.Warn("Audio device not found, using default", logger.String("device", deviceName))
		}
	}

	onRecvFrames := func(_, input []byte, frameCount uint32) {
		if ac.Callback == nil || len(input) == 0 {
			return
		}
		ac.Callback(unsafe.Slice((*float32)(unsafe.Pointer(&input[0])), int(frameCount)))
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to init device: %w", err)
	}
	ac.device = device
	// 设备可能不支持请求的采样率
	ac.SampleRate = int(device.SampleRate())
	log.Info("Audio device initialized", logger.Int("sample_rate", ac.SampleRate))

	return ac, nil
}

// Start 开始采集
func (ac *AudioCapture) Start() error {
	if ac.device == nil {
		return fmt.Errorf("device not initialized")
	}
	return ac.device.Start()
}

// Stop 停止采集并释放资源，之后不会再有回调
func (ac *AudioCapture) Stop() {
	if ac.device != nil {
		ac.device.Uninit()
		ac.device = nil
	}
	if ac.ctx != nil {
		_ = ac.ctx.Uninit()
		ac.ctx.Free()
		ac.ctx = nil
	}
}

// LiveToneSource 从声卡实时采集接收器音频
type LiveToneSource struct {
	capture  *AudioCapture
	detector *ToneDetector
	samples  chan IntensitySample

	mu       sync.Mutex
	recorder *WavWriter
	closed   bool

	dropped atomic.Int64
	log     *logger.Logger
}

// OpenLiveTone recordPath 非空时同时把原始音频录成 WAV
func OpenLiveTone(cfg ToneConfig, recordPath string, log *logger.Logger) (*LiveToneSource, error) {
	if log == nil {
		log = logger.Discard()
	}
	src := &LiveToneSource{
		samples: make(chan IntensitySample, 4096),
		log:     log,
	}

	capture, err := NewAudioCapture(cfg.SampleRate, cfg.Device, src.onAudio, log)
	if err != nil {
		return nil, err
	}
	src.capture = capture

	rate := capture.SampleRate
	block := cfg.BlockSize
	if rate != cfg.SampleRate {
		block = int(cfg.FrameSeconds()*float64(rate) + 0.5)
	}
	src.detector = NewToneDetector(rate, cfg.ToneHz, block, cfg.AGCDecay)

	if recordPath != "" {
		w, err := CreateWav(recordPath, rate)
		if err != nil {
			capture.Stop()
			return nil, fmt.Errorf("create recording: %w", err)
		}
		src.recorder = w
		log.Info("Recording audio", logger.String("path", recordPath))
	}

	if err := capture.Start(); err != nil {
		src.Close()
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return src, nil
}

// onAudio 在音频线程里执行，不能阻塞
func (s *LiveToneSource) onAudio(audio []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.detector == nil {
		return
	}
	if s.recorder != nil {
		if err := s.recorder.WriteSamples(audio); err != nil {
			s.log.Error("Recording failed, stopped", logger.Error(err))
			s.recorder = nil
		}
	}
	for _, f := range s.detector.Process(audio) {
		select {
		case s.samples <- f:
		default:
			s.dropped.Add(1)
		}
	}
}

// Dropped 因为消费太慢丢掉的帧数
func (s *LiveToneSource) Dropped() int64 {
	return s.dropped.Load()
}

func (s *LiveToneSource) Next(ctx context.Context) (IntensitySample, error) {
	select {
	case f, ok := <-s.samples:
		if !ok {
			return IntensitySample{}, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return IntensitySample{}, ctx.Err()
	}
}

// Close 停止采集，结束录音
func (s *LiveToneSource) Close() error {
	if s.capture != nil {
		s.capture.Stop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.samples)
	if n := s.dropped.Load(); n > 0 {
		s.log.Warn("Frames dropped", logger.Int64("count", n))
	}
	if s.recorder != nil {
		err := s.recorder.Close()
		s.recorder = nil
		return err
	}
	return nil
}

var _ SampleSource = (*LiveToneSource)(nil)
