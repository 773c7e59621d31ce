package flashcw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"flashcw/Timing"
	"flashcw/logger"
	"flashcw/store"
	"flashcw/web"

	"github.com/google/uuid"
)

// TranscriptSaver 会话结束时保存结果
type TranscriptSaver interface {
	Create(t *store.Transcript) error
}

// EventPublisher 实时推送解码事件
type EventPublisher interface {
	Publish(eventType string, data map[string]interface{})
}

// CharEvent 解出一个字符时的通知
type CharEvent struct {
	DecodeEvent
	Unit float64
	WPM  float64
}

// Result 一次会话的总结
type Result struct {
	SessionID  string             `json:"session_id"`
	Source     string             `json:"source"`
	Text       string             `json:"text"`
	Unit       float64            `json:"unit"`
	WPM        float64            `json:"wpm"`
	Characters int                `json:"characters"`
	Unknown    int                `json:"unknown"`
	Samples    int64              `json:"samples"`
	BadSamples int64              `json:"bad_samples"`
	Malformed  int                `json:"malformed"`
	StartedAt  time.Time          `json:"started_at"`
	EndedAt    time.Time          `json:"ended_at"`
	Stats      Timing.TimingStats `json:"stats"`
}

// LightSystem 管理一次解码会话的生命周期：
// 从信号源读样本、解码、推送事件、结束时保存
type LightSystem struct {
	cfg        *Config
	log        *logger.Logger
	source     SampleSource
	sourceName string

	mu      sync.Mutex
	decoder *LightDecoder

	saver     TranscriptSaver
	publisher EventPublisher
	realtime  bool
	sessionID string

	// 回调在解码锁内执行，不要在里面调用 Snapshot
	OnChar func(CharEvent)
}

// NewLightSystem sourceName 用于日志和保存的记录，例如 "trace:sos.csv"
func NewLightSystem(cfg *Config, source SampleSource, sourceName string, log *logger.Logger) *LightSystem {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Discard()
	}
	s := &LightSystem{
		cfg:        cfg,
		log:        log.WithComponent("system"),
		source:     source,
		sourceName: sourceName,
		decoder:    NewLightDecoder(cfg),
	}
	s.decoder.SetOnDecoded(s.handleDecoded)
	return s
}

// SetSaver 保存会话结果，nil 表示不保存
func (s *LightSystem) SetSaver(saver TranscriptSaver) {
	s.saver = saver
}

// SetPublisher 推送实时事件，nil 表示不推送
func (s *LightSystem) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// SetDebugger 逐帧记录中间信号
func (s *LightSystem) SetDebugger(dbg SignalDebugger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decoder.SetDebugger(dbg)
}

// SetRealtime 回放文件时按样本时间戳的节奏输入，方便观察
func (s *LightSystem) SetRealtime(on bool) {
	s.realtime = on
}

// Snapshot 当前解码状态，可以在其它 goroutine 调用
func (s *LightSystem) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoder.Snapshot()
}

// SessionID 当前 (或最近一次) 会话的 ID
func (s *LightSystem) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *LightSystem) handleDecoded(ev DecodeEvent) {
	ce := CharEvent{DecodeEvent: ev, Unit: s.decoder.Unit(), WPM: 1.2 / s.decoder.Unit()}
	s.log.Debug("Decoded",
		logger.String("char", ev.Char),
		logger.String("pattern", ev.Pattern),
		logger.Float64("unit", ce.Unit))

	if s.publisher != nil {
		s.publisher.Publish(web.EventCharDecoded, map[string]interface{}{
			"session_id": s.sessionID,
			"char":       ev.Char,
			"pattern":    ev.Pattern,
			"unknown":    ev.Unknown,
			"text":       ev.Text,
			"unit":       ce.Unit,
			"wpm":        ce.WPM,
		})
	}
	if s.OnChar != nil {
		s.OnChar(ce)
	}
}

// Run 读到信号源结束或 ctx 取消为止，然后结算、保存并返回总结
// ctx 取消不算错误；信号源的其它错误会在结算后返回。
func (s *LightSystem) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	s.decoder.Reset()
	s.sessionID = uuid.NewString()
	s.mu.Unlock()

	res := &Result{SessionID: s.sessionID, Source: s.sourceName, StartedAt: time.Now()}
	s.log.Info("Session started", logger.String("session_id", res.SessionID), logger.String("source", s.sourceName))
	if s.publisher != nil {
		s.publisher.Publish(web.EventSessionStart, map[string]interface{}{
			"session_id": res.SessionID,
			"source":     s.sourceName,
		})
	}

	runErr := s.loop(ctx, res)

	s.mu.Lock()
	res.Text = s.decoder.Flush()
	snap := s.decoder.Snapshot()
	s.mu.Unlock()

	res.EndedAt = time.Now()
	res.Unit = snap.Unit
	res.WPM = snap.WPM
	res.Characters = snap.Characters
	res.Unknown = snap.Unknown
	res.Samples = snap.Samples
	res.BadSamples = snap.BadSamples
	res.Stats = snap.Stats

	if res.BadSamples > 0 {
		s.log.Warn("Invalid samples treated as dropouts", logger.Int64("count", res.BadSamples))
	}
	s.log.Info("Session finished",
		logger.String("session_id", res.SessionID),
		logger.String("text", res.Text),
		logger.Float64("wpm", res.WPM),
		logger.Int64("samples", res.Samples))

	if s.publisher != nil {
		s.publisher.Publish(web.EventSessionEnd, map[string]interface{}{
			"session_id": res.SessionID,
			"text":       res.Text,
			"unit":       res.Unit,
			"wpm":        res.WPM,
			"characters": res.Characters,
			"unknown":    res.Unknown,
		})
	}

	if s.saver != nil && res.Samples > 0 {
		if err := s.saver.Create(res.Transcript()); err != nil {
			s.log.Error("Failed to save transcript", logger.Error(err))
			if runErr == nil {
				runErr = fmt.Errorf("save transcript: %w", err)
			}
		}
	}
	return res, runErr
}

func (s *LightSystem) loop(ctx context.Context, res *Result) error {
	var first float64
	started := false
	wallStart := time.Now()

	for {
		sample, err := s.source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.log.Info("Session interrupted")
			return nil
		case errors.Is(err, ErrMalformedSample):
			res.Malformed++
			s.log.Warn("Skipping malformed sample", logger.Error(err))
			continue
		default:
			s.log.Error("Source failed", logger.Error(err))
			return fmt.Errorf("read %s: %w", s.sourceName, err)
		}

		if s.realtime {
			if !started {
				first, started = sample.Timestamp, true
			}
			due := wallStart.Add(time.Duration((sample.Timestamp - first) * float64(time.Second)))
			if wait := time.Until(due); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					s.log.Info("Session interrupted")
					return nil
				case <-timer.C:
				}
			}
		}

		s.mu.Lock()
		s.decoder.Feed(sample)
		s.mu.Unlock()
	}
}

// Transcript 转成存储记录
func (r *Result) Transcript() *store.Transcript {
	return &store.Transcript{
		SessionID:   r.SessionID,
		Source:      r.Source,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
		Text:        r.Text,
		UnitSeconds: r.Unit,
		WPM:         r.WPM,
		Characters:  r.Characters,
		Unknown:     r.Unknown,
		Samples:     r.Samples,
	}
}
