package flashcw

import (
	"math"

	"flashcw/Filters"
	"flashcw/Timing"
)

// IntensitySample 一帧亮度
type IntensitySample = Filters.Sample

// Snapshot 解码器当前状态，用于显示和调试
type Snapshot struct {
	Unit        float64            `json:"unit"`
	WPM         float64            `json:"wpm"`
	State       string             `json:"state"`
	Pending     string             `json:"pending"`
	Text        string             `json:"text"`
	Calibrating bool               `json:"calibrating"`
	Squelched   bool               `json:"squelched"`
	EnterOn     float64            `json:"enter_on"`
	ExitOn      float64            `json:"exit_on"`
	Samples     int64              `json:"samples"`
	BadSamples  int64              `json:"bad_samples"`
	Characters  int                `json:"characters"`
	Unknown     int                `json:"unknown"`
	Stats       Timing.TimingStats `json:"stats"`
}

// LightDecoder 闪光摩尔斯解码流水线
// 调理 -> 滞回检测 -> 区间分类 (带 unit 反馈) -> 组装
//
// 不是并发安全的，一个实例只服务一个信号源。
type LightDecoder struct {
	cfg *Config

	conditioner *Filters.Conditioner
	detector    *Filters.HysteresisDetector
	estimator   Timing.UnitEstimator
	stats       *Timing.StatisticalAnalyzer
	assembler   *MorseAssembler
	debugger    SignalDebugger

	// 缝合缓冲：最近一个完整区间先扣押，等下一个区间确认它不是被毛刺打断的
	held    Timing.Interval
	hasHeld bool

	// 校准期间到达的原始区间先排队，校准完成后用校准后的 unit 重放
	calibrationQueue []Timing.Interval

	// 当前这段灭已经按超时结算过
	silenceResolved bool

	lastTimestamp float64
	framePeriod   float64
	samples       int64
	badSamples    int64
}

// NewLightDecoder 创建解码器，cfg 为 nil 时使用默认配置
func NewLightDecoder(cfg *Config) *LightDecoder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &LightDecoder{
		cfg:         cfg,
		conditioner: Filters.NewConditioner(cfg.Conditioner),
		detector:    Filters.NewHysteresisDetector(cfg.Detector),
		estimator:   Timing.NewUnitEstimator(cfg.Estimator),
		stats:       Timing.NewAnalyzer(16),
		assembler:   NewMorseAssembler(cfg.Assembler),
		debugger:    &NoOpDebugger{},
	}
}

// SetOnDecoded 每解出一个字符回调一次
func (d *LightDecoder) SetOnDecoded(fn func(DecodeEvent)) {
	d.assembler.OnDecoded = fn
}

// SetDebugger 逐帧记录中间信号
func (d *LightDecoder) SetDebugger(dbg SignalDebugger) {
	if dbg == nil {
		dbg = &NoOpDebugger{}
	}
	d.debugger = dbg
}

// Feed 输入一帧原始亮度
func (d *LightDecoder) Feed(s IntensitySample) {
	d.samples++
	if !s.Valid() {
		d.badSamples++
	}
	if d.samples > 1 {
		if dt := s.Timestamp - d.lastTimestamp; dt > 0 {
			d.framePeriod = dt
		}
	}
	d.lastTimestamp = s.Timestamp

	cond := d.conditioner.Process(s)
	if tr := d.detector.Feed(cond); tr != nil {
		d.silenceResolved = false
		d.FeedInterval(Timing.Interval{
			State: Timing.StateOf(tr.FinishedState),
			Start: tr.Start,
			End:   tr.End,
		})
	}

	enter, exit := d.detector.Thresholds()
	d.debugger.Record(s.Timestamp, s.Value, cond.Value, enter, exit, d.detector.State(), d.estimator.Unit())

	if d.cfg.Assembler.LiveFlush {
		d.checkSilence(s.Timestamp)
	}
}

// FeedInterval 直接输入一个完整的亮/灭区间
// 区间必须按时间顺序到达。
func (d *LightDecoder) FeedInterval(iv Timing.Interval) {
	if !(iv.Duration() > 0) {
		return
	}

	if d.estimator.Calibrating() {
		d.estimator = d.estimator.Calibrate(iv)
		// 第一次亮之前的灭没有意义
		if !d.estimator.Seeded() {
			return
		}
		// 校准期间 unit 还不可靠，原样排队，等校准结束再分类
		d.calibrationQueue = append(d.calibrationQueue, iv)
		if !d.estimator.Calibrating() {
			d.replayCalibration()
		}
		return
	}
	d.stitch(iv)
}

// stitch 毛刺合并进扣押的区间，扣押的区间等到下一个不同状态的区间到来才提交
func (d *LightDecoder) stitch(iv Timing.Interval) {
	class := Timing.Classify(iv, d.estimator.Unit(), d.cfg.Classifier)
	if class == Timing.ClassNoise {
		// on -> 短off -> on 合并为一个 on，反之亦然
		if d.hasHeld {
			d.held.End = iv.End
		}
		return
	}

	if d.hasHeld {
		if d.held.State == iv.State {
			d.held.End = iv.End
			return
		}
		d.commit(d.held)
	}
	d.held = iv
	d.hasHeld = true
}

// commit 先用当前 unit 分类，再更新 unit，最后交给组装器
func (d *LightDecoder) commit(iv Timing.Interval) {
	unit := d.estimator.Unit()
	class := Timing.Classify(iv, unit, d.cfg.Classifier)
	d.estimator = d.estimator.Observe(iv, class)
	if class.IsMark() {
		d.stats.AddObservation(iv.Duration() / unit)
	}
	d.assembler.Push(class)
}

// replayCalibration 校准结束后按顺序处理排队的区间
func (d *LightDecoder) replayCalibration() {
	queue := d.calibrationQueue
	d.calibrationQueue = nil
	for _, iv := range queue {
		d.stitch(iv)
	}
}

// finishCalibration 不再等待更多区间，直接用当前 unit 结束校准
func (d *LightDecoder) finishCalibration() {
	if d.estimator.Calibrating() && d.estimator.Seeded() {
		d.estimator = d.estimator.FinishCalibration()
	}
	d.replayCalibration()
}

// checkSilence 灭的时间已经超过单词间隔，不必等下一次亮就可以结算字符
func (d *LightDecoder) checkSilence(now float64) {
	if d.silenceResolved || d.detector.State() || !d.detector.Started() || !d.estimator.Seeded() {
		return
	}
	if now-d.detector.StateStart() <= d.cfg.Classifier.WordGapRatio*d.estimator.Unit() {
		return
	}
	// 暂定 unit 没有得到确认时 (比如只见过一次闪烁)，继续等
	if d.estimator.Calibrating() && !d.estimator.Confirmed() {
		return
	}
	d.silenceResolved = true
	d.finishCalibration()
	if d.hasHeld {
		d.commit(d.held)
		d.hasHeld = false
	}
	d.assembler.ResolveLetter()
}

// Flush 流结束：关闭未结束的亮区间，提交扣押的区间，结算最后一个字符
// 返回完整的解码文本。重复调用结果相同。
func (d *LightDecoder) Flush() string {
	if d.detector.State() {
		if tr := d.detector.Close(d.lastTimestamp + d.framePeriod); tr != nil {
			d.FeedInterval(Timing.Interval{State: Timing.StateOn, Start: tr.Start, End: tr.End})
		}
	}
	d.finishCalibration()
	if d.hasHeld {
		d.commit(d.held)
		d.hasHeld = false
	}
	return d.assembler.Flush()
}

// Text 已经解出的文本
func (d *LightDecoder) Text() string {
	return d.assembler.Text()
}

// Unit 当前 unit (秒)
func (d *LightDecoder) Unit() float64 {
	return d.estimator.Unit()
}

// Snapshot 当前状态
func (d *LightDecoder) Snapshot() Snapshot {
	enter, exit := d.detector.Thresholds()
	squelched := math.IsInf(enter, 0)
	if squelched {
		enter, exit = 0, 0
	}
	chars, unknown := d.assembler.Counts()
	return Snapshot{
		Unit:        d.estimator.Unit(),
		WPM:         d.estimator.WPM(),
		State:       Timing.StateOf(d.detector.State()).String(),
		Pending:     d.assembler.Pending(),
		Text:        d.assembler.Text(),
		Calibrating: d.estimator.Calibrating(),
		Squelched:   squelched,
		EnterOn:     enter,
		ExitOn:      exit,
		Samples:     d.samples,
		BadSamples:  d.badSamples,
		Characters:  chars,
		Unknown:     unknown,
		Stats:       d.stats.Analyze(),
	}
}

// Reset 回到初始状态，开始新的会话
func (d *LightDecoder) Reset() {
	d.conditioner.Reset()
	d.detector.Reset()
	d.estimator = Timing.NewUnitEstimator(d.cfg.Estimator)
	d.stats.Reset()
	d.assembler.Reset()
	d.hasHeld = false
	d.calibrationQueue = nil
	d.silenceResolved = false
	d.lastTimestamp, d.framePeriod = 0, 0
	d.samples, d.badSamples = 0, 0
}
