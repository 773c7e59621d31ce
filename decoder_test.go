package flashcw

import (
	"math"
	"strings"
	"testing"

	"flashcw/Timing"
)

func feedIntervals(d *LightDecoder, intervals []Timing.Interval) {
	for _, iv := range intervals {
		d.FeedInterval(iv)
	}
}

// seq 按 (状态, unit 倍数) 生成连续区间
func seq(unit float64, steps ...float64) []Timing.Interval {
	var out []Timing.Interval
	t := 0.0
	state := Timing.StateOn
	for _, units := range steps {
		d := units * unit
		out = append(out, Timing.Interval{State: state, Start: t, End: t + d})
		t += d
		if state == Timing.StateOn {
			state = Timing.StateOff
		} else {
			state = Timing.StateOn
		}
	}
	return out
}

func TestDecoderSOS(t *testing.T) {
	d := NewLightDecoder(nil)
	var chars []string
	d.SetOnDecoded(func(ev DecodeEvent) { chars = append(chars, ev.Char) })

	// S: ... O: --- S: ...，最后是单词间隔
	feedIntervals(d, seq(0.1,
		1, 1, 1, 1, 1, 3,
		3, 1, 3, 1, 3, 3,
		1, 1, 1, 1, 1, 7,
	))

	if got := d.Flush(); got != "SOS" {
		t.Fatalf("Flush() = %q, want SOS", got)
	}
	if strings.Join(chars, "") != "SOS" {
		t.Errorf("events = %v", chars)
	}
}

func TestDecoderRoundTrip(t *testing.T) {
	for _, text := range []string{"HELLO WORLD", "PARIS 73", "THE QUICK BROWN FOX 1234567890"} {
		d := NewLightDecoder(nil)
		feedIntervals(d, TimingPattern(text, 0.1))
		if got := d.Flush(); got != text {
			t.Errorf("decoded %q, want %q", got, text)
		}
	}
}

func TestDecoderSpeedInvariance(t *testing.T) {
	text := "SOS HELP"
	want := func() string {
		d := NewLightDecoder(nil)
		feedIntervals(d, TimingPattern(text, 0.1))
		return d.Flush()
	}()

	for _, k := range []float64{0.5, 2, 4} {
		d := NewLightDecoder(nil)
		feedIntervals(d, TimingPattern(text, 0.1*k))
		if got := d.Flush(); got != want {
			t.Errorf("k=%v: decoded %q, want %q", k, got, want)
		}
	}
}

func TestDecoderFlushIdempotent(t *testing.T) {
	d := NewLightDecoder(nil)
	feedIntervals(d, TimingPattern("TEST", 0.1))
	first := d.Flush()
	second := d.Flush()
	if first != "TEST" || second != first {
		t.Errorf("flushes = %q, %q", first, second)
	}
}

func TestDecoderNoiseRejection(t *testing.T) {
	d := NewLightDecoder(nil)
	// A (.-)：划被一个 10ms 的灭打断，字符间隔里有一个 10ms 的闪光
	feedIntervals(d, []Timing.Interval{
		{State: Timing.StateOn, Start: 0.00, End: 0.10},
		{State: Timing.StateOff, Start: 0.10, End: 0.20},
		{State: Timing.StateOn, Start: 0.20, End: 0.34},
		{State: Timing.StateOff, Start: 0.34, End: 0.35},
		{State: Timing.StateOn, Start: 0.35, End: 0.50},
		{State: Timing.StateOff, Start: 0.50, End: 0.64},
		{State: Timing.StateOn, Start: 0.64, End: 0.65},
		{State: Timing.StateOff, Start: 0.65, End: 0.80},
		// E
		{State: Timing.StateOn, Start: 0.80, End: 0.90},
	})
	if got := d.Flush(); got != "AE" {
		t.Errorf("decoded %q, want AE", got)
	}
}

func TestDecoderUnknownPattern(t *testing.T) {
	d := NewLightDecoder(nil)
	// 5 是 .....，多一个点就不在表里
	feedIntervals(d, seq(0.1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 3, 1))
	if got := d.Flush(); got != "?E" {
		t.Errorf("decoded %q, want ?E", got)
	}
}

func TestDecoderLeadingDash(t *testing.T) {
	// 开头是划：种子偏大，校准期间的区间要用校准后的 unit 重新分类
	for _, text := range []string{"TEST", "OK", "MO TT"} {
		d := NewLightDecoder(nil)
		feedIntervals(d, TimingPattern(text, 0.1))
		if got := d.Flush(); got != text {
			t.Errorf("decoded %q, want %q", got, text)
		}
	}
}

func TestDecoderJitter(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Jitter = 0.1
	cfg.Seed = 7
	gen := NewSignalGenerator(cfg)

	text := "CQ CQ DE FLASH"
	d := NewLightDecoder(nil)
	feedIntervals(d, gen.Intervals(text))
	if got := d.Flush(); got != text {
		t.Errorf("decoded %q, want %q", got, text)
	}
}

// shift 把区间整体后移
func shift(intervals []Timing.Interval, dt float64) []Timing.Interval {
	out := make([]Timing.Interval, len(intervals))
	for i, iv := range intervals {
		out[i] = Timing.Interval{State: iv.State, Start: iv.Start + dt, End: iv.End + dt}
	}
	return out
}

func TestDecoderLeadingFlicker(t *testing.T) {
	tests := []struct {
		flash float64
		want  string
	}{
		{0.02, "PARIS PARIS"},   // 低于毛刺阈值，直接丢掉
		{0.04, "E PARIS PARIS"}, // 高于毛刺阈值，当成一个点
	}
	for _, tt := range tests {
		d := NewLightDecoder(nil)
		feedIntervals(d, []Timing.Interval{
			{State: Timing.StateOn, Start: 0, End: tt.flash},
			{State: Timing.StateOff, Start: tt.flash, End: 1.0},
		})
		feedIntervals(d, shift(TimingPattern("PARIS PARIS", 0.12), 1.0))

		if got := d.Flush(); got != tt.want {
			t.Errorf("flash %.2f: decoded %q, want %q", tt.flash, got, tt.want)
		}
		if u := d.Unit(); math.Abs(u-0.12) > 0.012 {
			t.Errorf("flash %.2f: unit %.3f, want about 0.12", tt.flash, u)
		}
	}
}

func TestDecoderCalibrationSkipsNoiseGap(t *testing.T) {
	d := NewLightDecoder(nil)
	feedIntervals(d, []Timing.Interval{
		{State: Timing.StateOn, Start: 0, End: 0.1},
		{State: Timing.StateOff, Start: 0.1, End: 0.115},
	})
	if got := d.Flush(); got != "E" {
		t.Errorf("decoded %q, want E", got)
	}
	if u := d.Unit(); math.Abs(u-0.1) > 0.01 {
		t.Errorf("unit %.3f, want about 0.1", u)
	}
}

func TestDecoderOverlongPattern(t *testing.T) {
	d := NewLightDecoder(nil)
	// 10 个点之后是字符间隔，再跟一个 T
	steps := []float64{}
	for i := 0; i < 10; i++ {
		steps = append(steps, 1, 1)
	}
	steps[len(steps)-1] = 3
	steps = append(steps, 3)
	feedIntervals(d, seq(0.1, steps...))
	if got := d.Flush(); got != "?T" {
		t.Errorf("decoded %q, want ?T", got)
	}
}

func TestDecoderJitterSeeds(t *testing.T) {
	text := "CQ CQ DE FLASH TEST"

	// ±20% 抖动下，校准结束时 unit 必须落在 1t 的抖动范围内
	for seed := int64(1); seed <= 200; seed++ {
		cfg := DefaultGeneratorConfig()
		cfg.Jitter = 0.2
		cfg.Seed = seed
		d := NewLightDecoder(nil)
		for _, iv := range NewSignalGenerator(cfg).Intervals(text) {
			d.FeedInterval(iv)
			if !d.Snapshot().Calibrating {
				break
			}
		}
		snap := d.Snapshot()
		if snap.Calibrating || snap.Unit < 0.08 || snap.Unit > 0.12 {
			t.Errorf("seed %d: calibrating=%v unit=%.3f", seed, snap.Calibrating, snap.Unit)
		}
	}

	// ±15% 时每个分类都有余量，整段文本必须完全正确
	for seed := int64(1); seed <= 100; seed++ {
		cfg := DefaultGeneratorConfig()
		cfg.Jitter = 0.15
		cfg.Seed = seed
		d := NewLightDecoder(nil)
		feedIntervals(d, NewSignalGenerator(cfg).Intervals(text))
		if got := d.Flush(); got != text {
			t.Errorf("seed %d: decoded %q", seed, got)
		}
	}
}

func TestDecoderTracksSlowingSender(t *testing.T) {
	text := "PARIS PARIS PARIS PARIS"
	pattern := TimingPattern(text, 0.1)
	total := pattern[len(pattern)-1].End

	// 发送速度从 0.1s 逐渐放慢到 0.13s
	var drifted []Timing.Interval
	t0 := 0.0
	for _, iv := range pattern {
		scale := 1.0 + 0.3*iv.Start/total
		d := iv.Duration() * scale
		drifted = append(drifted, Timing.Interval{State: iv.State, Start: t0, End: t0 + d})
		t0 += d
	}

	d := NewLightDecoder(nil)
	feedIntervals(d, drifted)
	if got := d.Flush(); got != text {
		t.Errorf("decoded %q, want %q", got, text)
	}
	if u := d.Unit(); u < 0.115 || u > 0.14 {
		t.Errorf("final unit %.3f, want about 0.13", u)
	}
}

func TestDecoderSamples(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Noise = 0.02
	cfg.OnLevel = 0.95
	cfg.OffLevel = 0.05
	gen := NewSignalGenerator(cfg)

	d := NewLightDecoder(nil)
	for _, s := range gen.Samples("HELLO WORLD") {
		d.Feed(s)
	}

	// 结尾的静默已经超过单词间隔，不用 Flush 也应该出完
	if got := d.Text(); got != "HELLO WORLD" {
		t.Errorf("live text = %q", got)
	}
	if got := d.Flush(); got != "HELLO WORLD" {
		t.Errorf("Flush() = %q", got)
	}

	snap := d.Snapshot()
	if snap.Unit < 0.08 || snap.Unit > 0.12 {
		t.Errorf("unit = %.3f", snap.Unit)
	}
	if snap.State != "OFF" || snap.Pending != "" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestDecoderFlushClosesOpenMark(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.TailOut = 0
	gen := NewSignalGenerator(cfg)

	d := NewLightDecoder(nil)
	samples := gen.Samples("IT")
	for _, s := range samples {
		d.Feed(s)
	}
	// 最后一个划还亮着
	if got := d.Flush(); got != "IT" {
		t.Errorf("Flush() = %q, want IT", got)
	}
}

func TestDecoderReset(t *testing.T) {
	d := NewLightDecoder(nil)
	feedIntervals(d, TimingPattern("ABC", 0.1))
	d.Flush()
	d.Reset()
	if d.Text() != "" || d.Snapshot().Samples != 0 {
		t.Error("Reset did not clear state")
	}
	feedIntervals(d, TimingPattern("XYZ", 0.2))
	if got := d.Flush(); got != "XYZ" {
		t.Errorf("after reset decoded %q", got)
	}
}
