package Timing

import (
	"math"
	"testing"
)

func on(start, dur float64) Interval {
	return Interval{State: StateOn, Start: start, End: start + dur}
}

func off(start, dur float64) Interval {
	return Interval{State: StateOff, Start: start, End: start + dur}
}

func TestUnitEstimatorFixedSeed(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	cfg.CalibrationSymbols = 0

	e := NewUnitEstimator(cfg)
	if !e.Seeded() || e.Calibrating() {
		t.Fatal("fixed seed estimator should be ready immediately")
	}
	if e.Unit() != 0.1 {
		t.Errorf("Unit() = %v, want 0.1", e.Unit())
	}
	if math.Abs(e.WPM()-12) > 1e-9 {
		t.Errorf("WPM() = %v, want 12", e.WPM())
	}
}

func TestUnitEstimatorCalibration(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	cfg.CalibrationSymbols = 3
	e := NewUnitEstimator(cfg)
	if e.Seeded() {
		t.Fatal("should wait for the first mark")
	}

	// 灭区间不会播种
	e = e.Calibrate(off(0, 1.0))
	if e.Seeded() {
		t.Fatal("gap must not seed the unit")
	}

	// 只有一个区间时是暂定值
	e = e.Calibrate(on(1.0, 0.3))
	if e.Unit() != 0.3 || !e.Calibrating() || e.Confirmed() {
		t.Fatalf("seed = %v confirmed=%v, want tentative 0.3", e.Unit(), e.Confirmed())
	}
	// 一个点还不够，两个相近的 1t 才算数
	e = e.Calibrate(on(1.4, 0.1))
	if e.Confirmed() {
		t.Errorf("single dot confirmed unit %v", e.Unit())
	}
	e = e.Calibrate(off(1.5, 0.12))
	if !e.Confirmed() || math.Abs(e.Unit()-0.11) > 1e-12 {
		t.Errorf("unit = %v confirmed=%v, want 0.11", e.Unit(), e.Confirmed())
	}
	// 太短的当成毛刺
	e = e.Calibrate(off(1.62, 0.01))
	if math.Abs(e.Unit()-0.11) > 1e-12 {
		t.Errorf("glitch changed unit to %v", e.Unit())
	}
	if e.Calibrating() {
		t.Error("calibration window should be consumed")
	}
	// 窗口结束后 Calibrate 不再改变 unit
	e = e.Calibrate(on(2.0, 0.05))
	e = e.Calibrate(off(2.05, 0.05))
	if math.Abs(e.Unit()-0.11) > 1e-12 {
		t.Errorf("unit changed after calibration: %v", e.Unit())
	}
}

func TestUnitEstimatorCalibratesFromGaps(t *testing.T) {
	e := NewUnitEstimator(DefaultEstimatorConfig())

	// O (---)：亮区间全是划，只有字符内间隔是 1t
	e = e.Calibrate(on(0, 0.3))
	e = e.Calibrate(off(0.3, 0.1))
	e = e.Calibrate(on(0.4, 0.3))
	e = e.Calibrate(off(0.7, 0.1))
	if math.Abs(e.Unit()-0.1) > 1e-12 {
		t.Errorf("unit = %v, want 0.1", e.Unit())
	}

	e = e.FinishCalibration()
	if e.Calibrating() {
		t.Error("FinishCalibration should end the window")
	}
}

func TestUnitEstimatorIgnoresLeadingFlicker(t *testing.T) {
	e := NewUnitEstimator(DefaultEstimatorConfig())

	// 开头 40ms 的闪烁，之后才是 0.12s 的正常发报
	e = e.Calibrate(on(0, 0.04))
	e = e.Calibrate(off(0.04, 0.96))
	if e.Confirmed() {
		t.Fatalf("flicker confirmed unit %v", e.Unit())
	}

	// 校准可以把 unit 往上调
	e = e.Calibrate(on(1.0, 0.12))
	e = e.Calibrate(off(1.12, 0.12))
	if !e.Confirmed() || math.Abs(e.Unit()-0.12) > 1e-12 {
		t.Errorf("unit = %v confirmed=%v, want 0.12", e.Unit(), e.Confirmed())
	}

	e = e.Calibrate(on(1.24, 0.36))
	e = e.Calibrate(off(1.60, 0.12))
	if math.Abs(e.Unit()-0.12) > 1e-12 {
		t.Errorf("unit = %v, want 0.12", e.Unit())
	}
}

func TestUnitEstimatorCalibrationSkipsNoise(t *testing.T) {
	// 亮 0.1 后面跟一个 40ms 的毛刺灭，毛刺不能当成 unit
	e := NewUnitEstimator(DefaultEstimatorConfig())
	e = e.Calibrate(on(0, 0.1))
	e = e.Calibrate(off(0.1, 0.04))
	e = e.FinishCalibration()
	if e.Calibrating() || math.Abs(e.Unit()-0.1) > 1e-12 {
		t.Errorf("unit = %v, want 0.1", e.Unit())
	}

	// 两个毛刺互相 "确认" 也不行
	e = NewUnitEstimator(DefaultEstimatorConfig())
	for _, iv := range []Interval{
		on(0, 0.1), off(0.1, 0.01), on(0.11, 0.01),
		off(0.12, 0.1), on(0.22, 0.1), off(0.32, 0.1),
	} {
		e = e.Calibrate(iv)
	}
	if math.Abs(e.Unit()-0.1) > 1e-12 {
		t.Errorf("glitch pair moved unit to %v", e.Unit())
	}
}

func TestUnitEstimatorCalibrateValueSemantics(t *testing.T) {
	seeded := NewUnitEstimator(DefaultEstimatorConfig()).Calibrate(on(0, 0.3))

	a := seeded.Calibrate(off(0.3, 0.1))
	b := seeded.Calibrate(off(0.3, 0.3))
	if a.Confirmed() || !b.Confirmed() || b.Unit() != 0.3 {
		t.Fatalf("a=%v/%v b=%v/%v", a.Unit(), a.Confirmed(), b.Unit(), b.Confirmed())
	}

	// b 的候选不能写进 a
	a = a.Calibrate(on(0.4, 0.1))
	if math.Abs(a.Unit()-0.1) > 1e-12 {
		t.Errorf("a.Unit() = %v, want 0.1", a.Unit())
	}
}

func TestUnitEstimatorClamp(t *testing.T) {
	cfg := DefaultEstimatorConfig()

	e := NewUnitEstimator(cfg).Calibrate(on(0, 5.0))
	if e.Unit() != cfg.MaxUnit {
		t.Errorf("long seed not clamped: %v", e.Unit())
	}
	e = NewUnitEstimator(cfg).Calibrate(on(0, 0.001))
	if e.Unit() != cfg.MinUnit {
		t.Errorf("short seed not clamped: %v", e.Unit())
	}
}

func TestUnitEstimatorObserve(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	cfg.CalibrationSymbols = 0
	e := NewUnitEstimator(cfg)

	// 划按 1/3 还原，标准时长不改变 unit
	e2 := e.Observe(on(0, 0.3), ClassDash)
	if math.Abs(e2.Unit()-0.1) > 1e-12 {
		t.Errorf("dash moved unit to %v", e2.Unit())
	}
	if e2.Updates() != 1 {
		t.Errorf("Updates() = %d, want 1", e2.Updates())
	}

	// 值语义：原值不变
	e3 := e.Observe(on(0, 0.15), ClassDot)
	if e.Unit() != 0.1 {
		t.Errorf("Observe mutated receiver: %v", e.Unit())
	}
	if e3.Unit() <= 0.1 {
		t.Errorf("longer dot should raise the unit, got %v", e3.Unit())
	}

	// 分界类和毛刺不参与
	for _, c := range []Class{ClassNoise, ClassCharGap, ClassWordGap} {
		if got := e.Observe(off(0, 0.35), c).Unit(); got != 0.1 {
			t.Errorf("%v changed unit to %v", c, got)
		}
	}

	// 超出 [0.3u, 10u] 的样本剔除
	if got := e.Observe(off(0, 0.02), ClassIntraGap).Unit(); got != 0.1 {
		t.Errorf("short outlier changed unit to %v", got)
	}
	if got := e.Observe(on(0, 1.5), ClassDash).Unit(); got != 0.1 {
		t.Errorf("long outlier changed unit to %v", got)
	}
}

func TestUnitEstimatorTracksDrift(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	cfg.CalibrationSymbols = 0
	e := NewUnitEstimator(cfg)

	for i := 0; i < 50; i++ {
		e = e.Observe(on(float64(i), 0.12), ClassDot)
	}
	if math.Abs(e.Unit()-0.12) > 1e-3 {
		t.Errorf("unit = %v, want about 0.12", e.Unit())
	}
}

func TestUnitEstimatorIgnoresBeforeSeed(t *testing.T) {
	e := NewUnitEstimator(DefaultEstimatorConfig())
	e = e.Observe(off(0, 0.3), ClassIntraGap)
	if e.Seeded() || e.Updates() != 0 {
		t.Error("observation before seeding should be ignored")
	}
}
