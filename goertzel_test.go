package flashcw

import (
	"math"
	"testing"
)

func TestGoertzelAmplitude(t *testing.T) {
	const fs = 8000.0
	g := NewGoertzel(fs, 1000)
	for i := 0; i < 400; i++ {
		g.ProcessSample(0.5 * math.Sin(2*math.Pi*1000*float64(i)/fs))
	}
	if a := g.Amplitude(); math.Abs(a-0.5) > 0.02 {
		t.Errorf("on-tone amplitude = %v, want 0.5", a)
	}

	g.Reset()
	for i := 0; i < 400; i++ {
		g.ProcessSample(0.5 * math.Sin(2*math.Pi*2500*float64(i)/fs))
	}
	if a := g.Amplitude(); a > 0.05 {
		t.Errorf("off-tone amplitude = %v, want ~0", a)
	}
}

func TestToneDetectorFrames(t *testing.T) {
	gen := NewSignalGenerator(DefaultGeneratorConfig())
	audio := gen.ToneAudio("T", 8000, 1000)

	det := NewToneDetector(8000, 1000, 80, 0.999)
	if det.FrameRate() != 100 {
		t.Fatalf("frame rate = %v", det.FrameRate())
	}
	// 分两次输入，块要能跨调用拼接
	frames := det.Process(audio[:1234])
	frames = append(frames, det.Process(audio[1234:])...)
	if len(frames) != len(audio)/80 {
		t.Fatalf("frames = %d, want %d", len(frames), len(audio)/80)
	}

	// 前导 0.5s 是静音，划在 0.5s~0.8s
	for i, f := range frames {
		switch {
		case f.Timestamp < 0.5:
			if f.Value > 0.05 {
				t.Errorf("frame %d (%.2fs) = %v during silence", i, f.Timestamp, f.Value)
			}
		case f.Timestamp >= 0.5 && f.Timestamp < 0.79:
			if f.Value < 0.9 {
				t.Errorf("frame %d (%.2fs) = %v during tone", i, f.Timestamp, f.Value)
			}
		}
	}
}

func TestToneDecodeEndToEnd(t *testing.T) {
	gen := NewSignalGenerator(DefaultGeneratorConfig())
	audio := gen.ToneAudio("SOS", 8000, 1000)

	det := NewToneDetector(8000, 1000, 80, 0.999)
	d := NewLightDecoder(nil)
	for _, f := range det.Process(audio) {
		d.Feed(f)
	}
	if got := d.Flush(); got != "SOS" {
		t.Errorf("decoded %q, want SOS", got)
	}
}
