package flashcw

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeToneWav(t *testing.T, text string, sampleRate int) string {
	t.Helper()
	gen := NewSignalGenerator(DefaultGeneratorConfig())
	path := filepath.Join(t.TempDir(), "tone.wav")
	w, err := CreateWav(path, sampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSamples(gen.ToneAudio(text, sampleRate, 1000)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWavRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.wav")
	w, err := CreateWav(path, 8000)
	if err != nil {
		t.Fatal(err)
	}
	in := []float32{0, 0.5, -0.5, 1.5, -1}
	if err := w.WriteSamples(in); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenWav(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.SampleRate != 8000 || r.Channels != 1 || r.DataSize != 10 {
		t.Fatalf("header = %d Hz, %d ch, %d bytes", r.SampleRate, r.Channels, r.DataSize)
	}

	out, err := r.ReadSamples(100)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 0.5, -0.5, 1, -1}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-3 {
			t.Errorf("sample %d = %v, want %v", i, out[i], want[i])
		}
	}
	if _, err := r.ReadSamples(10); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want EOF", err)
	}
}

func TestWavReaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenWav(path); err == nil {
		t.Error("expected error for garbage file")
	}
}

func TestWavToneSource(t *testing.T) {
	path := writeToneWav(t, "PARIS", 8000)

	cfg := DefaultConfig().Tone
	src, err := OpenWavTone(path, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	// 48kHz/480 的帧时长换算到 8kHz 文件
	if math.Abs(src.FrameRate()-100) > 1e-9 {
		t.Errorf("frame rate = %v", src.FrameRate())
	}

	d := NewLightDecoder(nil)
	for {
		s, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		d.Feed(s)
	}
	if got := d.Flush(); got != "PARIS" {
		t.Errorf("decoded %q, want PARIS", got)
	}
}

func TestOpenWavToneNyquist(t *testing.T) {
	path := writeToneWav(t, "E", 8000)
	cfg := DefaultConfig().Tone
	cfg.ToneHz = 5000
	if _, err := OpenWavTone(path, cfg); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("err = %v", err)
	}
}
