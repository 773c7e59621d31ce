package main

import (
	"math"
	"math/rand"
	"testing"
)

func TestCalculateCER(t *testing.T) {
	tests := []struct {
		ref, hyp string
		cer      float64
		dist     int
	}{
		{"PARIS", "PARIS", 0, 0},
		{"PARIS", "PARIX", 20, 1},
		{"PARIS", "PAIS", 20, 1},
		{"SOS", "", 100, 3},
		{"", "", 0, 0},
		{"", "E", 100, 1},
		{" 73 ", "73", 0, 0},
	}
	for _, tt := range tests {
		cer, dist := CalculateCER(tt.ref, tt.hyp)
		if math.Abs(cer-tt.cer) > 1e-9 || dist != tt.dist {
			t.Errorf("CalculateCER(%q, %q) = %v, %d; want %v, %d", tt.ref, tt.hyp, cer, dist, tt.cer, tt.dist)
		}
	}
}

func TestApplyEffectsSilence(t *testing.T) {
	out := ApplyEffects(make([]float32, 100), 8000, ChannelEffects{SNRdB: 0}, rand.New(rand.NewSource(1)))
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %v, want untouched silence", i, v)
		}
	}
}

func TestDecodeCleanCases(t *testing.T) {
	cases := []TestCase{
		{Name: "frames", Path: PathFrames, Text: "CQ DE BG", WPM: 8, FPS: 30},
		{Name: "tone", Path: PathTone, Text: "CQ DE BG", WPM: 15, SNR: 40},
	}
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			if got := Decode(tc, 1); got != tc.Text {
				t.Errorf("decoded %q, want %q", got, tc.Text)
			}
		})
	}
}
