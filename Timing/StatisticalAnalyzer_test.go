package Timing

import (
	"math"
	"testing"
)

func TestAnalyzerSeparatesDotsAndDashes(t *testing.T) {
	a := NewAnalyzer(16)
	for i := 0; i < 16; i++ {
		if i%2 == 0 {
			a.AddObservation(1.0)
		} else {
			a.AddObservation(3.0)
		}
	}

	stats := a.Analyze()
	if !stats.Valid {
		t.Fatal("expected valid stats")
	}
	if stats.Dot.Mean != 1.0 || stats.Dash.Mean != 3.0 {
		t.Errorf("means = %v / %v", stats.Dot.Mean, stats.Dash.Mean)
	}
	if math.Abs(stats.Ratio-3.0) > 1e-9 {
		t.Errorf("Ratio = %v, want 3", stats.Ratio)
	}
	if stats.Split != 2.0 {
		t.Errorf("Split = %v, want 2", stats.Split)
	}
	if stats.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1", stats.Confidence)
	}
}

func TestAnalyzerNeedsBothClusters(t *testing.T) {
	a := NewAnalyzer(8)
	for i := 0; i < 8; i++ {
		a.AddObservation(1.0)
	}
	if a.Analyze().Valid {
		t.Error("single cluster must not be valid")
	}
}

func TestAnalyzerNeedsFullWindow(t *testing.T) {
	a := NewAnalyzer(8)
	a.AddObservation(1.0)
	a.AddObservation(3.0)
	if a.Analyze().Valid {
		t.Error("partial window must not be valid")
	}
	a.Reset()
	if a.Analyze().Valid {
		t.Error("reset window must not be valid")
	}
}
