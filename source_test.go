package flashcw

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
)

func drain(t *testing.T, src SampleSource) ([]IntensitySample, []error) {
	t.Helper()
	var out []IntensitySample
	var bad []error
	for {
		s, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out, bad
		}
		if errors.Is(err, ErrMalformedSample) {
			bad = append(bad, err)
			continue
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, s)
	}
}

func TestCsvTraceSource(t *testing.T) {
	input := `timestamp,value
0.000,0.1
0.033, 0.9
# comment
0.066,nan
0.100,
0.133,abc
0.166,0.2
`
	src := NewCsvTraceSource(strings.NewReader(input), 30)
	samples, bad := drain(t, src)

	if len(samples) != 5 {
		t.Fatalf("got %d samples, want 5", len(samples))
	}
	if samples[1].Value != 0.9 || samples[1].Timestamp != 0.033 {
		t.Errorf("sample 1 = %+v", samples[1])
	}
	if samples[2].Valid() || samples[3].Valid() {
		t.Error("nan and empty values should produce invalid samples")
	}
	if len(bad) != 1 {
		t.Fatalf("malformed = %v", bad)
	}
	var se *SampleError
	if !errors.As(bad[0], &se) || !strings.Contains(se.Text, "abc") {
		t.Errorf("error = %v", bad[0])
	}
}

func TestCsvTraceSingleColumn(t *testing.T) {
	src := NewCsvTraceSource(strings.NewReader("0.1\n0.5\n0.9\n"), 10)
	samples, bad := drain(t, src)
	if len(bad) != 0 || len(samples) != 3 {
		t.Fatalf("samples=%v bad=%v", samples, bad)
	}
	if math.Abs(samples[2].Timestamp-0.2) > 1e-12 {
		t.Errorf("timestamp = %v, want 0.2", samples[2].Timestamp)
	}
}

func TestWriteTraceRoundTrip(t *testing.T) {
	want := []IntensitySample{
		{Timestamp: 0, Value: 0.25},
		{Timestamp: 1.0 / 30, Value: math.NaN()},
		{Timestamp: 2.0 / 30, Value: 1},
	}
	var buf bytes.Buffer
	if err := WriteTrace(&buf, want); err != nil {
		t.Fatal(err)
	}

	got, bad := drain(t, NewCsvTraceSource(&buf, 0))
	if len(bad) != 0 || len(got) != len(want) {
		t.Fatalf("got %v bad %v", got, bad)
	}
	for i := range want {
		if math.Abs(got[i].Timestamp-want[i].Timestamp) > 1e-6 {
			t.Errorf("%d: timestamp %v", i, got[i].Timestamp)
		}
		if want[i].Valid() != got[i].Valid() || (want[i].Valid() && math.Abs(got[i].Value-want[i].Value) > 1e-4) {
			t.Errorf("%d: value %v, want %v", i, got[i].Value, want[i].Value)
		}
	}
}

func TestSliceSourceCancel(t *testing.T) {
	src := NewSliceSource([]IntensitySample{{Timestamp: 0, Value: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestDecodeTraceFile(t *testing.T) {
	// 生成 -> 写 CSV -> 读回 -> 解码
	gen := NewSignalGenerator(DefaultGeneratorConfig())
	var buf bytes.Buffer
	if err := WriteTrace(&buf, gen.Samples("CQ DE BG")); err != nil {
		t.Fatal(err)
	}

	samples, _ := drain(t, NewCsvTraceSource(&buf, 0))
	d := NewLightDecoder(nil)
	for _, s := range samples {
		d.Feed(s)
	}
	if got := d.Flush(); got != "CQ DE BG" {
		t.Errorf("decoded %q", got)
	}
}
