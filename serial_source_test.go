package flashcw

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// MockSerialPort 模拟串口
type MockSerialPort struct {
	ReadBuffer *bytes.Buffer
	Closed     bool
}

func NewMockSerialPort(data string) *MockSerialPort {
	return &MockSerialPort{ReadBuffer: bytes.NewBufferString(data)}
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	return m.ReadBuffer.Read(p)
}

func (m *MockSerialPort) Close() error {
	m.Closed = true
	return nil
}

func TestSerialSensorTimestamped(t *testing.T) {
	port := NewMockSerialPort("0.00,0.1\r\n0.05,0.8\n\n0.10,0.9")
	src := NewSerialSensorSource(port)

	samples, bad := drain(t, src)
	if len(bad) != 0 || len(samples) != 3 {
		t.Fatalf("samples=%v bad=%v", samples, bad)
	}
	if samples[1].Timestamp != 0.05 || samples[1].Value != 0.8 {
		t.Errorf("sample = %+v", samples[1])
	}
	// 没有换行的最后一行也要读到
	if samples[2].Value != 0.9 {
		t.Errorf("last sample = %+v", samples[2])
	}

	if err := src.Close(); err != nil || !port.Closed {
		t.Error("Close did not close the port")
	}
}

func TestSerialSensorWallClock(t *testing.T) {
	src := NewSerialSensorSource(NewMockSerialPort("512\n0.5\n"))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	src.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 100 * time.Millisecond)
	}

	first, err := src.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := src.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Value != 512 || second.Value != 0.5 {
		t.Errorf("values = %v, %v", first.Value, second.Value)
	}
	if !(second.Timestamp > first.Timestamp) {
		t.Errorf("timestamps not increasing: %v, %v", first.Timestamp, second.Timestamp)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want EOF", err)
	}
}

func TestSerialSensorMalformed(t *testing.T) {
	src := NewSerialSensorSource(NewMockSerialPort("0.1,0.2\nhello\n0.2,0.3,0.4\n0.3,0.4\n"))
	samples, bad := drain(t, src)
	if len(samples) != 2 || len(bad) != 2 {
		t.Fatalf("samples=%v bad=%v", samples, bad)
	}
	var se *SampleError
	if !errors.As(bad[0], &se) || se.Line != 2 {
		t.Errorf("error = %v", bad[0])
	}
}

func TestSerialSensorNotOpen(t *testing.T) {
	src := &SerialSensorSource{}
	if _, err := src.Next(context.Background()); err == nil {
		t.Error("expected error on closed source")
	}
	if _, err := OpenSerialSensor("", 9600, 0); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("empty port err = %v", err)
	}
}
