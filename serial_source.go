package flashcw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// SerialPort 串口接口，方便测试 Mock
type SerialPort interface {
	io.ReadCloser
}

// SerialSensorSource 串口光传感器 (例如 Arduino + 光敏电阻)
// 每行一个样本: "value" 或 "timestamp,value"，没有时间戳时用收到的时间。
type SerialSensorSource struct {
	Port     string
	BaudRate int

	conn    SerialPort
	pending []byte
	buf     []byte
	line    int

	// 真实串口读超时返回 EOF，只能当作暂时没有数据
	eofIsTimeout bool

	start time.Time
	now   func() time.Time
}

// OpenSerialSensor 打开串口
func OpenSerialSensor(port string, baudRate int, readTimeout time.Duration) (*SerialSensorSource, error) {
	if port == "" {
		return nil, fmt.Errorf("%w: serial port not set", ErrInvalidSource)
	}
	if readTimeout <= 0 {
		readTimeout = 500 * time.Millisecond
	}
	config := &serial.Config{
		Name:        port,
		Baud:        baudRate,
		ReadTimeout: readTimeout,
	}
	s, err := serial.OpenPort(config)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	src := NewSerialSensorSource(s)
	src.Port = port
	src.BaudRate = baudRate
	src.eofIsTimeout = true
	return src, nil
}

// NewSerialSensorSource 包装一个已经打开的连接，EOF 表示数据结束
func NewSerialSensorSource(conn SerialPort) *SerialSensorSource {
	return &SerialSensorSource{
		conn: conn,
		buf:  make([]byte, 256),
		now:  time.Now,
	}
}

func (s *SerialSensorSource) Next(ctx context.Context) (IntensitySample, error) {
	if s.conn == nil {
		return IntensitySample{}, fmt.Errorf("connection not open")
	}
	for {
		if err := ctx.Err(); err != nil {
			return IntensitySample{}, err
		}

		if idx := bytes.IndexByte(s.pending, '\n'); idx >= 0 {
			raw := strings.TrimSpace(string(s.pending[:idx]))
			s.pending = s.pending[idx+1:]
			if raw == "" {
				continue
			}
			s.line++
			return s.parse(raw)
		}

		n, err := s.conn.Read(s.buf)
		if n > 0 {
			if s.start.IsZero() {
				s.start = s.now()
			}
			s.pending = append(s.pending, s.buf[:n]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return IntensitySample{}, fmt.Errorf("read serial: %w", err)
			}
			if s.eofIsTimeout {
				continue
			}
			// 最后一行可能没有换行
			if len(bytes.TrimSpace(s.pending)) > 0 {
				s.pending = append(s.pending, '\n')
				continue
			}
			return IntensitySample{}, io.EOF
		}
	}
}

func (s *SerialSensorSource) parse(raw string) (IntensitySample, error) {
	fields := strings.Split(raw, ",")
	var sample IntensitySample
	switch len(fields) {
	case 1:
		sample.Timestamp = s.now().Sub(s.start).Seconds()
	case 2:
		ts, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return IntensitySample{}, &SampleError{Line: s.line, Text: raw, Err: err}
		}
		sample.Timestamp = ts
	default:
		return IntensitySample{}, &SampleError{Line: s.line, Text: raw, Err: fmt.Errorf("expected 1 or 2 fields")}
	}

	v, err := parseIntensity(fields[len(fields)-1])
	if err != nil {
		return IntensitySample{}, &SampleError{Line: s.line, Text: raw, Err: err}
	}
	sample.Value = v
	return sample, nil
}

// Close 关闭串口
func (s *SerialSensorSource) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
