package flashcw

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedSample 一行数据无法解析，调用方记录后可以继续读
var ErrMalformedSample = errors.New("malformed sample")

// SampleSource 亮度样本的来源
// Next 在数据结束时返回 io.EOF；返回 ErrMalformedSample 时可以继续调用。
type SampleSource interface {
	Next(ctx context.Context) (IntensitySample, error)
	Close() error
}

// SampleError 带行号的解析错误
type SampleError struct {
	Line int
	Text string
	Err  error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *SampleError) Unwrap() error {
	return ErrMalformedSample
}

// SliceSource 内存中的样本
type SliceSource struct {
	samples []IntensitySample
	pos     int
}

// NewSliceSource 例如 NewSliceSource(gen.Samples("SOS"))
func NewSliceSource(samples []IntensitySample) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Next(ctx context.Context) (IntensitySample, error) {
	if err := ctx.Err(); err != nil {
		return IntensitySample{}, err
	}
	if s.pos >= len(s.samples) {
		return IntensitySample{}, io.EOF
	}
	v := s.samples[s.pos]
	s.pos++
	return v, nil
}

func (s *SliceSource) Close() error {
	return nil
}

// CsvTraceSource 读取 "timestamp,value" 格式的亮度记录
// 只有一列时按帧率推算时间戳。第一行不是数字时当作表头跳过。
// 空值和 nan 产生 NaN 样本，交给解码器按坏帧处理。
type CsvTraceSource struct {
	reader    *csv.Reader
	closer    io.Closer
	frameRate float64
	line      int
	frames    int
}

// NewCsvTraceSource frameRate 只在单列数据时使用
func NewCsvTraceSource(r io.Reader, frameRate float64) *CsvTraceSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	src := &CsvTraceSource{reader: cr, frameRate: frameRate}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src
}

// OpenCsvTrace 打开文件
func OpenCsvTrace(path string, frameRate float64) (*CsvTraceSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	return NewCsvTraceSource(f, frameRate), nil
}

func (s *CsvTraceSource) Next(ctx context.Context) (IntensitySample, error) {
	for {
		if err := ctx.Err(); err != nil {
			return IntensitySample{}, err
		}
		record, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return IntensitySample{}, io.EOF
			}
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				s.line++
				return IntensitySample{}, &SampleError{Line: perr.Line, Err: perr.Err}
			}
			return IntensitySample{}, fmt.Errorf("read trace: %w", err)
		}
		s.line++

		sample, err := s.parse(record)
		if err != nil {
			// 表头
			if s.line == 1 && s.frames == 0 {
				continue
			}
			return IntensitySample{}, &SampleError{Line: s.line, Text: strings.Join(record, ","), Err: err}
		}
		s.frames++
		return sample, nil
	}
}

func (s *CsvTraceSource) parse(record []string) (IntensitySample, error) {
	switch len(record) {
	case 1:
		if s.frameRate <= 0 {
			return IntensitySample{}, errors.New("single column trace needs a frame rate")
		}
		v, err := parseIntensity(record[0])
		if err != nil {
			return IntensitySample{}, err
		}
		return IntensitySample{Timestamp: float64(s.frames) / s.frameRate, Value: v}, nil
	case 2:
		ts, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) {
			return IntensitySample{}, fmt.Errorf("bad timestamp %q", record[0])
		}
		v, err := parseIntensity(record[1])
		if err != nil {
			return IntensitySample{}, err
		}
		return IntensitySample{Timestamp: ts, Value: v}, nil
	default:
		return IntensitySample{}, fmt.Errorf("expected 1 or 2 fields, got %d", len(record))
	}
}

// parseIntensity 空值和 nan 是合法的坏帧
func parseIntensity(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" || strings.EqualFold(field, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", field)
	}
	return v, nil
}

func (s *CsvTraceSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// WriteTrace 写出 CsvTraceSource 能读回的记录
func WriteTrace(w io.Writer, samples []IntensitySample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "value"}); err != nil {
		return err
	}
	for _, s := range samples {
		value := "nan"
		if s.Valid() {
			value = strconv.FormatFloat(s.Value, 'f', 4, 64)
		}
		if err := cw.Write([]string{strconv.FormatFloat(s.Timestamp, 'f', 6, 64), value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var _ SampleSource = (*SliceSource)(nil)
var _ SampleSource = (*CsvTraceSource)(nil)
