package flashcw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// WavReader 16-bit PCM WAV 读取，多声道时只取第一个声道
type WavReader struct {
	r          io.ReadSeeker
	closer     io.Closer
	SampleRate int
	Channels   int
	DataSize   int
	remaining  int
	dataStart  int64
}

// OpenWav 打开 WAV 文件
func OpenWav(filename string) (*WavReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	wr, err := NewWavReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	wr.closer = f
	return wr, nil
}

// NewWavReader 解析头部，返回时已经定位到数据开始处
func NewWavReader(r io.ReadSeeker) (*WavReader, error) {
	riff := make([]byte, 12)
	if _, err := io.ReadFull(r, riff); err != nil {
		return nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, errors.New("invalid wav file")
	}

	wr := &WavReader{r: r}
	var bits int
	foundFmt := false
	chunk := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, errors.New("invalid wav file: missing fmt or data chunk")
			}
			return nil, err
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		padding := size % 2

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("fmt chunk too small")
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, err
			}
			if _, err := r.Seek(padding, io.SeekCurrent); err != nil {
				return nil, err
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 1 {
				return nil, fmt.Errorf("only PCM wav supported, got format %d", format)
			}
			wr.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			wr.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
			foundFmt = true

		case "data":
			if !foundFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			if bits != 16 {
				return nil, fmt.Errorf("only 16-bit wav supported, got %d", bits)
			}
			if wr.Channels < 1 {
				return nil, fmt.Errorf("invalid channel count %d", wr.Channels)
			}
			start, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, err
			}
			wr.DataSize = int(size)
			wr.remaining = int(size)
			wr.dataStart = start
			return wr, nil

		default:
			if _, err := r.Seek(size+padding, io.SeekCurrent); err != nil {
				return nil, err
			}
		}
	}
}

// Duration 音频时长 (秒)
func (r *WavReader) Duration() float64 {
	return float64(r.DataSize) / float64(2*r.Channels*r.SampleRate)
}

// ReadSamples 读取最多 count 个采样点 (每声道)，归一化到 -1~1
// 数据读完后返回 io.EOF
func (r *WavReader) ReadSamples(count int) ([]float32, error) {
	frameBytes := 2 * r.Channels
	want := count * frameBytes
	if want > r.remaining {
		want = r.remaining - r.remaining%frameBytes
	}
	if want <= 0 {
		return nil, io.EOF
	}

	buf := make([]byte, want)
	n, err := io.ReadFull(r.r, buf)
	r.remaining -= n
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	frames := n / frameBytes
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		v := int16(binary.LittleEndian.Uint16(buf[i*frameBytes:]))
		out[i] = float32(v) / 32768.0
	}
	return out, nil
}

// Rewind 回到数据开头
func (r *WavReader) Rewind() error {
	if _, err := r.r.Seek(r.dataStart, io.SeekStart); err != nil {
		return fmt.Errorf("rewind wav: %w", err)
	}
	r.remaining = r.DataSize
	return nil
}

// Close 关闭底层文件
func (r *WavReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
