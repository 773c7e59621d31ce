package flashcw

import (
	"encoding/binary"
	"io"
	"os"
)

// WavWriter 单声道 16-bit PCM WAV 写入
// 头部先写占位，Close 时回填长度
type WavWriter struct {
	w          io.WriteSeeker
	closer     io.Closer
	sampleRate int
	dataSize   int
}

// CreateWav 创建文件
func CreateWav(filename string, sampleRate int) (*WavWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w, err := NewWavWriter(f, sampleRate)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWavWriter 写到任意可 Seek 的目标
func NewWavWriter(w io.WriteSeeker, sampleRate int) (*WavWriter, error) {
	if _, err := w.Write(wavHeader(sampleRate, 0)); err != nil {
		return nil, err
	}
	return &WavWriter{w: w, sampleRate: sampleRate}, nil
}

// WriteSamples 写入 -1~1 的采样点，超出部分限幅
func (w *WavWriter) WriteSamples(samples []float32) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*32767)))
	}
	n, err := w.w.Write(buf)
	w.dataSize += n
	return err
}

// Close 回填头部并关闭
func (w *WavWriter) Close() error {
	if _, err := w.w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.w.Write(wavHeader(w.sampleRate, w.dataSize)); err != nil {
		return err
	}
	if _, err := w.w.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// wavHeader 44 字节的标准 PCM 头，单声道 16-bit
func wavHeader(sampleRate, dataSize int) []byte {
	h := make([]byte, 44)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+dataSize))
	copy(h[8:], "WAVE")

	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:], 1) // 单声道
	binary.LittleEndian.PutUint32(h[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(h[32:], 2)
	binary.LittleEndian.PutUint16(h[34:], 16)

	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(dataSize))
	return h
}
