package flashcw

import (
	"bufio"
	"fmt"
	"os"
)

// SignalDebugger 定义调试器接口
// 解码器只依赖这个接口，不依赖具体的文件操作
type SignalDebugger interface {
	Record(timestamp, raw, conditioned, enter, exit float64, state bool, unit float64)
	Close() error
}

// CsvFileDebugger 把每一帧的中间信号写成 CSV，方便用表格软件画图
type CsvFileDebugger struct {
	file   *os.File
	writer *bufio.Writer
}

// NewCsvFileDebugger 创建一个新的 CSV 调试器
func NewCsvFileDebugger(filename string) (*CsvFileDebugger, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create debug trace: %w", err)
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("Timestamp,Raw,Conditioned,EnterOn,ExitOn,State,Unit\n"); err != nil {
		f.Close()
		return nil, err
	}

	return &CsvFileDebugger{
		file:   f,
		writer: w,
	}, nil
}

// Record 记录单帧数据
func (d *CsvFileDebugger) Record(timestamp, raw, conditioned, enter, exit float64, state bool, unit float64) {
	stateVal := 0
	if state {
		stateVal = 1
	}
	fmt.Fprintf(d.writer, "%.4f,%f,%f,%f,%f,%d,%.4f\n", timestamp, raw, conditioned, enter, exit, stateVal, unit)
}

// Close 刷新缓冲区并关闭文件
func (d *CsvFileDebugger) Close() error {
	if err := d.writer.Flush(); err != nil {
		d.file.Close()
		return err
	}
	return d.file.Close()
}

// NoOpDebugger 空实现，不记录数据时使用
// 这样可以避免在核心代码中写大量的 if d.debugger != nil check
type NoOpDebugger struct{}

func (d *NoOpDebugger) Record(timestamp, raw, conditioned, enter, exit float64, state bool, unit float64) {
}
func (d *NoOpDebugger) Close() error { return nil }
