package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level 日志级别
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Config 日志配置
type Config struct {
	Level  string    // debug | info | warn | error
	Format string    // text | json
	Output io.Writer // 为空时写到 stderr
}

// Logger 带字段的分级日志
type Logger struct {
	level     Level
	format    string
	component string
	out       io.Writer
	mu        *sync.Mutex
	logger    *log.Logger
}

// Field 一个 key=value 字段
type Field struct {
	Key   string
	Value interface{}
}

// New 创建日志器
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		// stdout 留给解码文本
		output = os.Stderr
	}

	return &Logger{
		level:  ParseLevel(cfg.Level),
		format: strings.ToLower(cfg.Format),
		out:    output,
		mu:     &sync.Mutex{},
		logger: log.New(output, "", log.LstdFlags),
	}
}

// Discard 什么都不输出，测试和库默认使用
func Discard() *Logger {
	return New(Config{Level: "error", Output: io.Discard})
}

// WithComponent 派生一个带组件名的子日志器
func (l *Logger) WithComponent(component string) *Logger {
	child := *l
	child.component = component
	if component != "" {
		child.logger = log.New(l.out, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	}
	return &child
}

// Enabled 该级别是否会输出
func (l *Logger) Enabled(level Level) bool {
	return l.level <= level
}

// Debug 调试信息
func (l *Logger) Debug(msg string, fields ...Field) {
	if l.Enabled(DebugLevel) {
		l.log(DebugLevel, msg, fields...)
	}
}

// Info 普通信息
func (l *Logger) Info(msg string, fields ...Field) {
	if l.Enabled(InfoLevel) {
		l.log(InfoLevel, msg, fields...)
	}
}

// Warn 警告
func (l *Logger) Warn(msg string, fields ...Field) {
	if l.Enabled(WarnLevel) {
		l.log(WarnLevel, msg, fields...)
	}
}

// Error 错误
func (l *Logger) Error(msg string, fields ...Field) {
	if l.Enabled(ErrorLevel) {
		l.log(ErrorLevel, msg, fields...)
	}
}

func (l *Logger) log(level Level, msg string, fields ...Field) {
	if l.format == "json" {
		l.logJSON(level, msg, fields)
		return
	}

	if len(fields) == 0 {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	l.logger.Printf("[%s] %s %s", level, msg, strings.Join(parts, " "))
}

// logJSON 每条一行 JSON，字段平铺在顶层
func (l *Logger) logJSON(level Level, msg string, fields []Field) {
	entry := make(map[string]interface{}, len(fields)+4)
	for _, f := range fields {
		entry[f.Key] = f.Value
	}
	entry["time"] = time.Now().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if l.component != "" {
		entry["component"] = l.component
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"ERROR","msg":"log marshal failed: %s"}`, err))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(data, '\n'))
}

// ParseLevel 不认识的级别按 info 处理
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// 字段构造

func String(key, val string) Field {
	return Field{Key: key, Value: val}
}

func Int(key string, val int) Field {
	return Field{Key: key, Value: val}
}

func Int64(key string, val int64) Field {
	return Field{Key: key, Value: val}
}

func Bool(key string, val bool) Field {
	return Field{Key: key, Value: val}
}

func Float64(key string, val float64) Field {
	return Field{Key: key, Value: val}
}

func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Value: val.String()}
}

// Error 错误字段，nil 记为 "nil"
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "nil"}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, val interface{}) Field {
	return Field{Key: key, Value: val}
}
