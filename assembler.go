package flashcw

import (
	"strings"

	"flashcw/Timing"
)

// Symbol 点或划
type Symbol byte

const (
	SymbolDot  Symbol = '.'
	SymbolDash Symbol = '-'
)

// AssemblerState 组装器状态
type AssemblerState int

const (
	AssemblerIdle     AssemblerState = iota // 没有待定字符
	AssemblerBuilding                       // 正在收集点划
)

func (s AssemblerState) String() string {
	if s == AssemblerBuilding {
		return "BUILDING"
	}
	return "IDLE"
}

// AssemblerConfig 组装参数
type AssemblerConfig struct {
	UnknownMarker string `mapstructure:"unknown_marker"` // 查不到的序列输出的占位符
	MaxSymbols    int    `mapstructure:"max_symbols"`    // 待定序列最多保留的点划数，超出后整个字符输出占位符，0 表示不限制
	LiveFlush     bool   `mapstructure:"live_flush"`     // 灭的时间超过单词间隔时提前结算字符
}

// DefaultAssemblerConfig 默认值
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		UnknownMarker: "?",
		MaxSymbols:    8,
		LiveFlush:     true,
	}
}

// DecodeEvent 每解出一个字符触发一次
type DecodeEvent struct {
	Char    string // 解出的字符，或者占位符
	Pattern string // 对应的点划序列
	Unknown bool   // 序列不在表里
	Text    string // 到目前为止的全部文本
}

// MorseAssembler 把分类后的区间组装成字符和单词
type MorseAssembler struct {
	cfg          AssemblerConfig
	pending      []Symbol
	text         strings.Builder
	spacePending bool // 下一个字符之前要先写一个空格
	overflow     bool // 待定序列超过 MaxSymbols，下一个分界输出占位符

	chars, unknown int

	OnDecoded func(DecodeEvent)
}

// NewMorseAssembler 创建组装器
func NewMorseAssembler(cfg AssemblerConfig) *MorseAssembler {
	return &MorseAssembler{
		cfg:     cfg,
		pending: make([]Symbol, 0, 8),
	}
}

// Push 输入一个分类结果
func (a *MorseAssembler) Push(c Timing.Class) {
	switch c {
	case Timing.ClassDot:
		a.appendSymbol(SymbolDot)
	case Timing.ClassDash:
		a.appendSymbol(SymbolDash)
	case Timing.ClassCharGap:
		a.ResolveLetter()
	case Timing.ClassWordGap:
		a.ResolveLetter()
		// 空格延迟到下一个字符之前才写，文本首尾不会出现空格
		if a.text.Len() > 0 {
			a.spacePending = true
		}
	}
	// 字符内间隔和毛刺不改变状态
}

// appendSymbol 超长的序列不在字符中间结算，多出来的点划丢掉，只记一个溢出标记
func (a *MorseAssembler) appendSymbol(s Symbol) {
	if a.cfg.MaxSymbols > 0 && len(a.pending) >= a.cfg.MaxSymbols {
		a.overflow = true
		return
	}
	a.pending = append(a.pending, s)
}

// ResolveLetter 结算当前的待定字符，IDLE 时什么都不做
func (a *MorseAssembler) ResolveLetter() {
	if len(a.pending) == 0 {
		return
	}

	pattern := a.Pending()
	a.pending = a.pending[:0]

	char, ok := LookupPattern(pattern)
	if a.overflow {
		char, ok = "", false
		a.overflow = false
	}
	if !ok {
		char = a.cfg.UnknownMarker
		a.unknown++
	}
	if char == "" {
		return
	}

	if a.spacePending {
		a.text.WriteByte(' ')
		a.spacePending = false
	}
	a.text.WriteString(char)
	a.chars++

	if a.OnDecoded != nil {
		a.OnDecoded(DecodeEvent{
			Char:    char,
			Pattern: pattern,
			Unknown: !ok,
			Text:    a.text.String(),
		})
	}
}

// Flush 流结束，结算剩下的字符。重复调用没有副作用。
func (a *MorseAssembler) Flush() string {
	a.ResolveLetter()
	return a.text.String()
}

// Text 已经解出的文本
func (a *MorseAssembler) Text() string {
	return a.text.String()
}

// Pending 待定的点划序列
func (a *MorseAssembler) Pending() string {
	var sb strings.Builder
	for _, s := range a.pending {
		sb.WriteByte(byte(s))
	}
	return sb.String()
}

// State IDLE 或 BUILDING
func (a *MorseAssembler) State() AssemblerState {
	if len(a.pending) > 0 {
		return AssemblerBuilding
	}
	return AssemblerIdle
}

// Counts 已输出的字符数和其中的未知字符数
func (a *MorseAssembler) Counts() (chars, unknown int) {
	return a.chars, a.unknown
}

// Reset 清空所有状态
func (a *MorseAssembler) Reset() {
	a.pending = a.pending[:0]
	a.text.Reset()
	a.spacePending = false
	a.overflow = false
	a.chars, a.unknown = 0, 0
}
