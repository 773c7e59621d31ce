package Timing

import (
	"math"
	"sort"
)

/*
StatisticalAnalyzer 统计最近 N 个亮区间的时长分布，判断点划是否分得开。

时长都按当前 unit 归一化 (dur/unit)，理想情况下点在 1.0 附近，划在 3.0 附近。
排序后在中间区域找最大的断层，把数据切成点集和划集，
再用变异系数算一个置信度。它不参与分类，只用于诊断和会话摘要。
*/
type StatisticalAnalyzer struct {
	windowSize int
	history    []float64
	cursor     int
	full       bool
}

// SignalStats 点或划的统计特征 (unit 倍数)
type SignalStats struct {
	Mean   float64
	StdDev float64
	Count  int
}

// TimingStats 分析结果
type TimingStats struct {
	Split      float64     // 点划之间的断层中点
	Dot        SignalStats // 点
	Dash       SignalStats // 划
	Ratio      float64     // 划/点 均值比，理想为 3
	Confidence float64     // 0.0 - 1.0
	Valid      bool
}

// minSplitGap 点划之间至少要有这么大的断层 (unit 倍数)
const minSplitGap = 0.8

// NewAnalyzer 创建分析器
func NewAnalyzer(size int) *StatisticalAnalyzer {
	if size < 4 {
		size = 4
	}
	return &StatisticalAnalyzer{
		windowSize: size,
		history:    make([]float64, size),
	}
}

// AddObservation 添加一个归一化后的亮区间时长
func (s *StatisticalAnalyzer) AddObservation(units float64) {
	if math.IsNaN(units) || math.IsInf(units, 0) {
		return
	}
	s.history[s.cursor] = units
	s.cursor = (s.cursor + 1) % s.windowSize
	if s.cursor == 0 {
		s.full = true
	}
}

// Reset 清空窗口
func (s *StatisticalAnalyzer) Reset() {
	s.cursor = 0
	s.full = false
}

// Analyze 执行统计分析
func (s *StatisticalAnalyzer) Analyze() TimingStats {
	if !s.full {
		return TimingStats{}
	}

	data := make([]float64, s.windowSize)
	copy(data, s.history)
	sort.Float64s(data)

	// 避开首尾极端值
	maxGap := 0.0
	splitIndex := -1
	startIndex := int(float64(s.windowSize) * 0.2)
	endIndex := int(float64(s.windowSize) * 0.8)
	for i := startIndex; i < endIndex && i+1 < len(data); i++ {
		gap := data[i+1] - data[i]
		if gap > maxGap {
			maxGap = gap
			splitIndex = i
		}
	}

	// 全是点或全是划，统计失效
	if splitIndex < 0 || maxGap < minSplitGap {
		return TimingStats{}
	}

	dots := data[:splitIndex+1]
	dashes := data[splitIndex+1:]
	dotStats := calculateStats(dots)
	dashStats := calculateStats(dashes)

	avgCV := (dotStats.StdDev/dotStats.Mean + dashStats.StdDev/dashStats.Mean) / 2.0
	confidence := 1.0 - avgCV
	if confidence < 0 {
		confidence = 0.1
	}

	return TimingStats{
		Split:      (dots[len(dots)-1] + dashes[0]) / 2.0,
		Dot:        dotStats,
		Dash:       dashStats,
		Ratio:      dashStats.Mean / dotStats.Mean,
		Confidence: confidence,
		Valid:      true,
	}
}

func calculateStats(data []float64) SignalStats {
	if len(data) == 0 {
		return SignalStats{}
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return SignalStats{
		Mean:   mean,
		StdDev: math.Sqrt(varianceSum / float64(len(data))),
		Count:  len(data),
	}
}
