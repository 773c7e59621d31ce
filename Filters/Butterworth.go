package Filters

import "math"

// BiquadFilter 二阶 IIR 节，级联实现高阶滤波器
type BiquadFilter struct {
	a0, a1, a2, b1, b2 float64
	z1, z2             float64
}

// Process 处理单个采样点 (转置直接 II 型)
func (f *BiquadFilter) Process(in float64) float64 {
	out := in*f.a0 + f.z1
	f.z1 = in*f.a1 - out*f.b1 + f.z2
	f.z2 = in*f.a2 - out*f.b2
	return out
}

// prime 把延迟线设置为输入恒为 x 时的稳态，避免起始阶跃
func (f *BiquadFilter) prime(x float64) {
	f.z1 = x * (1.0 - f.a0)
	f.z2 = x * (f.a2 - f.b2)
}

// ButterworthFilter 由多个 Biquad 节级联组成的巴特沃斯低通
type ButterworthFilter struct {
	sections []*BiquadFilter
}

// NewButterworthLowpass 创建 N 阶巴特沃斯低通滤波器
// order: 阶数，奇数会向上取偶
// sampleRate: 采样率 (这里是帧率, Hz)
// cutoffFreq: 截止频率 (Hz)
func NewButterworthLowpass(order int, sampleRate, cutoffFreq float64) *ButterworthFilter {
	if order < 2 {
		order = 2
	}
	if order%2 != 0 {
		order++
	}
	// Nyquist 附近 math.Tan 会趋向无穷大
	if cutoffFreq >= sampleRate*0.499 {
		cutoffFreq = sampleRate * 0.499
	}

	sections := make([]*BiquadFilter, order/2)

	// 双线性变换，先预畸变截止频率
	w := 2.0 * sampleRate * math.Tan(math.Pi*cutoffFreq/sampleRate)
	fs2 := sampleRate * sampleRate

	for i := 0; i < order/2; i++ {
		// Low Q -> High Q
		poleIdx := (order/2 - 1) - i
		theta := math.Pi * (2.0*float64(poleIdx) + 1.0) / (2.0 * float64(order))

		pRe := -w * math.Sin(theta)
		pIm := w * math.Cos(theta)
		mag2 := pRe*pRe + pIm*pIm

		alpha := 4.0*fs2 - 4.0*sampleRate*pRe + mag2
		sections[i] = &BiquadFilter{
			a0: (w * w) / alpha,
			a1: (2.0 * w * w) / alpha,
			a2: (w * w) / alpha,
			b1: (-8.0*fs2 + 2.0*mag2) / alpha,
			b2: (4.0*fs2 + 4.0*sampleRate*pRe + mag2) / alpha,
		}
	}

	return &ButterworthFilter{sections: sections}
}

// Prime 每一节的直流增益都是 1，所以逐节设为同一个稳态即可
func (f *ButterworthFilter) Prime(x float64) {
	for _, s := range f.sections {
		s.prime(x)
	}
}

// Process 处理单个采样点，通过所有级联节
func (f *ButterworthFilter) Process(in float64) float64 {
	out := in
	for _, s := range f.sections {
		out = s.Process(out)
	}
	return out
}
