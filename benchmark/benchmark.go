package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"flashcw"
)

// ============================================================================
// 1. 测试场景
// ============================================================================

// Path 信号进入解码器的方式
type Path int

const (
	PathFrames Path = iota // 摄像头/光敏传感器的逐帧亮度
	PathTone               // 光接收器输出的音频，经 Goertzel 转成亮度
)

func (p Path) String() string {
	if p == PathTone {
		return "tone"
	}
	return "frames"
}

type TestCase struct {
	Name   string
	Path   Path
	Text   string
	WPM    float64
	FPS    float64 // PathFrames 的帧率
	Jitter float64
	Noise  float64 // PathFrames: 每帧噪声标准差

	SNR      float64 // PathTone: 信噪比 (dB)
	QSBRate  float64 // PathTone: 衰落频率 (Hz)
	QSBDepth float64 // PathTone: 衰落深度 0~1
}

// ============================================================================
// 2. 信道模拟 (音频路径)
// ============================================================================

type ChannelEffects struct {
	SNRdB    float64
	QSBRate  float64
	QSBDepth float64
}

// ApplyEffects 在纯净音频上叠加衰落和高斯白噪声
func ApplyEffects(signal []float32, sampleRate int, fx ChannelEffects, rng *rand.Rand) []float32 {
	out := make([]float32, len(signal))
	copy(out, signal)

	var energy float64
	for _, s := range signal {
		energy += float64(s * s)
	}
	if energy == 0 {
		return out
	}
	// SNR(dB) = 10 * log10(P_signal / P_noise)
	pSignal := energy / float64(len(signal))
	noiseScale := math.Sqrt(pSignal / math.Pow(10, fx.SNRdB/10.0))

	qsbPhase := 0.0
	qsbInc := 2.0 * math.Pi * fx.QSBRate / float64(sampleRate)
	for i := range out {
		if fx.QSBDepth > 0 {
			// 幅度在 (1-depth) 到 1.0 之间波动
			fading := 1.0 - fx.QSBDepth*(0.5+0.5*math.Sin(qsbPhase))
			out[i] *= float32(fading)
			qsbPhase += qsbInc
		}
		out[i] += float32(rng.NormFloat64() * noiseScale)
	}
	return out
}

// ============================================================================
// 3. 评分
// ============================================================================

// CalculateCER 字符错误率 (Levenshtein 距离 / 参考长度)
func CalculateCER(reference, hypothesis string) (float64, int) {
	ref := []rune(strings.TrimSpace(reference))
	hyp := []rune(strings.TrimSpace(hypothesis))

	d := make([][]int, len(ref)+1)
	for i := range d {
		d[i] = make([]int, len(hyp)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(hyp); j++ {
		d[0][j] = j
	}
	for i := 1; i <= len(ref); i++ {
		for j := 1; j <= len(hyp); j++ {
			cost := 0
			if ref[i-1] != hyp[j-1] {
				cost = 1
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
		}
	}

	distance := d[len(ref)][len(hyp)]
	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0, 0
		}
		return 100, distance
	}
	return float64(distance) / float64(len(ref)) * 100.0, distance
}

// ============================================================================
// 4. 执行
// ============================================================================

const toneSampleRate = 8000

// Decode 按场景生成信号并解码
func Decode(tc TestCase, seed int64) string {
	gcfg := flashcw.DefaultGeneratorConfig()
	gcfg.Unit = flashcw.UnitFromWPM(tc.WPM)
	gcfg.Jitter = tc.Jitter
	gcfg.Seed = seed

	d := flashcw.NewLightDecoder(nil)
	switch tc.Path {
	case PathTone:
		audio := flashcw.NewSignalGenerator(gcfg).ToneAudio(tc.Text, toneSampleRate, 1000)
		audio = ApplyEffects(audio, toneSampleRate, ChannelEffects{
			SNRdB:    tc.SNR,
			QSBRate:  tc.QSBRate,
			QSBDepth: tc.QSBDepth,
		}, rand.New(rand.NewSource(seed)))

		det := flashcw.NewToneDetector(toneSampleRate, 1000, 80, 0.999)
		// 模拟流式输入，每次 1024 个采样点
		for i := 0; i < len(audio); i += 1024 {
			end := min(i+1024, len(audio))
			for _, s := range det.Process(audio[i:end]) {
				d.Feed(s)
			}
		}
	default:
		gcfg.FrameRate = tc.FPS
		gcfg.Noise = tc.Noise
		for _, s := range flashcw.NewSignalGenerator(gcfg).Samples(tc.Text) {
			d.Feed(s)
		}
	}
	return d.Flush()
}

func RunBenchmark(cases []TestCase, seed int64) (failed int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tPATH\tWPM\tFPS\tJITTER\tNOISE\tSNR(dB)\tQSB\tCER(%)\tTIME(ms)\tSTATUS")
	fmt.Fprintln(w, "-----\t----\t---\t---\t------\t-----\t-------\t---\t------\t--------\t------")

	for _, tc := range cases {
		start := time.Now()
		decoded := Decode(tc, seed)
		elapsed := time.Since(start)

		cer, _ := CalculateCER(tc.Text, decoded)
		status := "PASS"
		if cer > 10.0 {
			status = "FAIL"
			failed++
		}

		fps, snr, qsb := "-", "-", "-"
		if tc.Path == PathFrames {
			fps = fmt.Sprintf("%.0f", tc.FPS)
		} else {
			snr = fmt.Sprintf("%.1f", tc.SNR)
			qsb = fmt.Sprintf("%.1f/%.1f", tc.QSBRate, tc.QSBDepth)
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%s\t%.0f%%\t%.2f\t%s\t%s\t%.2f%%\t%d\t%s\n",
			tc.Name, tc.Path, tc.WPM, fps, tc.Jitter*100, tc.Noise, snr, qsb, cer, elapsed.Milliseconds(), status)
		if status == "FAIL" {
			fmt.Fprintf(w, "\t\t\t\t\t\t\t\tgot %q\t\t\n", decoded)
		}
	}
	w.Flush()
	return failed
}

func DefaultCases() []TestCase {
	text := "PARIS PARIS CQ DE BG7XYZ 73"
	return []TestCase{
		{Name: "Level 1 (Easy)", Path: PathFrames, Text: text, WPM: 8, FPS: 30},
		{Name: "Level 1 (Easy)", Path: PathTone, Text: text, WPM: 15, SNR: 25},
		{Name: "Level 2 (Medium)", Path: PathFrames, Text: text, WPM: 12, FPS: 30, Jitter: 0.1, Noise: 0.05},
		{Name: "Level 2 (Medium)", Path: PathFrames, Text: text, WPM: 10, FPS: 15, Noise: 0.1},
		{Name: "Level 2 (Medium)", Path: PathTone, Text: text, WPM: 20, SNR: 6, QSBRate: 0.2, QSBDepth: 0.3, Jitter: 0.05},
		{Name: "Level 3 (Hard)", Path: PathFrames, Text: text, WPM: 15, FPS: 30, Jitter: 0.15, Noise: 0.15},
		{Name: "Level 3 (Hard)", Path: PathTone, Text: text, WPM: 25, SNR: 0, QSBRate: 1.0, QSBDepth: 0.8, Jitter: 0.15},
	}
}

func main() {
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	fmt.Println("Starting flashcw Decoder Benchmark Suite...")
	fmt.Println("========================================")

	failed := RunBenchmark(DefaultCases(), *seed)

	fmt.Printf("\nBenchmark Complete. %d failed.\n", failed)
}
