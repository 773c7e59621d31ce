package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"flashcw"
	"flashcw/logger"
	"flashcw/store"
	"flashcw/web"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

var version = "0.3.0"

// Globals 所有子命令共用的参数
type Globals struct {
	Config    string `short:"c" type:"path" help:"Path to a config file (yaml, toml or json)."`
	LogLevel  string `help:"Override logging.level (debug, info, warn, error)."`
	LogFormat string `help:"Override logging.format (text, json)."`
}

// CLI 命令行定义
type CLI struct {
	Globals

	Decode      DecodeCmd      `cmd:"" help:"Decode a flashing light into text."`
	Generate    GenerateCmd    `cmd:"" help:"Render text as a synthetic light trace or tone WAV."`
	Transcripts TranscriptsCmd `cmd:"" help:"List saved decoding sessions."`
	Version     VersionCmd     `cmd:"" help:"Show version information."`
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("flashcw"),
		kong.Description("Decode Morse code sent with a flashing light."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		PrintError(err.Error())
		os.Exit(1)
	}
}

// tuiLogFile 全屏界面运行时日志写到这里
const tuiLogFile = "flashcw-tui.log"

// load 读取配置并按命令行覆盖日志参数
func (g *Globals) load() (*flashcw.Config, *logger.Logger, error) {
	return g.loadTo(nil)
}

func (g *Globals) loadTo(out io.Writer) (*flashcw.Config, *logger.Logger, error) {
	cfg, err := flashcw.LoadConfig(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: out})
	return cfg, log, nil
}

// DecodeCmd flashcw decode
type DecodeCmd struct {
	Trace  string `help:"CSV trace of 'timestamp,value' (or one value per frame)." type:"existingfile" xor:"source" required:""`
	Wav    string `help:"WAV recording of a tone-modulated light receiver." type:"existingfile" xor:"source" required:""`
	Serial string `help:"Serial port of a light sensor printing one reading per line." xor:"source" required:""`
	Audio  bool   `help:"Capture a tone-modulated light receiver from the sound card." xor:"source" required:""`

	FrameRate float64 `help:"Frame rate for single-column traces." default:"30"`
	AutoTone  bool    `help:"Find the receiver tone in the WAV spectrum (with --wav)."`
	Realtime  bool    `help:"Replay files at their recorded speed."`
	Record    string  `help:"Record captured audio to this WAV file (with --audio)." type:"path"`
	DebugCSV  string  `name:"debug-csv" help:"Write per-frame signal trace for tuning." type:"path"`

	TUI   bool `name:"tui" help:"Show a live terminal view."`
	Web   bool `help:"Serve the live web view (overrides web.enabled)."`
	Store bool `help:"Save the session to the database (overrides store.enabled)."`
}

func (c *DecodeCmd) Run(g *Globals) error {
	var out io.Writer
	if c.TUI {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	cfg, log, err := g.loadTo(out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, name, err := c.openSource(cfg, log)
	if err != nil {
		return err
	}
	defer source.Close()

	sys := flashcw.NewLightSystem(cfg, source, name, log)
	sys.SetRealtime(c.Realtime)

	if c.DebugCSV != "" {
		dbg, err := flashcw.NewCsvFileDebugger(c.DebugCSV)
		if err != nil {
			return fmt.Errorf("debug csv: %w", err)
		}
		defer dbg.Close()
		sys.SetDebugger(dbg)
	}

	var repo *store.TranscriptRepository
	if c.Store || cfg.Store.Enabled {
		db, err := store.NewDB(cfg.Store, log.WithComponent("store"))
		if err != nil {
			return err
		}
		defer db.Close()
		repo = db.Transcripts()
		sys.SetSaver(repo)
	}

	var server *web.Server
	webDone := make(chan error, 1)
	if c.Web || cfg.Web.Enabled {
		webCfg := cfg.Web
		webCfg.Enabled = true
		var lister web.TranscriptLister
		if repo != nil {
			lister = repo
		}
		server = web.NewServer(webCfg, log.WithComponent("web"),
			func() interface{} { return sys.Snapshot() }, lister)
		sys.SetPublisher(server.Hub())
		go func() { webDone <- server.Start(ctx) }()
	}

	var res *flashcw.Result
	if c.TUI {
		res, err = runTUI(ctx, sys, name)
	} else {
		res, err = runPlain(ctx, sys)
	}
	if res != nil && !c.TUI {
		PrintSummary(res)
	}

	if server == nil {
		return err
	}
	var werr error
	if ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Web view still at http://%s, press Ctrl+C to exit\n", server.Addr())
		select {
		case <-ctx.Done():
			werr = <-webDone
		case werr = <-webDone:
		}
	} else {
		werr = <-webDone
	}
	if werr != nil && err == nil {
		err = fmt.Errorf("web: %w", werr)
	}
	return err
}

// runPlain 每解出一个字符就打印出来
func runPlain(ctx context.Context, sys *flashcw.LightSystem) (*flashcw.Result, error) {
	lastLen := 0
	sys.OnChar = func(ev flashcw.CharEvent) {
		fmt.Print(ev.Text[lastLen:])
		lastLen = len(ev.Text)
	}
	res, err := sys.Run(ctx)
	if res != nil && len(res.Text) > lastLen {
		fmt.Print(res.Text[lastLen:])
	}
	fmt.Println()
	return res, err
}

func (c *DecodeCmd) openSource(cfg *flashcw.Config, log *logger.Logger) (flashcw.SampleSource, string, error) {
	switch {
	case c.Trace != "":
		src, err := flashcw.OpenCsvTrace(c.Trace, c.FrameRate)
		return src, "trace:" + c.Trace, err
	case c.Wav != "":
		tone := cfg.Tone
		tone.AutoTone = tone.AutoTone || c.AutoTone
		src, err := flashcw.OpenWavTone(c.Wav, tone)
		if err == nil && tone.AutoTone {
			log.Info("Receiver tone", logger.Float64("hz", src.ToneHz))
		}
		return src, "wav:" + c.Wav, err
	case c.Serial != "":
		src, err := flashcw.OpenSerialSensor(c.Serial, cfg.Serial.BaudRate, cfg.Serial.ReadTimeout)
		return src, "serial:" + c.Serial, err
	case c.Audio:
		src, err := flashcw.OpenLiveTone(cfg.Tone, c.Record, log.WithComponent("audio"))
		name := "audio"
		if cfg.Tone.Device != "" {
			name += ":" + cfg.Tone.Device
		}
		return src, name, err
	}
	return nil, "", fmt.Errorf("%w: no source selected", flashcw.ErrInvalidSource)
}

// runTUI bubbletea 界面，解码在后台 goroutine 里进行
func runTUI(ctx context.Context, sys *flashcw.LightSystem, name string) (*flashcw.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(name, sys.Snapshot, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())

	sys.OnChar = func(ev flashcw.CharEvent) {
		p.Send(CharMsg(ev))
	}

	type outcome struct {
		res *flashcw.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := sys.Run(ctx)
		done <- outcome{res, err}
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	cancel()
	out := <-done
	if err != nil {
		return out.res, fmt.Errorf("ui: %w", err)
	}
	if m, ok := final.(Model); ok && m.Result != nil {
		PrintSummary(m.Result)
	} else if out.res != nil {
		PrintSummary(out.res)
	}
	return out.res, out.err
}

// GenerateCmd flashcw generate
type GenerateCmd struct {
	Text       string  `arg:"" help:"Text to send."`
	WPM        float64 `name:"wpm" help:"Sending speed (PARIS words per minute)." default:"12"`
	FPS        float64 `name:"fps" help:"Camera frame rate of the trace." default:"30"`
	Jitter     float64 `help:"Random timing error per interval, 0.1 = ±10%."`
	Noise      float64 `help:"Gaussian noise on each frame (std dev)."`
	Seed       int64   `help:"Random seed." default:"1"`
	Out        string  `short:"o" help:"Write the CSV trace here ('-' for stdout)." default:"-"`
	Wav        string  `help:"Also render a tone WAV for the audio receiver path." type:"path"`
	SampleRate int     `help:"Sample rate of the WAV." default:"48000"`
	ToneHz     float64 `help:"Tone frequency of the WAV." default:"1000"`
}

func (c *GenerateCmd) Run(g *Globals) error {
	text := flashcw.NormalizeText(c.Text)
	if text == "" {
		return fmt.Errorf("nothing to send in %q", c.Text)
	}
	if c.WPM <= 0 || c.FPS <= 0 {
		return fmt.Errorf("wpm and fps must be positive")
	}

	gcfg := flashcw.DefaultGeneratorConfig()
	gcfg.Unit = flashcw.UnitFromWPM(c.WPM)
	gcfg.FrameRate = c.FPS
	gcfg.Jitter = c.Jitter
	gcfg.Noise = c.Noise
	gcfg.Seed = c.Seed

	samples := flashcw.NewSignalGenerator(gcfg).Samples(text)
	if c.Out == "-" {
		if err := flashcw.WriteTrace(os.Stdout, samples); err != nil {
			return err
		}
	} else {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		if err := flashcw.WriteTrace(f, samples); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s %s (%d frames)\n", KeyStyle.Render("Trace:"), ValueStyle.Render(c.Out), len(samples))
	}

	if c.Wav != "" {
		// 独立的随机序列，保证 WAV 和 CSV 的时序一致
		audio := flashcw.NewSignalGenerator(gcfg).ToneAudio(text, c.SampleRate, c.ToneHz)
		w, err := flashcw.CreateWav(c.Wav, c.SampleRate)
		if err != nil {
			return err
		}
		if err := w.WriteSamples(audio); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", KeyStyle.Render("Audio:"), ValueStyle.Render(c.Wav))
	}
	return nil
}

// TranscriptsCmd flashcw transcripts
type TranscriptsCmd struct {
	Limit  int    `short:"n" help:"Number of sessions to show." default:"10"`
	Search string `help:"Only sessions whose text contains this."`
}

func (c *TranscriptsCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	db, err := store.NewDB(cfg.Store, log.WithComponent("store"))
	if err != nil {
		return err
	}
	defer db.Close()

	repo := db.Transcripts()
	var list []store.Transcript
	if c.Search != "" {
		list, err = repo.SearchText(strings.ToUpper(c.Search), c.Limit)
	} else {
		list, err = repo.GetRecent(c.Limit)
	}
	if err != nil {
		return fmt.Errorf("load transcripts: %w", err)
	}
	if len(list) == 0 {
		fmt.Println(KeyStyle.Render("No sessions saved yet."))
		return nil
	}

	for _, t := range list {
		fmt.Printf("%s %s %s %s\n",
			KeyStyle.Render(fmt.Sprintf("#%d", t.ID)),
			ValueStyle.Render(humanize.Time(t.StartedAt)),
			KeyStyle.Render(fmt.Sprintf("%s, %.1f WPM, %s", t.Source, t.WPM, t.Duration().Round(time.Second))),
			TextStyle.Render(t.Text))
	}
	return nil
}

// VersionCmd flashcw version
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	PrintVersion(version)
	return nil
}
