package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flashcw"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const refreshInterval = 100 * time.Millisecond

// CharMsg 解出一个字符
type CharMsg flashcw.CharEvent

// SnapshotMsg 定时刷新的解码器状态
type SnapshotMsg flashcw.Snapshot

// DoneMsg 会话结束
type DoneMsg struct {
	Result *flashcw.Result
	Err    error
}

type tickMsg time.Time

// Model 实时解码界面
type Model struct {
	Source   string
	Snapshot flashcw.Snapshot
	Last     flashcw.CharEvent
	Result   *flashcw.Result
	Err      error
	Done     bool

	StartTime time.Time
	Width     int
	Height    int

	snapshot func() flashcw.Snapshot
	cancel   context.CancelFunc
}

// NewModel snapshot 在 tea.Cmd 的 goroutine 里调用
func NewModel(source string, snapshot func() flashcw.Snapshot, cancel context.CancelFunc) Model {
	return Model{
		Source:    source,
		StartTime: time.Now(),
		snapshot:  snapshot,
		cancel:    cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) poll() tea.Cmd {
	fn := m.snapshot
	return func() tea.Msg { return SnapshotMsg(fn()) }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// 先停解码，等 DoneMsg 再退出，保证会话能正常保存
			if m.cancel != nil {
				m.cancel()
			}
			if m.Done {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if m.Done {
			return m, nil
		}
		return m, m.poll()

	case SnapshotMsg:
		m.Snapshot = flashcw.Snapshot(msg)
		if m.Done {
			return m, nil
		}
		return m, tick()

	case CharMsg:
		m.Last = flashcw.CharEvent(msg)
		m.Snapshot.Text = msg.Text

	case DoneMsg:
		m.Done = true
		m.Result = msg.Result
		m.Err = msg.Err
		if msg.Result != nil {
			m.Snapshot.Text = msg.Result.Text
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("flashcw - " + m.Source))
	b.WriteString("\n")

	lamp := LampOffStyle.Render("OFF")
	if m.Snapshot.State == "ON" {
		lamp = LampOnStyle.Render(" ON")
	}
	status := "tracking"
	switch {
	case m.Snapshot.Squelched:
		status = "squelched"
	case m.Snapshot.Unit == 0:
		status = "waiting for signal"
	case m.Snapshot.Calibrating:
		status = "calibrating"
	}
	b.WriteString(lamp + "  " + KeyStyle.Render(status))
	b.WriteString("\n\n")

	row := func(k, v string) {
		b.WriteString(KeyStyle.Render(fmt.Sprintf("%-10s", k)))
		b.WriteString(ValueStyle.Render(v))
		b.WriteString("\n")
	}
	if m.Snapshot.Unit > 0 {
		row("Unit", fmt.Sprintf("%.0f ms  %.1f WPM", m.Snapshot.Unit*1000, m.Snapshot.WPM))
	} else {
		row("Unit", "-")
	}
	row("Levels", fmt.Sprintf("on>%.2f  off<%.2f", m.Snapshot.EnterOn, m.Snapshot.ExitOn))
	row("Pending", m.Snapshot.Pending)
	if m.Last.Char != "" {
		row("Last", fmt.Sprintf("%s  %s", m.Last.Char, m.Last.Pattern))
	}
	row("Samples", fmt.Sprintf("%d  (%d invalid)", m.Snapshot.Samples, m.Snapshot.BadSamples))
	row("Elapsed", time.Since(m.StartTime).Round(time.Second).String())
	b.WriteString("\n")

	text := m.Snapshot.Text
	width := m.Width - 4
	if width < 20 {
		width = 60
	}
	b.WriteString(lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Width(width).
		Render(TextStyle.Render(text)))
	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(ErrorStyle.Render("Error: " + m.Err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(KeyStyle.Render("q to stop"))
	b.WriteString("\n")
	return b.String()
}
