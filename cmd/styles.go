package main

import (
	"fmt"
	"os"

	"flashcw"

	"github.com/charmbracelet/lipgloss"
)

// 配色
var (
	primaryColor = lipgloss.Color("#E8A317") // 信号灯琥珀色
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#FFFFFF")
	warnColor    = lipgloss.Color("#C0392B")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(warnColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	// 解码出来的文本
	TextStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	LampOnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(primaryColor).
			Padding(0, 1)

	LampOffStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Background(lipgloss.Color("#222222")).
			Padding(0, 1)
)

// PrintVersion 版本信息
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("flashcw"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError 错误信息
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintSummary 会话结束后的统计
func PrintSummary(res *flashcw.Result) {
	kv := func(k, v string) {
		fmt.Fprintf(os.Stderr, "%s %s\n", KeyStyle.Render(fmt.Sprintf("%-12s", k)), ValueStyle.Render(v))
	}
	fmt.Fprintln(os.Stderr)
	kv("Session:", res.SessionID)
	kv("Source:", res.Source)
	kv("Text:", res.Text)
	if res.Unit > 0 {
		kv("Unit:", fmt.Sprintf("%.0f ms (%.1f WPM)", res.Unit*1000, res.WPM))
	} else {
		kv("Unit:", "not locked")
	}
	kv("Characters:", fmt.Sprintf("%d (%d unknown)", res.Characters, res.Unknown))
	kv("Samples:", fmt.Sprintf("%d (%d invalid, %d malformed)", res.Samples, res.BadSamples, res.Malformed))
	kv("Duration:", res.EndedAt.Sub(res.StartedAt).Round(1e6).String())
}
