package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sotto/overlay"
)

// TUI message types
type OverlayMsg struct{ Snapshot overlay.Snapshot }
type TranscriptionMsg struct {
	Text       string
	Confidence float64
	Copied     bool
	ShowPrompt bool // delivery needs the accessibility permission
}
type ErrorMsg struct{ Text string }
type NoVoiceWarningMsg struct{}
type VoiceClearedMsg struct{}
type ModeLineMsg struct{ Text string }   // provider/format info
type DeviceLineMsg struct{ Text string } // microphone device name
type tickMsg time.Time

var (
	tuiProgram   *tea.Program
	tuiMu        sync.Mutex
	tuiReady     = make(chan struct{})
	tuiReadyOnce sync.Once
)

var (
	styleTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleCopied  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleDimBold = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)

	barStyles = map[string]lipgloss.Style{
		"low":  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"mid":  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		"high": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tuiModel struct {
	snap          overlay.Snapshot
	level         float64 // smoothed audio level
	frame         int
	width, height int

	modeLine   string
	deviceLine string
	hotkeyLine string

	msgCount   int
	lastText   string
	confidence float64
	copied     bool
	showPrompt bool
	errText    string
	noVoice    bool
}

func NewTUIProgram(hotkeyLabel string) *tea.Program {
	m := tuiModel{hotkeyLine: hotkeyLabel}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(tuiTick(), func() tea.Msg {
		tuiReadyOnce.Do(func() { close(tuiReady) })
		return nil
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case OverlayMsg:
		prev := m.snap.State
		m.snap = msg.Snapshot
		switch m.snap.State {
		case overlay.StateRecording:
			if prev != overlay.StateRecording {
				m.level = 0
				m.errText = ""
				m.noVoice = false
			}
			m.level = m.level*0.6 + m.snap.AudioLevel*0.4
		default:
			m.level = 0
			m.noVoice = false
		}

	case TranscriptionMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.confidence = msg.Confidence
		m.copied = msg.Copied
		m.showPrompt = msg.ShowPrompt
		m.errText = ""

	case ErrorMsg:
		m.errText = msg.Text

	case NoVoiceWarningMsg:
		m.noVoice = true

	case VoiceClearedMsg:
		m.noVoice = false

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	lines = append(lines, styleTitle.Render("sotto"), "")

	switch m.snap.State {
	case overlay.StateRecording:
		lines = append(lines,
			styleRec.Render("● REC "+m.snap.FormattedDuration()),
			levelBar(m.level, 30))
		if m.noVoice {
			lines = append(lines, styleWarn.Render("⚠ no voice detected"))
		}
	case overlay.StateTranscribing:
		spin := spinnerFrames[m.frame%len(spinnerFrames)]
		lines = append(lines,
			styleBusy.Render(spin+" transcribing "+m.snap.FormattedDuration()), "")
	default:
		lines = append(lines, styleIdle.Render("○ STANDBY"), "")
	}

	if m.modeLine != "" {
		lines = append(lines, styleIdle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, styleIdle.Render(m.deviceLine))
	}
	lines = append(lines, "")

	wrapWidth := m.width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	if m.errText != "" {
		lines = append(lines, styleErr.Render("error: "+m.errText), "")
	}

	if m.lastText != "" {
		lines = append(lines, styleIdle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
		for _, line := range wrapText(m.lastText, wrapWidth) {
			lines = append(lines, styleText.Render(line))
		}
		switch {
		case m.showPrompt:
			lines = append(lines, styleWarn.Render("⚠ grant accessibility permission to auto-insert; text is on the clipboard"))
		case m.copied:
			lines = append(lines, styleCopied.Render("[✓ copied]"))
		}
		if m.confidence > 0 {
			lines = append(lines, styleIdle.Render(fmt.Sprintf("confidence %.2f", m.confidence)))
		}
		lines = append(lines, "")
	} else {
		lines = append(lines, styleIdle.Render("No transcriptions yet"), "")
	}

	lines = append(lines,
		styleDimBold.Render(m.hotkeyLine)+styleDim.Render(" to talk"),
		styleDim.Render("sotto "+version))

	return strings.Join(lines, "\n")
}

func levelBar(level float64, width int) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	key := "low"
	switch {
	case level >= 0.7:
		key = "high"
	case level >= 0.3:
		key = "mid"
	}
	bar := barStyles[key].Render(strings.Repeat("█", filled))
	rest := styleDim.Render(strings.Repeat("░", width-filled))
	return bar + rest
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}
