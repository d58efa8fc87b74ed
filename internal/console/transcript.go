package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type transcriptLine struct {
	Role    string
	Content string
}

// Transcript shows the command and reply history.
type Transcript struct {
	viewport viewport.Model
	lines    []transcriptLine
}

func NewTranscript() *Transcript {
	vp := viewport.New(0, 0)
	vp.SetContent("Plural-Gateway console. Type commands with their prefix, e.g. pl;help\n")
	return &Transcript{
		viewport: vp,
		lines:    []transcriptLine{},
	}
}

func (t *Transcript) Init() tea.Cmd {
	return nil
}

func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

func (t *Transcript) View(width, height int) string {
	t.viewport.Width = width - 2
	t.viewport.Height = height - 2
	return TranscriptStyle.Width(width).Height(height).Render(t.viewport.View())
}

func (t *Transcript) AddMessage(role, content string) {
	t.lines = append(t.lines, transcriptLine{Role: role, Content: content})
	t.updateContent()
	t.viewport.GotoBottom()
}

func (t *Transcript) updateContent() {
	var sb strings.Builder
	for _, line := range t.lines {
		var style lipgloss.Style
		if line.Role == "you" {
			style = UserLineStyle
		} else {
			style = GatewayLineStyle
		}
		sb.WriteString(style.Render(line.Role + ": " + line.Content))
		sb.WriteString("\n")
	}
	t.viewport.SetContent(sb.String())
}
