package console

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// replyMsg carries a gateway reply into the UI loop.
type replyMsg string

// App is the root Bubble Tea model: a transcript pane over an input bar.
type App struct {
	width, height int
	account       uint64
	transcript    *Transcript
	input         *Input
	keys          KeyMap
	submit        func(string)
}

// NewApp creates the console UI. submit receives each entered line.
func NewApp(account uint64, submit func(string)) *App {
	return &App{
		account:    account,
		transcript: NewTranscript(),
		input:      NewInput(),
		keys:       DefaultKeyMap,
		submit:     submit,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.transcript.Init(), a.input.Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case msg.String() == "enter":
			if line := a.input.Value(); line != "" {
				a.transcript.AddMessage("you", line)
				a.input.Reset()
				if a.submit != nil {
					a.submit(line)
				}
			}
		}
	case replyMsg:
		a.transcript.AddMessage("gateway", string(msg))
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	}

	var cmd tea.Cmd
	a.transcript, cmd = a.transcript.Update(msg)
	cmds = append(cmds, cmd)
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	statusBar := a.statusBarView()
	inputBar := a.input.View()
	contentHeight := a.height - lipgloss.Height(statusBar) - lipgloss.Height(inputBar)

	transcriptView := a.transcript.View(a.width, contentHeight)

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, transcriptView, inputBar)
}

func (a *App) statusBarView() string {
	return StatusBarStyle.Width(a.width).Render(
		fmt.Sprintf("Plural-Gateway console | acting as account %d | q to quit", a.account))
}
