// Package console is a local terminal channel backed by a Bubble Tea UI.
// Lines typed into it enter the gateway exactly like messages from a chat
// platform, which makes it useful for trying commands without tokens.
package console

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pluralhub/plural-gateway/internal/channel"
)

// Console implements channel.ChannelAdapter on top of a terminal UI.
type Console struct {
	account  uint64
	incoming chan *channel.Message
	program  *tea.Program
	done     chan struct{}
}

// New creates a console channel acting as the given account ID.
func New(account uint64) *Console {
	return &Console{
		account:  account,
		incoming: make(chan *channel.Message, 16),
		done:     make(chan struct{}),
	}
}

// Start launches the terminal UI. It returns once the UI is running; the
// UI exiting closes the incoming channel.
func (c *Console) Start(ctx context.Context) error {
	app := NewApp(c.account, c.submit)
	c.program = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		defer close(c.done)
		defer close(c.incoming)
		if _, err := c.program.Run(); err != nil {
			fmt.Println("console error:", err)
		}
	}()
	return nil
}

// Stop shuts the UI down and waits for it to exit.
func (c *Console) Stop() error {
	if c.program != nil {
		c.program.Quit()
		<-c.done
	}
	return nil
}

// SendMessage renders a gateway reply in the transcript.
func (c *Console) SendMessage(userID string, resp *channel.Response) error {
	if c.program == nil {
		return nil
	}
	c.program.Send(replyMsg(resp.Content))
	return nil
}

// Incoming returns the channel of typed command lines.
func (c *Console) Incoming() <-chan *channel.Message {
	return c.incoming
}

// Done is closed when the UI exits.
func (c *Console) Done() <-chan struct{} {
	return c.done
}

func (c *Console) Name() string {
	return "console"
}

// IsEnabled reports whether the console can run. It is always on when
// constructed; the flag in main decides whether to construct it.
func (c *Console) IsEnabled() bool {
	return true
}

// submit is called by the UI when a line is entered.
func (c *Console) submit(line string) {
	msg := &channel.Message{
		ID:        fmt.Sprintf("console-%d", time.Now().UnixNano()),
		Channel:   "console",
		UserID:    strconv.FormatUint(c.account, 10),
		Content:   line,
		Timestamp: time.Now().Unix(),
	}
	select {
	case c.incoming <- msg:
	default:
		// Drop rather than block the UI loop.
	}
}
