// Package gateway runs the message processing loop: it fans in messages
// from the enabled channel adapters, strips the command prefix, and hands
// command lines to the dispatcher.
package gateway

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/pluralhub/plural-gateway/internal/bus"
	"github.com/pluralhub/plural-gateway/internal/channel"
	"github.com/pluralhub/plural-gateway/internal/command"
	"github.com/pluralhub/plural-gateway/internal/config"
	"github.com/pluralhub/plural-gateway/internal/messaging"
	"github.com/pluralhub/plural-gateway/internal/store"
)

const internalErrorReply = "Something went wrong while running that command. Please try again later."

// replyMetadataKeys are forwarded from the incoming message so adapters
// can answer in the originating channel instead of a DM.
var replyMetadataKeys = []string{"channel_id", "chat_id"}

// Gateway owns the processing loop.
type Gateway struct {
	cfg      *config.Config
	registry *command.Registry
	store    store.Store
	adapters []channel.ChannelAdapter
	events   *bus.Client
	logger   *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a Gateway. events may be nil when the event bus is disabled.
func New(cfg *config.Config, registry *command.Registry, st store.Store, adapters []channel.ChannelAdapter, events *bus.Client, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		cfg:      cfg,
		registry: registry,
		store:    st,
		adapters: adapters,
		events:   events,
		logger:   logger,
	}
	if events != nil {
		registry.SetEventSink(func(eventType string, payload map[string]interface{}) {
			if err := events.Publish(eventType, payload); err != nil {
				logger.Warn("event publish failed", "type", eventType, "error", err)
			}
		})
	}
	return g
}

// Start launches the enabled adapters and one processing goroutine per
// adapter. It returns once everything is running.
func (g *Gateway) Start(ctx context.Context) error {
	ctx, g.cancel = context.WithCancel(ctx)

	for _, adapter := range g.adapters {
		if !adapter.IsEnabled() {
			continue
		}
		if err := adapter.Start(ctx); err != nil {
			return err
		}
		g.logger.Info("channel adapter started", "channel", adapter.Name())

		g.wg.Add(1)
		go func(a channel.ChannelAdapter) {
			defer g.wg.Done()
			g.processLoop(ctx, a)
		}(adapter)
	}
	return nil
}

// Stop shuts down the processing loops and adapters.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
	for _, adapter := range g.adapters {
		if !adapter.IsEnabled() {
			continue
		}
		if err := adapter.Stop(); err != nil {
			g.logger.Warn("adapter stop failed", "channel", adapter.Name(), "error", err)
		}
	}
}

func (g *Gateway) processLoop(ctx context.Context, adapter channel.ChannelAdapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-adapter.Incoming():
			if !ok {
				return
			}
			g.handleMessage(ctx, adapter, msg)
		}
	}
}

// handleMessage processes one incoming message. Non-command chatter is
// ignored; the bot only wakes up for its prefix.
func (g *Gateway) handleMessage(ctx context.Context, adapter channel.ChannelAdapter, msg *channel.Message) {
	prefix := g.cfg.Channels.CommandPrefix()
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, prefix) {
		return
	}
	line := strings.TrimSpace(strings.TrimPrefix(content, prefix))

	account, err := strconv.ParseUint(msg.UserID, 10, 64)
	if err != nil {
		g.logger.Warn("non-numeric user id", "channel", adapter.Name(), "user_id", msg.UserID)
		return
	}

	sender, err := g.store.SystemByAccount(ctx, account)
	if err != nil {
		g.logger.Error("sender lookup failed", "account", account, "error", err)
		g.reply(adapter, msg, internalErrorReply)
		return
	}

	cc := command.NewContext(account, sender, func(s string) error {
		return g.reply(adapter, msg, s)
	})
	cc.Channel = adapter.Name()

	if err := g.registry.Dispatch(ctx, cc, line); err != nil {
		g.reply(adapter, msg, internalErrorReply)
		return
	}

	g.emit(messaging.EventCommandExecuted, map[string]interface{}{
		"channel": adapter.Name(),
		"account": msg.UserID,
	})
}

func (g *Gateway) reply(adapter channel.ChannelAdapter, msg *channel.Message, content string) error {
	resp := &channel.Response{Content: content}
	for _, key := range replyMetadataKeys {
		if v, ok := msg.Metadata[key]; ok {
			if resp.Metadata == nil {
				resp.Metadata = make(map[string]string)
			}
			resp.Metadata[key] = v
		}
	}
	if err := adapter.SendMessage(msg.UserID, resp); err != nil {
		g.logger.Error("reply failed", "channel", adapter.Name(), "user_id", msg.UserID, "error", err)
		return err
	}
	return nil
}

func (g *Gateway) emit(eventType string, payload map[string]interface{}) {
	if g.events == nil {
		return
	}
	if err := g.events.Publish(eventType, payload); err != nil {
		g.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}
