package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pluralhub/plural-gateway/internal/avatar"
	"github.com/pluralhub/plural-gateway/internal/bus"
	"github.com/pluralhub/plural-gateway/internal/channel"
	"github.com/pluralhub/plural-gateway/internal/channel/discord"
	"github.com/pluralhub/plural-gateway/internal/channel/telegram"
	"github.com/pluralhub/plural-gateway/internal/channel/webchat"
	"github.com/pluralhub/plural-gateway/internal/command"
	"github.com/pluralhub/plural-gateway/internal/config"
	"github.com/pluralhub/plural-gateway/internal/console"
	"github.com/pluralhub/plural-gateway/internal/gateway"
	"github.com/pluralhub/plural-gateway/internal/healthring"
	"github.com/pluralhub/plural-gateway/internal/logging"
	"github.com/pluralhub/plural-gateway/internal/messaging"
	"github.com/pluralhub/plural-gateway/internal/scheduler"
	"github.com/pluralhub/plural-gateway/internal/server"
	"github.com/pluralhub/plural-gateway/internal/store"
	"github.com/pluralhub/plural-gateway/internal/store/memstore"
	"github.com/pluralhub/plural-gateway/internal/store/redisstore"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	consoleMode := flag.Bool("console", false, "Run a local terminal console instead of chat channels")
	consoleAccount := flag.Uint64("console-account", 1, "Account ID the console acts as")
	flag.Parse()

	logger := logging.WithComponent("main")

	if *consoleMode {
		runConsole(*consoleAccount, logger)
		return
	}

	logger.Info("Starting Plural-Gateway", "version", version)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.Logging.Level)

	ctx := context.Background()

	// Connect to Redis (entity store)
	redisClient, err := messaging.NewRedisClient(messaging.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	st := redisstore.New(redisClient)
	logger.Info("Entity store connected", "addr", cfg.Redis.Addr)

	// Initialize channels
	adapters := []channel.ChannelAdapter{}
	var identities channel.IdentityResolver
	if cfg.Channels.Discord.Enabled {
		dc := discord.NewDiscordAdapter(cfg.Channels.Discord.Token)
		adapters = append(adapters, dc)
		identities = dc
		logger.Info("Discord adapter initialized")
	}
	if cfg.Channels.Telegram.Enabled {
		tg := telegram.NewTelegramAdapter(cfg.Channels.Telegram.Token)
		adapters = append(adapters, tg)
		if identities == nil {
			identities = tg
		}
		logger.Info("Telegram adapter initialized")
	}
	if cfg.Channels.WebChat.Enabled {
		adapters = append(adapters, webchat.NewWebChatAdapter(cfg.Channels.WebChat.Port))
		logger.Info("WebChat adapter initialized")
	}

	// Initialize event bus
	var busClient *bus.Client
	if cfg.Events.Enabled {
		busClient, err = bus.NewClient(cfg.Events.URL, "plural-gateway", logging.WithComponent("bus"))
		if err != nil {
			logger.Error("Failed to create bus client", "error", err)
		} else {
			logger.Info("Event bus connected", "redis", busClient.UsingRedis())
		}
	}

	// Build the command surface
	registry := newRegistry(st, identities, cfg.Channels.CommandPrefix())

	// Start the processing loop
	gw := gateway.New(cfg, registry, st, adapters, busClient, logging.WithComponent("gateway"))
	if err := gw.Start(ctx); err != nil {
		logger.Error("Failed to start gateway", "error", err)
		os.Exit(1)
	}

	// Initialize health ring
	ring := healthring.New(30*time.Second, logging.WithComponent("healthring"))
	ring.Register("redis", redisClient.Ping)
	if busClient != nil {
		ring.Register("events", func(context.Context) error {
			if !busClient.IsConnected() {
				return errors.New("event bus unreachable")
			}
			return nil
		})
	}
	ring.Start()

	// Initialize scheduler
	sched := scheduler.New(st, logging.WithComponent("scheduler"))
	sched.Start()
	logger.Info("Scheduler started")

	// Create HTTP server
	srv := server.New(cfg, st, ring, logging.WithComponent("server"))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gw.Stop()
	sched.Stop()
	ring.Shutdown()
	if busClient != nil {
		if err := busClient.Close(); err != nil {
			logger.Error("Failed to close bus", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := st.Close(); err != nil {
		logger.Error("Store close error", "error", err)
	}

	logger.Info("Shutdown complete")
}

// newRegistry wires the full command surface against a store.
func newRegistry(st store.Store, identities channel.IdentityResolver, prefix string) *command.Registry {
	registry := command.NewRegistry(logging.WithComponent("command"))
	sysRes := &command.SystemResolver{Store: st, Identities: identities}
	memRes := &command.MemberResolver{Store: st}
	command.RegisterSystemCommands(registry, st, sysRes)
	command.RegisterMemberCommands(registry, st, memRes, &avatar.Prober{})
	command.RegisterHelpCommand(registry, prefix)
	return registry
}

// runConsole runs a local terminal session against an in-memory store. No
// tokens or Redis needed; useful for trying the command surface.
func runConsole(account uint64, logger *slog.Logger) {
	cfg := &config.Config{}
	st := memstore.New()
	registry := newRegistry(st, nil, cfg.Channels.CommandPrefix())

	con := console.New(account)
	gw := gateway.New(cfg, registry, st, []channel.ChannelAdapter{con}, nil, logger)

	if err := gw.Start(context.Background()); err != nil {
		logger.Error("Failed to start console", "error", err)
		os.Exit(1)
	}
	defer gw.Stop()

	<-con.Done()
}
