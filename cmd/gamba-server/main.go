package main

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/gamba/internal/randutil"
	"github.com/lox/gamba/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"gamba-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Seed     int64  `short:"s" long:"seed" help:"Pin game randomness to a fixed seed (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Seed != 0 {
		cfg.Game.Seed = CLI.Seed
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("Starting Gamba Server", "addr", cfg.ListenAddress())

	newRng := func() *rand.Rand {
		if cfg.Game.Seed != 0 {
			return randutil.New(cfg.Game.Seed)
		}
		return randutil.New(time.Now().UnixNano())
	}

	wsServer := server.NewServer(cfg.ListenAddress(), logger)
	rooms := server.NewRoomManager(newRng(), logger)
	gameService := server.NewGameService(wsServer, rooms, quartz.NewReal(), newRng, logger)
	wsServer.SetGameService(gameService)

	// Serve until a shutdown signal arrives.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(wsServer.Start)
	g.Go(func() error {
		select {
		case <-c:
			logger.Info("Shutting down server...")
			return wsServer.Stop()
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
