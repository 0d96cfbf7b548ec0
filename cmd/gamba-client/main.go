package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/gamba/internal/client"
	"github.com/lox/gamba/internal/tui"
)

var CLI struct {
	Server   string `short:"s" long:"server" default:"ws://localhost:3001/ws" help:"Server URL to connect to"`
	LogLevel string `short:"l" long:"log-level" default:"info" help:"Log level"`
	LogFile  string `long:"log-file" default:"gamba-client.log" help:"Log file path"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// The TUI owns the terminal, so logs go to a file.
	logFile, err := os.OpenFile(CLI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	logger := log.New(logFile)
	switch CLI.LogLevel {
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

	logger.Info("Starting Gamba Client", "server", CLI.Server)

	wsClient := client.New(CLI.Server, logger)
	model := tui.New(wsClient, logger)

	if err := wsClient.Connect(); err != nil {
		fmt.Printf("Failed to connect to server: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = wsClient.Disconnect() }()

	model.AddLogEntry("=== Gamba ===")
	model.AddLogEntry("Connected to server: " + CLI.Server)
	model.AddLogEntry("")
	model.AddLogEntry("Commands:")
	model.AddLogEntry("  create <name>       - Create a room")
	model.AddLogEntry("  join <code> <name>  - Join a room")
	model.AddLogEntry("  start               - Start the game (host)")
	model.AddLogEntry("  bid <coins>         - Bid in an auction round")
	model.AddLogEntry("  bet <coins>         - Bet in a crash round")
	model.AddLogEntry("  cashout             - Cash out of a crash round")
	model.AddLogEntry("  spin / skip         - Join or sit out a slot round")
	model.AddLogEntry("  quit                - Leave and exit")
	model.AddLogEntry("")

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		ctx.Exit(1)
	}
}
