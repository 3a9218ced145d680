// Package main is the entry point for the agent usage TUI. It loads
// configuration, starts the service manager and runs the Bubble Tea program.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opsdash/agent-usage-tui/internal/app"
	"github.com/opsdash/agent-usage-tui/internal/config"
	"github.com/opsdash/agent-usage-tui/internal/services"
	"github.com/opsdash/agent-usage-tui/internal/ui/tabs/dashboard"
	"github.com/opsdash/agent-usage-tui/internal/ui/tabs/history"
	"github.com/opsdash/agent-usage-tui/internal/ui/tabs/info"
	"github.com/opsdash/agent-usage-tui/internal/version"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run contains the main application logic, separated for cleaner error handling.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Starts the auto-refresh loop and the secrets file watcher.
	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)

	state := model.GetState()
	tabs := []app.Tab{
		dashboard.New(state),
		history.New(state, svcManager),
		info.New(state, cfg, svcManager),
	}
	model.SetTabs(tabs)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// printUsage prints the command-line usage information.
func printUsage() {
	fmt.Println(`Agent Usage TUI - per-customer agent usage monitor

Usage:
  aut [flags]

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Keyboard Shortcuts:
  1-3             Switch between tabs (Usage, History, Info)
  Tab/Shift+Tab   Navigate between tabs
  t/w/m           Select period: today, this week, this month
  j/k, Up/Down    Navigate lists
  r               Force refresh (bypasses cache)
  e               Export current view to CSV
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  AGENT_NAME              Trace name to report on (default: ProjectManager)
  LANGFUSE_PUBLIC_KEY     Langfuse public key
  LANGFUSE_SECRET_KEY     Langfuse secret key
  LANGFUSE_BASE_URL       Langfuse host (default: https://cloud.langfuse.com)
  SECRETS_PATH            TOML secrets file path
  DATABASE_PATH           SQLite snapshot database path
  EXCLUDED_CUSTOMERS      Comma-separated customers to hide
  CACHE_TTL               Result cache lifetime (default: 5m)
  REFRESH_INTERVAL        Auto-refresh interval (default: 5m)

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/agent-usage-tui/.env`)
}
