package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"markestedt/sonarkey/config"
	"markestedt/sonarkey/systray"
)

func main() {
	// Setup logging; the level is raised or lowered once the config is read
	var level slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: &level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.SlogLevel())
	slog.Info("Configuration loaded", "path", cfg.Path())

	// Create agent
	agent, err := NewAgent(cfg)
	if err != nil {
		slog.Error("Failed to create agent", "error", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if cfg.Tray.Enabled {
		err = runWithTray(ctx, cancel, agent)
	} else {
		err = agent.Run(ctx)
	}
	cancel()
	agent.Close()

	if err != nil {
		slog.Error("Agent error", "error", err)
		os.Exit(1)
	}

	slog.Info("SonarKey stopped")
}

// runWithTray runs the agent in the background while the tray owns the main
// thread, as the tray library requires
func runWithTray(ctx context.Context, cancel context.CancelFunc, agent *Agent) error {
	tray := systray.NewSystrayManager(agent.WebURL(), nil, agent)
	agent.OnChange(tray.Refresh)

	result := make(chan error, 1)
	go func() {
		result <- agent.Run(ctx)
		tray.Stop()
	}()

	go func() {
		select {
		case <-tray.WaitForQuit():
			cancel()
		case <-ctx.Done():
		}
	}()

	tray.Run()
	cancel()
	return <-result
}
