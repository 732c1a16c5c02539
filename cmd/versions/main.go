package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/controllernode/versions/internal/app"
	"github.com/controllernode/versions/internal/config"
	"github.com/controllernode/versions/internal/logging"
	"github.com/controllernode/versions/internal/release"
	"github.com/controllernode/versions/internal/telemetry"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "print" {
		runPrint(os.Args[2:])
		return
	}

	cfg := loadConfig(os.Args[1:])

	// Cancelled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("error initializing telemetry", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logging.Setup(cfg.Log, tel.LoggerProvider())

	// Create application
	application, err := app.New(cfg, tel)
	if err != nil {
		slog.Error("error creating application", "error", err)
		os.Exit(1)
	}

	// Blocks until shutdown has drained connections and flushed telemetry
	if err := application.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// runPrint writes the configured version document to stdout, exactly as
// the endpoint would serve it.
func runPrint(args []string) {
	cfg := loadConfig(args)
	logging.Setup(cfg.Log, nil)

	body, err := release.FromConfig(cfg.Release).Encode()
	if err != nil {
		slog.Error("error encoding manifest", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func loadConfig(args []string) *config.Config {
	// Setup CLI flags
	flags := config.SetupFlags()
	if err := flags.Parse(args); err != nil {
		slog.Error("error parsing flags", "error", err)
		os.Exit(1)
	}

	// Get config path from flags
	configPath, _ := flags.GetString("config")

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}
	return cfg
}
