package main

import (
	"context"
	"log/slog"
	"os"

	"export-site/cmd"
	"export-site/pkg/config"
)

func main() {
	if err := cmd.LoadDotEnv(); err != nil {
		slog.Warn("Failed to load .env file", slog.Any("error", err))
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.GetLogLevel()})))

	if err := cmd.Serve(context.Background(), cfg); err != nil {
		slog.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}
}
