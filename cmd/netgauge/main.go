// Package main provides the entry point for the netgauge tray application.
// netgauge sits in the system tray and shows live send/receive rates for
// the best network interface on the host, with manual override via the
// tray menu.
package main

import (
	"log/slog"
	"os"

	"github.com/shini4i/netgauge/internal/logging"
	"github.com/shini4i/netgauge/internal/ui"
)

func main() {
	// Initialize structured logging
	logging.SetupFromEnv()

	app, err := ui.NewApp()
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Run blocks until Quit is clicked in the tray menu
	if err := app.Run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
