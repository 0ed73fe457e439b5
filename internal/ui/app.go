package ui

import (
	"log/slog"

	"github.com/shini4i/netgauge/internal/config"
	"github.com/shini4i/netgauge/internal/monitor"
	"github.com/shini4i/netgauge/internal/netiface"
	"github.com/shini4i/netgauge/internal/sampler"
)

// Version is the application version, set at build time via ldflags.
var Version = "dev"

// App is the tray application controller. It wires the monitor, the
// configuration manager and the tray icon together and owns their
// lifecycle.
type App struct {
	configManager *config.Manager
	mon           *monitor.Monitor
	tray          *TrayIcon
}

// NewApp creates a fully wired application instance. The monitor honors
// the persisted preferred interface; tray selections are written back
// to the config so they survive restarts.
func NewApp() (*App, error) {
	configManager, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg := configManager.GetConfig()

	tray := NewTrayIcon()
	mon := monitor.New(
		netiface.NewSystemEnumerator(),
		sampler.NewSystemReader(),
		monitor.Callbacks{
			OnUpdate: tray.SetSnapshot,
			OnNoData: tray.SetWaiting,
			OnUnavailable: func(monitor.Reason) {
				tray.SetUnavailable()
			},
			OnCandidates:      tray.SetCandidates,
			OnSelectionChange: tray.SetActive,
		},
		monitor.WithPreferred(cfg.PreferredInterface),
	)

	app := &App{
		configManager: configManager,
		mon:           mon,
		tray:          tray,
	}

	if err := tray.OnSelect(app.selectInterface); err != nil {
		return nil, err
	}
	if err := tray.OnRefresh(app.refresh); err != nil {
		return nil, err
	}
	if err := tray.OnQuit(app.quit); err != nil {
		return nil, err
	}

	return app, nil
}

// Run starts the monitor and blocks on the tray loop until Quit is
// clicked.
func (a *App) Run() error {
	slog.Info("Starting netgauge", "version", Version)
	a.mon.Start()
	defer a.mon.Stop()
	return a.tray.Run()
}

// selectInterface switches monitoring to the clicked interface and
// remembers the choice.
func (a *App) selectInterface(key string) {
	if err := a.mon.Select(key); err != nil {
		slog.Warn("Interface selection failed", "key", key, "error", err)
		return
	}

	if err := a.configManager.UpdateField(func(cfg *config.Config) {
		cfg.PreferredInterface = key
	}); err != nil {
		slog.Warn("Failed to persist interface selection", "error", err)
	}
}

// refresh re-enumerates interfaces on demand.
func (a *App) refresh() {
	if err := a.mon.Refresh(); err != nil {
		slog.Warn("Interface refresh failed", "error", err)
	}
}

// quit stops the monitor and tears the tray down.
func (a *App) quit() {
	a.mon.Stop()
	a.tray.Quit()
}
