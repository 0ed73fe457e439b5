// Package main provides the entry point for the netgauged daemon.
//
// netgauged is the headless counterpart of the tray application: the same
// monitoring engine exposed over an HTTP API, a WebSocket event stream and
// a Prometheus endpoint for hosts without a desktop session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shini4i/netgauge/internal/config"
	"github.com/shini4i/netgauge/internal/logging"
	"github.com/shini4i/netgauge/internal/monitor"
	"github.com/shini4i/netgauge/internal/netiface"
	"github.com/shini4i/netgauge/internal/sampler"
	"github.com/shini4i/netgauge/internal/server"
	"github.com/shini4i/netgauge/internal/stats"
)

// shutdownTimeout bounds how long in-flight HTTP requests may run after
// a termination signal.
const shutdownTimeout = 5 * time.Second

var (
	version = "dev"
)

func main() {
	listenAddr := flag.String("listen", "", "Listen address (overrides the configured one)")
	configDir := flag.String("config", "", "Config directory (defaults to the XDG config home)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	tokenClient := flag.String("token", "", "Print an API token for the named client and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("netgauged %s\n", version)
		os.Exit(0)
	}

	// Configure structured logging; the level may rise once the config is
	// loaded.
	logging.SetupJSON(logging.LevelInfo, os.Stdout)

	cfg, err := loadConfig(*configDir)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	level := logging.FromString(cfg.LogLevel)
	if *debug {
		level = logging.LevelDebug
	}
	logging.SetupJSON(level, os.Stdout)

	if *tokenClient != "" {
		issueToken(cfg, *tokenClient)
		return
	}

	slog.Info("Starting netgauged", "version", version, "listen", cfg.ListenAddr)

	// The monitor needs its callbacks at construction time but the server
	// needs the monitor; the publisher breaks the cycle by forwarding
	// events only once the server exists.
	publisher := &safePublisher{}

	mon := monitor.New(
		netiface.NewSystemEnumerator(),
		sampler.NewSystemReader(),
		publisher.callbacks(),
		monitor.WithPreferred(cfg.PreferredInterface),
	)

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(mon, server.WithAuthSecret(cfg.AuthSecret))
	publisher.SetServer(srv)

	mon.Start()

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Notify systemd that we're ready
	notifySystemd("READY=1")
	watchdogDone := make(chan struct{})
	go watchdogLoop(watchdogDone)

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-errChan:
		slog.Error("HTTP server failed", "error", err)
	}

	// Notify systemd we're stopping
	close(watchdogDone)
	notifySystemd("STOPPING=1")

	// Graceful shutdown: finish in-flight requests, then stop the engine
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}

	mon.Stop()
	srv.Close()

	slog.Info("Shutdown complete")
}

// loadConfig resolves the config file, preferring an explicit directory
// over the XDG default, and validates the result.
func loadConfig(dir string) (*config.Config, error) {
	if dir == "" {
		paths, err := config.GetPaths()
		if err != nil {
			return nil, err
		}
		dir = paths.ConfigDir
	}

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// issueToken prints a signed API token for out-of-band distribution to
// dashboards and scripts.
func issueToken(cfg *config.Config, client string) {
	if cfg.AuthSecret == "" {
		slog.Error("Cannot issue a token: auth_secret is not configured")
		os.Exit(1)
	}

	token, err := server.NewAuthenticator(cfg.AuthSecret).GenerateToken(client)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		os.Exit(1)
	}

	fmt.Println(token)
}

// notifySystemd sends a notification to systemd.
func notifySystemd(state string) {
	socketPath := os.Getenv("NOTIFY_SOCKET")
	if socketPath == "" {
		return
	}

	conn, err := syscall.Socket(syscall.AF_UNIX, syscall.SOCK_DGRAM, 0)
	if err != nil {
		slog.Warn("Failed to create notify socket", "error", err)
		return
	}
	defer func() { _ = syscall.Close(conn) }()

	addr := &syscall.SockaddrUnix{Name: socketPath}
	if err := syscall.Sendto(conn, []byte(state), 0, addr); err != nil {
		slog.Warn("Failed to notify systemd", "error", err)
	}
}

// watchdogLoop sends periodic watchdog notifications to systemd until
// done is closed.
func watchdogLoop(done <-chan struct{}) {
	// Check if watchdog is enabled
	watchdogUsec := os.Getenv("WATCHDOG_USEC")
	if watchdogUsec == "" {
		return
	}

	// Parse interval (in microseconds)
	var usec int64
	if _, err := fmt.Sscanf(watchdogUsec, "%d", &usec); err != nil {
		slog.Warn("Invalid WATCHDOG_USEC", "value", watchdogUsec)
		return
	}

	// Notify at half the watchdog interval
	interval := time.Duration(usec/2) * time.Microsecond
	if interval <= 0 {
		slog.Warn("Invalid WATCHDOG_USEC", "value", watchdogUsec)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			notifySystemd("WATCHDOG=1")
		}
	}
}

// safePublisher forwards monitor events to the HTTP server. The monitor
// is constructed before the server, so events fired during startup are
// dropped instead of hitting a nil pointer.
type safePublisher struct {
	mu  sync.RWMutex
	srv *server.Server
}

// SetServer sets the server that receives forwarded events.
func (p *safePublisher) SetServer(srv *server.Server) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.srv = srv
}

// callbacks builds the monitor callback set backed by this publisher.
func (p *safePublisher) callbacks() monitor.Callbacks {
	return monitor.Callbacks{
		OnUpdate: func(snap stats.Snapshot) {
			if srv := p.server(); srv != nil {
				srv.PublishUpdate(snap)
			}
		},
		OnNoData: func() {
			if srv := p.server(); srv != nil {
				srv.PublishNoData()
			}
		},
		OnUnavailable: func(reason monitor.Reason) {
			if srv := p.server(); srv != nil {
				srv.PublishUnavailable(reason)
			}
		},
		OnCandidates: func(candidates []netiface.Descriptor) {
			if srv := p.server(); srv != nil {
				srv.PublishCandidates(candidates)
			}
		},
		OnSelectionChange: func(d netiface.Descriptor) {
			if srv := p.server(); srv != nil {
				srv.PublishSelectionChange(d)
			}
		},
	}
}

func (p *safePublisher) server() *server.Server {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.srv
}
