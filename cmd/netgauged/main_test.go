package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// withWatchdogEnv sets the systemd watchdog environment for a test and
// restores it afterwards.
func withWatchdogEnv(t *testing.T, usec string) {
	t.Helper()
	originalUsec := os.Getenv("WATCHDOG_USEC")
	originalSocket := os.Getenv("NOTIFY_SOCKET")
	t.Cleanup(func() {
		_ = os.Setenv("WATCHDOG_USEC", originalUsec)
		_ = os.Setenv("NOTIFY_SOCKET", originalSocket)
	})

	_ = os.Setenv("WATCHDOG_USEC", usec)
	// No socket configured, so notifications are no-ops.
	_ = os.Unsetenv("NOTIFY_SOCKET")
}

func TestWatchdogLoop_StopsWhenDoneCloses(t *testing.T) {
	// 20ms watchdog window, so the loop ticks every 10ms.
	withWatchdogEnv(t, "20000")

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		watchdogLoop(done)
		close(stopped)
	}()

	// Let at least one tick fire, then ask the loop to stop.
	time.Sleep(30 * time.Millisecond)
	close(done)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("watchdogLoop did not stop after done was closed")
	}
}

func TestWatchdogLoop_ReturnsWhenDisabled(t *testing.T) {
	tests := []struct {
		name string
		usec string
	}{
		{"watchdog not configured", ""},
		{"unparseable interval", "soon"},
		{"non-positive interval", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withWatchdogEnv(t, tt.usec)

			finished := make(chan struct{})
			go func() {
				watchdogLoop(make(chan struct{}))
				close(finished)
			}()

			select {
			case <-finished:
			case <-time.After(time.Second):
				t.Fatal("watchdogLoop did not return for a disabled watchdog")
			}
		})
	}
}

func TestNotifySystemd_NoSocketIsNoOp(t *testing.T) {
	original := os.Getenv("NOTIFY_SOCKET")
	defer func() { _ = os.Setenv("NOTIFY_SOCKET", original) }()
	_ = os.Unsetenv("NOTIFY_SOCKET")

	assert.NotPanics(t, func() {
		notifySystemd("READY=1")
	})
}
