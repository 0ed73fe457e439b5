// Package ui provides the system tray surface for netgauge.
package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fyne.io/systray"

	"github.com/shini4i/netgauge/internal/netiface"
	"github.com/shini4i/netgauge/internal/stats"
)

var (
	// ErrTrayAlreadyRunning is returned when attempting to modify callbacks after Run() has been called.
	ErrTrayAlreadyRunning = errors.New("cannot modify callbacks after TrayIcon.Run() is called")
	// ErrTrayRunTwice is returned when Run() is called more than once.
	ErrTrayRunTwice = errors.New("TrayIcon.Run() called twice")
	// ErrTrayMissingCallbacks is returned when Run() is called without all required callbacks set.
	ErrTrayMissingCallbacks = errors.New("all callbacks (OnSelect, OnRefresh, OnQuit) must be set before calling Run()")
)

// maxInterfaceItems bounds the interface submenu. systray menus cannot
// be rebuilt once created, so a fixed pool of slots is retitled and
// shown or hidden as the candidate list changes.
const maxInterfaceItems = 10

// trayMode drives the icon color and the headline text.
type trayMode int

const (
	// modeUnavailable means nothing is measurable right now.
	modeUnavailable trayMode = iota
	// modeWaiting means an interface is selected but no rate exists yet.
	modeWaiting
	// modeActive means rates are flowing.
	modeActive
)

// candidateEntry pairs a menu label with the stable interface key it
// selects.
type candidateEntry struct {
	key   string
	label string
}

// TrayIcon manages the system tray icon and menu.
type TrayIcon struct {
	mu sync.RWMutex

	// State
	mode         trayMode
	activeKey    string
	activeName   string
	rateText     string
	totalsText   string
	sessionStart time.Time
	candidates   []candidateEntry

	// Menu items (created in onReady; nil until the tray is up)
	menuActive     *systray.MenuItem
	menuRate       *systray.MenuItem
	menuTotals     *systray.MenuItem
	menuInterfaces *systray.MenuItem
	menuRefresh    *systray.MenuItem
	menuQuit       *systray.MenuItem
	interfaceItems []*systray.MenuItem

	// Callbacks - must be set before Run() is called
	onSelect  func(key string)
	onRefresh func()
	onQuit    func()

	// Icons (set once in NewTrayIcon, read-only after initialization)
	iconActive      []byte
	iconWaiting     []byte
	iconUnavailable []byte

	// Done channel to signal goroutine termination
	done chan struct{}

	// Lifecycle flags
	running   bool
	closeOnce sync.Once
}

// NewTrayIcon creates a new system tray icon manager.
func NewTrayIcon() *TrayIcon {
	return &TrayIcon{
		mode:            modeUnavailable,
		iconActive:      iconActivePNG,
		iconWaiting:     iconWaitingPNG,
		iconUnavailable: iconUnavailablePNG,
		done:            make(chan struct{}),
	}
}

// OnSelect registers a callback for when an interface is picked in the tray menu.
// Must be called before Run(). Returns ErrTrayAlreadyRunning if called after Run().
func (t *TrayIcon) OnSelect(callback func(key string)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrTrayAlreadyRunning
	}
	t.onSelect = callback
	return nil
}

// OnRefresh registers a callback for when Refresh is clicked in tray.
// Must be called before Run(). Returns ErrTrayAlreadyRunning if called after Run().
func (t *TrayIcon) OnRefresh(callback func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrTrayAlreadyRunning
	}
	t.onRefresh = callback
	return nil
}

// OnQuit registers a callback for when Quit is clicked in tray.
// Must be called before Run(). Returns ErrTrayAlreadyRunning if called after Run().
func (t *TrayIcon) OnQuit(callback func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrTrayAlreadyRunning
	}
	t.onQuit = callback
	return nil
}

// SetSnapshot updates the rate and totals display from a fresh
// measurement.
func (t *TrayIcon) SetSnapshot(snap stats.Snapshot) {
	t.mu.Lock()
	t.mode = modeActive
	t.activeKey = snap.InterfaceKey
	t.activeName = snap.InterfaceName
	t.rateText = fmt.Sprintf("↓ %s  ↑ %s",
		stats.FormatRate(snap.RxBytesPerSec),
		stats.FormatRate(snap.TxBytesPerSec))
	if t.sessionStart.IsZero() {
		t.sessionStart = snap.Timestamp
	}
	t.totalsText = fmt.Sprintf("Session: ↓ %s  ↑ %s",
		stats.FormatBytes(snap.SessionRxBytes),
		stats.FormatBytes(snap.SessionTxBytes))
	if elapsed := snap.Timestamp.Sub(t.sessionStart); elapsed > 0 {
		t.totalsText += fmt.Sprintf(" (%s)", stats.FormatDuration(elapsed))
	}
	t.mu.Unlock()
	t.updateIcon()
	t.updateMenu()
	t.updateInterfaceMenu()
}

// SetWaiting marks a tick that only established a baseline. Rates are
// unknown at that point, which is different from zero traffic.
func (t *TrayIcon) SetWaiting() {
	t.mu.Lock()
	t.mode = modeWaiting
	t.rateText = "↓ —  ↑ —"
	t.mu.Unlock()
	t.updateIcon()
	t.updateMenu()
}

// SetUnavailable blanks the traffic display while nothing is
// measurable. The active key is cleared; the next snapshot restores it.
func (t *TrayIcon) SetUnavailable() {
	t.mu.Lock()
	t.mode = modeUnavailable
	t.activeKey = ""
	t.activeName = ""
	t.rateText = ""
	t.totalsText = ""
	t.sessionStart = time.Time{}
	t.mu.Unlock()
	t.updateIcon()
	t.updateMenu()
	t.updateInterfaceMenu()
}

// SetActive records a new interface selection for display.
func (t *TrayIcon) SetActive(d netiface.Descriptor) {
	t.mu.Lock()
	t.mode = modeWaiting
	t.activeKey = d.Key()
	t.activeName = d.Name
	t.rateText = "↓ —  ↑ —"
	t.totalsText = ""
	t.sessionStart = time.Time{}
	t.mu.Unlock()
	t.updateIcon()
	t.updateMenu()
	t.updateInterfaceMenu()
}

// SetCandidates replaces the selectable interface list in the menu.
func (t *TrayIcon) SetCandidates(candidates []netiface.Descriptor) {
	entries := make([]candidateEntry, 0, len(candidates))
	for _, d := range candidates {
		entries = append(entries, candidateEntry{key: d.Key(), label: menuLabel(d)})
	}

	t.mu.Lock()
	t.candidates = entries
	t.mu.Unlock()
	t.updateInterfaceMenu()
}

// menuLabel renders a descriptor as a menu entry.
func menuLabel(d netiface.Descriptor) string {
	if d.Description == "" {
		return d.Name
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Description)
}

// Run starts the system tray icon. This should be called from the main
// goroutine as it blocks until the tray is closed. All callbacks
// (OnSelect, OnRefresh, OnQuit) must be registered before calling Run().
// Returns ErrTrayMissingCallbacks if any callback is not set.
// Returns ErrTrayRunTwice if called more than once.
func (t *TrayIcon) Run() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrTrayRunTwice
	}

	// Validate all required callbacks are set
	if t.onSelect == nil || t.onRefresh == nil || t.onQuit == nil {
		t.mu.Unlock()
		return ErrTrayMissingCallbacks
	}

	t.running = true
	t.mu.Unlock()

	systray.Run(t.onReady, t.onExit)
	return nil
}

// Quit closes the system tray icon and terminates the click handler goroutines.
// Safe to call multiple times.
func (t *TrayIcon) Quit() {
	t.closeOnce.Do(func() {
		close(t.done)
		systray.Quit()
	})
}

// onReady is called when the tray is ready to be configured.
func (t *TrayIcon) onReady() {
	systray.SetIcon(t.iconUnavailable)
	systray.SetTitle("netgauge")
	systray.SetTooltip("netgauge - no interface")

	t.mu.Lock()
	t.menuActive = systray.AddMenuItem("No interface", "Currently monitored interface")
	t.menuActive.Disable()

	t.menuRate = systray.AddMenuItem("", "Current traffic rates")
	t.menuRate.Disable()
	t.menuRate.Hide()

	t.menuTotals = systray.AddMenuItem("", "Traffic totals since the interface was selected")
	t.menuTotals.Disable()
	t.menuTotals.Hide()

	systray.AddSeparator()

	t.menuInterfaces = systray.AddMenuItem("Interfaces", "Select the monitored interface")
	items := make([]*systray.MenuItem, maxInterfaceItems)
	for i := range items {
		items[i] = t.menuInterfaces.AddSubMenuItemCheckbox("", "", false)
		items[i].Hide()
	}
	t.interfaceItems = items

	t.menuRefresh = systray.AddMenuItem("Refresh interfaces", "Re-scan network interfaces")

	systray.AddSeparator()

	t.menuQuit = systray.AddMenuItem("Quit", "Quit the application")
	t.mu.Unlock()

	// Handle menu clicks in goroutines
	go t.handleMenuClicks()
	for i := range items {
		go t.handleInterfaceClick(i, items[i])
	}

	// Apply any state that arrived before the menu existed.
	t.updateIcon()
	t.updateMenu()
	t.updateInterfaceMenu()

	slog.Info("System tray initialized")
}

// onExit is called when the tray is being closed.
func (t *TrayIcon) onExit() {
	slog.Info("System tray closed")
}

// handleMenuClicks processes refresh and quit clicks.
func (t *TrayIcon) handleMenuClicks() {
	for {
		select {
		case <-t.done:
			return
		case _, ok := <-t.menuRefresh.ClickedCh:
			if !ok {
				return
			}
			if t.onRefresh != nil {
				t.onRefresh()
			}
		case _, ok := <-t.menuQuit.ClickedCh:
			if !ok {
				return
			}
			if t.onQuit != nil {
				t.onQuit()
			}
		}
	}
}

// handleInterfaceClick forwards clicks on one pooled submenu slot to
// the interface key it currently displays.
func (t *TrayIcon) handleInterfaceClick(idx int, item *systray.MenuItem) {
	for {
		select {
		case <-t.done:
			return
		case _, ok := <-item.ClickedCh:
			if !ok {
				return
			}

			t.mu.RLock()
			var key string
			if idx < len(t.candidates) {
				key = t.candidates[idx].key
			}
			callback := t.onSelect
			t.mu.RUnlock()

			if key != "" && callback != nil {
				callback(key)
			}
		}
	}
}

// updateIcon updates the tray icon and tooltip based on current mode.
func (t *TrayIcon) updateIcon() {
	t.mu.RLock()
	ready := t.menuActive != nil
	mode := t.mode
	name := t.activeName
	t.mu.RUnlock()
	if !ready {
		return // Not initialized yet
	}

	var icon []byte
	var tooltip string

	switch mode {
	case modeActive:
		icon = t.iconActive
		tooltip = fmt.Sprintf("netgauge - %s", name)
	case modeWaiting:
		icon = t.iconWaiting
		tooltip = "netgauge - measuring..."
		if name != "" {
			tooltip = fmt.Sprintf("netgauge - measuring %s...", name)
		}
	default:
		icon = t.iconUnavailable
		tooltip = "netgauge - no interface"
	}

	systray.SetIcon(icon)
	systray.SetTooltip(tooltip)
}

// updateMenu updates the headline, rate and totals items based on
// current mode.
func (t *TrayIcon) updateMenu() {
	t.mu.RLock()
	menuActive := t.menuActive
	menuRate := t.menuRate
	menuTotals := t.menuTotals
	mode := t.mode
	name := t.activeName
	rateText := t.rateText
	totalsText := t.totalsText
	t.mu.RUnlock()
	if menuActive == nil {
		return // Not initialized yet
	}

	if name != "" {
		menuActive.SetTitle(fmt.Sprintf("Interface: %s", name))
	} else {
		menuActive.SetTitle("No interface")
	}

	// Show rates while bound; hide them when nothing is measurable
	if mode == modeActive || mode == modeWaiting {
		menuRate.SetTitle(rateText)
		menuRate.Show()
		systray.SetTitle(rateText)
	} else {
		menuRate.Hide()
		systray.SetTitle("no interface")
	}

	if mode == modeActive && totalsText != "" {
		menuTotals.SetTitle(totalsText)
		menuTotals.Show()
	} else {
		menuTotals.Hide()
	}
}

// updateInterfaceMenu retitles the pooled submenu slots to match the
// candidate list and checkmarks the active interface.
func (t *TrayIcon) updateInterfaceMenu() {
	t.mu.RLock()
	items := t.interfaceItems
	entries := append([]candidateEntry(nil), t.candidates...)
	activeKey := t.activeKey
	t.mu.RUnlock()
	if items == nil {
		return // Not initialized yet
	}

	for i, item := range items {
		if i >= len(entries) {
			item.Hide()
			continue
		}
		item.SetTitle(entries[i].label)
		if entries[i].key == activeKey {
			item.Check()
		} else {
			item.Uncheck()
		}
		item.Show()
	}

	if len(entries) > len(items) {
		slog.Debug("Interface menu truncated", "candidates", len(entries), "slots", len(items))
	}
}
