package netiface

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/net"
)

const (
	// enumerateTimeout bounds the OS interface-table read. A hung query
	// is reported as an enumeration failure instead of stalling the tick
	// loop.
	enumerateTimeout = 2 * time.Second

	// sysfsNetPath is the base path for Linux network device attributes.
	sysfsNetPath = "/sys/class/net"
)

// Enumerator lists the host's network interfaces.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]Descriptor, error)
}

// SystemEnumerator reads the interface table through the OS statistics
// layer.
type SystemEnumerator struct {
	platform Platform
}

// NewSystemEnumerator creates an enumerator for the current host.
func NewSystemEnumerator() *SystemEnumerator {
	return &SystemEnumerator{platform: CurrentPlatform()}
}

// Ensure SystemEnumerator implements the Enumerator interface.
var _ Enumerator = (*SystemEnumerator)(nil)

// Enumerate returns a snapshot of all interfaces known to the OS. The
// OS exposes no vendor description or media type through this layer, so
// descriptions stay empty and kinds are derived from flags and naming
// conventions; the classifier's rescue rules handle the remainder.
func (e *SystemEnumerator) Enumerate(ctx context.Context) ([]Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, enumerateTimeout)
	defer cancel()

	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(ifaces))
	for _, iface := range ifaces {
		descriptors = append(descriptors, Descriptor{
			Name:     iface.Name,
			Kind:     kindFromInterface(iface.Name, iface.Flags),
			Status:   statusFromFlags(iface.Flags),
			SpeedBps: linkSpeed(e.platform, iface.Name),
			Platform: e.platform,
		})
	}

	return descriptors, nil
}

// kindFromInterface derives a media kind from the interface flags and
// name, mirroring the prefixes the kernels actually assign. Anything
// unrecognized stays Unknown and is left to the classifier.
func kindFromInterface(name string, flags []string) Kind {
	pointToPoint := false
	for _, f := range flags {
		switch f {
		case "loopback":
			return KindLoopback
		case "pointtopoint":
			pointToPoint = true
		}
	}

	lower := strings.ToLower(name)
	switch {
	case hasAnyPrefix(lower, "tun", "tap", "utun", "wg"):
		return KindTunnel
	case pointToPoint || hasAnyPrefix(lower, "ppp"):
		return KindPPP
	case hasAnyPrefix(lower, "wl", "wlan", "wi-fi", "wifi", "wireless", "ath"):
		return KindWireless80211
	case hasAnyPrefix(lower, "eth", "en", "em", "lan", "local area connection"):
		return KindEthernet
	default:
		return KindUnknown
	}
}

// statusFromFlags maps the OS flag list onto an operational status.
func statusFromFlags(flags []string) OperStatus {
	for _, f := range flags {
		if f == "up" {
			return StatusUp
		}
	}
	return StatusDown
}

// linkSpeed reads the negotiated link speed in bits per second. Only
// Linux exposes it cheaply (sysfs, in Mbit/s); other platforms report 0
// for unknown. Interfaces without a negotiated link report -1, which
// also maps to unknown.
func linkSpeed(p Platform, name string) uint64 {
	if p != PlatformLinux || name == "" {
		return 0
	}

	// Validate the joined path stays inside sysfs to guard against
	// traversal via a hostile interface name.
	path := filepath.Join(sysfsNetPath, name, "speed")
	if !strings.HasPrefix(filepath.Clean(path), sysfsNetPath+string(filepath.Separator)) {
		return 0
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path validated above
	if err != nil {
		return 0
	}

	mbits, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || mbits <= 0 {
		return 0
	}
	return uint64(mbits) * 1_000_000
}

// hasAnyPrefix reports whether s starts with any of the given prefixes.
func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
